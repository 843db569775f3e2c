package models

// Notice is a user-facing message attached to a report response.
type Notice struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

const NotificationKindWarning = "warning"

// NoDiskNotice is surfaced when no partition could be read.
var NoDiskNotice = Notice{
	Kind:    NotificationKindWarning,
	Title:   "Disk unavailable",
	Message: "No suitable disk partition found. Disk information will be omitted.",
}
