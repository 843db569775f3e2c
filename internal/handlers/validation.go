package handlers

import (
	"strings"

	"hostreport/internal/utils"
)

// ReportQuery selects the label for a report. Any non-empty text is accepted;
// it is carried into the snapshot unchanged.
type ReportQuery struct {
	Host string `form:"host" validate:"required"`
}

// FilteredQuery overrides the configured threshold for one request.
type FilteredQuery struct {
	Host      string   `form:"host" validate:"required"`
	Threshold *float64 `form:"threshold" validate:"omitempty,min=0,max=100"`
}

type DownloadQuery struct {
	Host   string `form:"host" validate:"required"`
	Format string `form:"format" validate:"omitempty,oneof=csv parquet"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// normalizeLabel trims surrounding whitespace only; the label is not a
// hostname and is never resolved.
func normalizeLabel(raw string) string {
	return strings.TrimSpace(raw)
}

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(raw string) string {
	target := utils.SanitizeString(raw)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/login") {
		return "/"
	}
	return target
}
