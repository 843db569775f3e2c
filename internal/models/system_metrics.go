package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Unavailable is rendered in place of any measure the host could not report.
const Unavailable = "N/A"

// Measure is a gigabyte or percentage reading that may be missing.
type Measure struct {
	Value float64
	Valid bool
}

// Known wraps a reported value.
func Known(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// Missing returns the unavailable measure.
func Missing() Measure {
	return Measure{}
}

// String formats the value with two decimals, or the unavailable marker.
func (m Measure) String() string {
	if !m.Valid {
		return Unavailable
	}
	return strconv.FormatFloat(m.Value, 'f', 2, 64)
}

// Ptr returns nil for an unavailable measure so columnar encoders can write a null.
func (m Measure) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(Unavailable)
	}
	return json.Marshal(m.Value)
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*m = Known(v)
	default:
		*m = Missing()
	}
	return nil
}

// ParseMeasure is the inverse of Measure.String.
func ParseMeasure(s string) (Measure, error) {
	if s == Unavailable || s == "" {
		return Missing(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing(), err
	}
	return Known(v), nil
}

// SystemSnapshot is a single point-in-time reading of the local host, labelled
// with a caller supplied server name. The label never selects the host being
// measured.
type SystemSnapshot struct {
	ServerName string `json:"server_name"`

	PhysicalMemoryGB  float64 `json:"physical_memory_gb"`
	UsedMemoryGB      float64 `json:"used_memory_gb"`
	UsedMemoryPercent float64 `json:"used_memory_percent"`

	TotalSwapGB     float64 `json:"total_swap_gb"`
	UsedSwapGB      float64 `json:"used_swap_gb"`
	UsedSwapPercent float64 `json:"used_swap_percent"`

	TotalVirtualGB     float64 `json:"total_virtual_gb"`
	AllocatedVirtualGB float64 `json:"allocated_virtual_gb"`
	AllocationPercent  float64 `json:"allocation_percent"`

	TotalDiskGB     Measure `json:"total_disk_gb"`
	FreeDiskGB      Measure `json:"free_disk_gb"`
	DiskUsedPercent Measure `json:"disk_used_percent"`
	DiskMountpoint  string  `json:"disk_mountpoint,omitempty"`

	Uptime    string    `json:"uptime"`
	SampledAt time.Time `json:"sampled_at"`
}

// DiskAvailable reports whether a partition was readable when the snapshot was taken.
func (s *SystemSnapshot) DiskAvailable() bool {
	if s == nil {
		return false
	}
	return s.TotalDiskGB.Valid && s.FreeDiskGB.Valid && s.DiskUsedPercent.Valid
}

// ClearDisk marks the whole disk group unavailable.
func (s *SystemSnapshot) ClearDisk() {
	s.TotalDiskGB = Missing()
	s.FreeDiskGB = Missing()
	s.DiskUsedPercent = Missing()
	s.DiskMountpoint = ""
}

// Copy returns a copy of the snapshot so callers can mutate safely.
func (s *SystemSnapshot) Copy() *SystemSnapshot {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}
