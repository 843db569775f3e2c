// Package report turns snapshots into the tabular views the dashboard shows
// and downloads: the full report, the allocation filter, CSV and Parquet
// exports, and a usage chart.
package report

import (
	"strconv"

	"hostreport/internal/models"
	"hostreport/internal/utils"
)

// Columns is the canonical report schema, in display order.
var Columns = []string{
	"ServerName",
	"Physical Memory (GB)",
	"In Use Memory (GB)",
	"Memory Usage (%)",
	"Pagefile (Swap) (GB)",
	"Swap Usage (%)",
	"Total Virtual Memory (GB)",
	"Allocated Virtual Memory (GB)",
	"Allocation Percent (%)",
	"Total Disk Size (GB)",
	"Free Disk (GB)",
	"Disk Usage (%)",
	"Uptime",
}

// DefaultThreshold is the allocation percentage above which a row appears in
// the filtered view.
const DefaultThreshold = 50.0

// Row renders a snapshot in Columns order.
func Row(s *models.SystemSnapshot) []string {
	if s == nil {
		return nil
	}
	return []string{
		s.ServerName,
		formatFixed(s.PhysicalMemoryGB),
		formatFixed(s.UsedMemoryGB),
		formatFixed(s.UsedMemoryPercent),
		formatFixed(s.TotalSwapGB),
		formatFixed(s.UsedSwapPercent),
		formatFixed(s.TotalVirtualGB),
		formatFixed(s.AllocatedVirtualGB),
		formatFixed(s.AllocationPercent),
		s.TotalDiskGB.String(),
		s.FreeDiskGB.String(),
		s.DiskUsedPercent.String(),
		s.Uptime,
	}
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FilterAllocation keeps snapshots whose allocation percent is strictly
// above threshold.
func FilterAllocation(snapshots []*models.SystemSnapshot, threshold float64) []*models.SystemSnapshot {
	out := make([]*models.SystemSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s != nil && s.AllocationPercent > threshold {
			out = append(out, s)
		}
	}
	return out
}

// Filename builds the download name system_report_<label>.<ext>.
func Filename(label, ext string) string {
	name := utils.SanitizeFilename(label)
	if name == "" {
		name = "host"
	}
	if ext == "" {
		ext = "csv"
	}
	return "system_report_" + name + "." + ext
}
