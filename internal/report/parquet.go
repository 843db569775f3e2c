package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"hostreport/internal/models"
)

// parquetRow mirrors the report schema. Disk columns are pointers, so an
// unreadable disk is stored as null rather than a sentinel string.
type parquetRow struct {
	ServerName         string   `parquet:"server_name"`
	PhysicalMemoryGB   float64  `parquet:"physical_memory_gb"`
	UsedMemoryGB       float64  `parquet:"used_memory_gb"`
	UsedMemoryPercent  float64  `parquet:"used_memory_percent"`
	TotalSwapGB        float64  `parquet:"total_swap_gb"`
	UsedSwapGB         float64  `parquet:"used_swap_gb"`
	UsedSwapPercent    float64  `parquet:"used_swap_percent"`
	TotalVirtualGB     float64  `parquet:"total_virtual_gb"`
	AllocatedVirtualGB float64  `parquet:"allocated_virtual_gb"`
	AllocationPercent  float64  `parquet:"allocation_percent"`
	TotalDiskGB        *float64 `parquet:"total_disk_gb"`
	FreeDiskGB         *float64 `parquet:"free_disk_gb"`
	DiskUsedPercent    *float64 `parquet:"disk_used_percent"`
	Uptime             string   `parquet:"uptime"`
	SampledAtMillis    int64    `parquet:"sampled_at_ms"`
}

func toParquetRow(s *models.SystemSnapshot) parquetRow {
	row := parquetRow{
		ServerName:         s.ServerName,
		PhysicalMemoryGB:   s.PhysicalMemoryGB,
		UsedMemoryGB:       s.UsedMemoryGB,
		UsedMemoryPercent:  s.UsedMemoryPercent,
		TotalSwapGB:        s.TotalSwapGB,
		UsedSwapGB:         s.UsedSwapGB,
		UsedSwapPercent:    s.UsedSwapPercent,
		TotalVirtualGB:     s.TotalVirtualGB,
		AllocatedVirtualGB: s.AllocatedVirtualGB,
		AllocationPercent:  s.AllocationPercent,
		Uptime:             s.Uptime,
	}
	if s.DiskAvailable() {
		row.TotalDiskGB = s.TotalDiskGB.Ptr()
		row.FreeDiskGB = s.FreeDiskGB.Ptr()
		row.DiskUsedPercent = s.DiskUsedPercent.Ptr()
	}
	if !s.SampledAt.IsZero() {
		row.SampledAtMillis = s.SampledAt.UnixMilli()
	}
	return row
}

func (r parquetRow) snapshot() *models.SystemSnapshot {
	s := &models.SystemSnapshot{
		ServerName:         r.ServerName,
		PhysicalMemoryGB:   r.PhysicalMemoryGB,
		UsedMemoryGB:       r.UsedMemoryGB,
		UsedMemoryPercent:  r.UsedMemoryPercent,
		TotalSwapGB:        r.TotalSwapGB,
		UsedSwapGB:         r.UsedSwapGB,
		UsedSwapPercent:    r.UsedSwapPercent,
		TotalVirtualGB:     r.TotalVirtualGB,
		AllocatedVirtualGB: r.AllocatedVirtualGB,
		AllocationPercent:  r.AllocationPercent,
		Uptime:             r.Uptime,
	}
	s.ClearDisk()
	if r.TotalDiskGB != nil && r.FreeDiskGB != nil && r.DiskUsedPercent != nil {
		s.TotalDiskGB = models.Known(*r.TotalDiskGB)
		s.FreeDiskGB = models.Known(*r.FreeDiskGB)
		s.DiskUsedPercent = models.Known(*r.DiskUsedPercent)
	}
	if r.SampledAtMillis != 0 {
		s.SampledAt = time.UnixMilli(r.SampledAtMillis).UTC()
	}
	return s
}

// WriteParquet encodes snapshots as a single Parquet file.
func WriteParquet(w io.Writer, snapshots ...*models.SystemSnapshot) error {
	rows := make([]parquetRow, 0, len(snapshots))
	for _, s := range snapshots {
		if s != nil {
			rows = append(rows, toParquetRow(s))
		}
	}
	writer := parquet.NewGenericWriter[parquetRow](w, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet decodes a file written by WriteParquet.
func ReadParquet(data []byte) ([]*models.SystemSnapshot, error) {
	rows, err := parquet.Read[parquetRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	out := make([]*models.SystemSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.snapshot())
	}
	return out, nil
}
