package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"hostreport/internal/models"
)

// WriteCSV writes the header row followed by one row per snapshot.
func WriteCSV(w io.Writer, snapshots ...*models.SystemSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, s := range snapshots {
		if s == nil {
			continue
		}
		if err := cw.Write(Row(s)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a report written by WriteCSV. The swap usage in GB is not a
// report column, so it is recovered from the allocated and in-use figures.
func ReadCSV(r io.Reader) ([]*models.SystemSnapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], name)
		}
	}

	var out []*models.SystemSnapshot
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		snap, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

func parseRow(rec []string) (*models.SystemSnapshot, error) {
	nums := make([]float64, 8)
	for i := range nums {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", Columns[i+1], err)
		}
		nums[i] = v
	}
	snap := &models.SystemSnapshot{
		ServerName:         rec[0],
		PhysicalMemoryGB:   nums[0],
		UsedMemoryGB:       nums[1],
		UsedMemoryPercent:  nums[2],
		TotalSwapGB:        nums[3],
		UsedSwapPercent:    nums[4],
		TotalVirtualGB:     nums[5],
		AllocatedVirtualGB: nums[6],
		AllocationPercent:  nums[7],
		Uptime:             rec[12],
	}
	snap.UsedSwapGB = round2(snap.AllocatedVirtualGB - snap.UsedMemoryGB)

	disk := make([]models.Measure, 3)
	for i := range disk {
		m, err := models.ParseMeasure(rec[9+i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", Columns[9+i], err)
		}
		disk[i] = m
	}
	// Disk fields are all present or all absent.
	if disk[0].Valid && disk[1].Valid && disk[2].Valid {
		snap.TotalDiskGB, snap.FreeDiskGB, snap.DiskUsedPercent = disk[0], disk[1], disk[2]
	} else {
		snap.ClearDisk()
	}
	return snap, nil
}

func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if r < 0 {
		return 0
	}
	return r
}
