package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMeasureFormatting(t *testing.T) {
	if got := Known(12.345).String(); got != "12.35" && got != "12.34" {
		t.Fatalf("unexpected formatted value %q", got)
	}
	if got := Known(3).String(); got != "3.00" {
		t.Fatalf("expected 3.00, got %q", got)
	}
	if got := Missing().String(); got != Unavailable {
		t.Fatalf("expected %q, got %q", Unavailable, got)
	}
	if Missing().Ptr() != nil {
		t.Fatalf("missing measure should have nil pointer")
	}
	if p := Known(7).Ptr(); p == nil || *p != 7 {
		t.Fatalf("unexpected pointer %v", p)
	}
}

func TestParseMeasure(t *testing.T) {
	for in, want := range map[string]Measure{
		"":          Missing(),
		Unavailable: Missing(),
		"42.50":     Known(42.5),
		"0":         Known(0),
	} {
		got, err := ParseMeasure(in)
		if err != nil {
			t.Fatalf("ParseMeasure(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMeasure(%q) = %+v, want %+v", in, got, want)
		}
	}
	if _, err := ParseMeasure("lots"); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
}

func TestSnapshotJSONMarksMissingDisk(t *testing.T) {
	s := &SystemSnapshot{ServerName: "web-01", TotalDiskGB: Known(100)}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"total_disk_gb":100`) || !strings.Contains(out, `"free_disk_gb":"N/A"`) {
		t.Fatalf("unexpected JSON %s", out)
	}

	var back SystemSnapshot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.TotalDiskGB.Valid || back.FreeDiskGB.Valid {
		t.Fatalf("validity not preserved: %+v", back)
	}
}

func TestDiskAvailableRequiresWholeGroup(t *testing.T) {
	var nilSnap *SystemSnapshot
	if nilSnap.DiskAvailable() {
		t.Fatalf("nil snapshot has no disk")
	}
	s := &SystemSnapshot{TotalDiskGB: Known(100), FreeDiskGB: Known(40)}
	if s.DiskAvailable() {
		t.Fatalf("partial disk group should not count as available")
	}
	s.DiskUsedPercent = Known(60)
	s.DiskMountpoint = "/"
	if !s.DiskAvailable() {
		t.Fatalf("expected disk available")
	}

	dup := s.Copy()
	dup.ClearDisk()
	if dup.DiskAvailable() || dup.DiskMountpoint != "" {
		t.Fatalf("ClearDisk left data behind: %+v", dup)
	}
	if !s.DiskAvailable() {
		t.Fatalf("Copy should not share disk fields with the original")
	}
}
