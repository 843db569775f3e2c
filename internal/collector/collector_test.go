package collector

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"hostreport/internal/utils"
)

const gb = uint64(1) << 30

type fakeSource struct {
	vm         *mem.VirtualMemoryStat
	vmErr      error
	swap       *mem.SwapMemoryStat
	swapErr    error
	partitions []disk.PartitionStat
	partErr    error
	usage      map[string]*disk.UsageStat
	usageErr   map[string]error
	boot       time.Time
	bootErr    error

	usageCalls []string
}

func (f *fakeSource) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	return f.vm, f.vmErr
}

func (f *fakeSource) SwapMemory(context.Context) (*mem.SwapMemoryStat, error) {
	return f.swap, f.swapErr
}

func (f *fakeSource) Partitions(context.Context) ([]disk.PartitionStat, error) {
	return f.partitions, f.partErr
}

func (f *fakeSource) Usage(_ context.Context, mountpoint string) (*disk.UsageStat, error) {
	f.usageCalls = append(f.usageCalls, mountpoint)
	if err := f.usageErr[mountpoint]; err != nil {
		return nil, err
	}
	return f.usage[mountpoint], nil
}

func (f *fakeSource) BootTime(context.Context) (time.Time, error) {
	return f.boot, f.bootErr
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func exampleSource() *fakeSource {
	return &fakeSource{
		vm:   &mem.VirtualMemoryStat{Total: 16 * gb, Used: 8 * gb, UsedPercent: 50},
		swap: &mem.SwapMemoryStat{Total: 4 * gb, Used: 1 * gb, UsedPercent: 25},
		partitions: []disk.PartitionStat{
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		},
		usage: map[string]*disk.UsageStat{
			"/": {Path: "/", Total: 100 * gb, Free: 40 * gb, Used: 60 * gb, UsedPercent: 60},
		},
		boot: fixedNow.Add(-(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 59*time.Second)),
	}
}

func newTestCollector(src Source) (*Collector, *bytes.Buffer) {
	var buf bytes.Buffer
	c := NewCollector(src, utils.NewWriterLogger(&buf)).WithClock(func() time.Time { return fixedNow })
	return c, &buf
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 0.01
}

func TestCollectExampleScenario(t *testing.T) {
	c, _ := newTestCollector(exampleSource())
	snap, err := c.Collect(context.Background(), "web-01")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if snap.ServerName != "web-01" {
		t.Fatalf("expected label web-01, got %q", snap.ServerName)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"physical", snap.PhysicalMemoryGB, 16},
		{"used", snap.UsedMemoryGB, 8},
		{"used%", snap.UsedMemoryPercent, 50},
		{"swap", snap.TotalSwapGB, 4},
		{"swap used", snap.UsedSwapGB, 1},
		{"swap%", snap.UsedSwapPercent, 25},
		{"total virtual", snap.TotalVirtualGB, 20},
		{"allocated", snap.AllocatedVirtualGB, 9},
		{"allocation%", snap.AllocationPercent, 45},
	}
	for _, tc := range checks {
		if !approx(tc.got, tc.want) {
			t.Fatalf("%s: expected %.2f, got %.2f", tc.name, tc.want, tc.got)
		}
	}
	if !snap.DiskAvailable() {
		t.Fatalf("expected disk fields to be populated")
	}
	if snap.TotalDiskGB.Value != 100 || snap.FreeDiskGB.Value != 40 || snap.DiskUsedPercent.Value != 60 {
		t.Fatalf("unexpected disk values: %+v %+v %+v", snap.TotalDiskGB, snap.FreeDiskGB, snap.DiskUsedPercent)
	}
	if snap.Uptime != "2 days, 3 hours, 4 minutes" {
		t.Fatalf("unexpected uptime %q", snap.Uptime)
	}
	if !snap.SampledAt.Equal(fixedNow) {
		t.Fatalf("expected SampledAt %v, got %v", fixedNow, snap.SampledAt)
	}
}

func TestCollectDerivedFieldsHoldForOddSizes(t *testing.T) {
	src := exampleSource()
	src.vm = &mem.VirtualMemoryStat{Total: 16_765_000_000, Used: 7_123_456_789, UsedPercent: 42.49}
	src.swap = &mem.SwapMemoryStat{Total: 2_147_000_000, Used: 333_333_333, UsedPercent: 15.52}
	c, _ := newTestCollector(src)
	snap, err := c.Collect(context.Background(), "odd")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if !approx(snap.TotalVirtualGB, snap.PhysicalMemoryGB+snap.TotalSwapGB) {
		t.Fatalf("total virtual %.2f != %.2f + %.2f", snap.TotalVirtualGB, snap.PhysicalMemoryGB, snap.TotalSwapGB)
	}
	if !approx(snap.AllocatedVirtualGB, snap.UsedMemoryGB+snap.UsedSwapGB) {
		t.Fatalf("allocated %.2f != %.2f + %.2f", snap.AllocatedVirtualGB, snap.UsedMemoryGB, snap.UsedSwapGB)
	}
	want := snap.AllocatedVirtualGB / snap.TotalVirtualGB * 100
	if math.Abs(snap.AllocationPercent-want) > 0.1 {
		t.Fatalf("allocation percent %.2f, expected about %.2f", snap.AllocationPercent, want)
	}
}

func TestCollectSkipsPermissionDeniedPartition(t *testing.T) {
	src := exampleSource()
	src.partitions = []disk.PartitionStat{
		{Mountpoint: "/proc", Fstype: ""},
		{Mountpoint: "/secret", Fstype: "ext4"},
		{Mountpoint: "/data", Fstype: "xfs"},
		{Mountpoint: "/other", Fstype: "xfs"},
	}
	src.usageErr = map[string]error{"/secret": syscall.EACCES}
	src.usage = map[string]*disk.UsageStat{
		"/data":  {Total: 50 * gb, Free: 10 * gb, UsedPercent: 80},
		"/other": {Total: 1 * gb, Free: 1 * gb, UsedPercent: 0},
	}
	c, logs := newTestCollector(src)
	snap, err := c.Collect(context.Background(), "host")
	if err != nil {
		t.Fatalf("permission error on one partition should not fail collection: %v", err)
	}
	if snap.DiskMountpoint != "/data" {
		t.Fatalf("expected /data to be selected, got %q", snap.DiskMountpoint)
	}
	if snap.TotalDiskGB.Value != 50 || snap.FreeDiskGB.Value != 10 {
		t.Fatalf("unexpected disk values %+v %+v", snap.TotalDiskGB, snap.FreeDiskGB)
	}
	if got := strings.Join(src.usageCalls, ","); got != "/secret,/data" {
		t.Fatalf("expected usage probes to stop at first success, got %s", got)
	}
	if !strings.Contains(logs.String(), "/secret") {
		t.Fatalf("expected skipped partition to be logged, got %q", logs.String())
	}
}

func TestCollectNoDiskIsNotFatal(t *testing.T) {
	src := exampleSource()
	src.partitions = []disk.PartitionStat{
		{Mountpoint: "/a", Fstype: "ext4"},
		{Mountpoint: "/b", Fstype: ""},
	}
	src.usageErr = map[string]error{"/a": syscall.EPERM}
	c, _ := newTestCollector(src)
	snap, err := c.Collect(context.Background(), "host")
	if err != nil {
		t.Fatalf("expected snapshot without disk, got error %v", err)
	}
	if snap.DiskAvailable() {
		t.Fatalf("expected disk group to be unavailable")
	}
	for _, m := range []string{snap.TotalDiskGB.String(), snap.FreeDiskGB.String(), snap.DiskUsedPercent.String()} {
		if m != "N/A" {
			t.Fatalf("expected N/A marker, got %q", m)
		}
	}
}

func TestCollectNonPermissionUsageErrorAborts(t *testing.T) {
	src := exampleSource()
	src.usageErr = map[string]error{"/": syscall.EIO}
	c, _ := newTestCollector(src)
	snap, err := c.Collect(context.Background(), "host")
	if err == nil || snap != nil {
		t.Fatalf("expected failure with no snapshot, got snap=%v err=%v", snap, err)
	}
	if KindOf(err) != KindCollectionFailure {
		t.Fatalf("expected collection failure kind, got %v", KindOf(err))
	}
}

func TestCollectZeroMemoryAndSwap(t *testing.T) {
	src := exampleSource()
	src.vm = &mem.VirtualMemoryStat{}
	src.swap = &mem.SwapMemoryStat{}
	c, _ := newTestCollector(src)
	snap, err := c.Collect(context.Background(), "empty")
	if err != nil {
		t.Fatalf("zero totals must not fail collection: %v", err)
	}
	if snap.TotalVirtualGB != 0 || snap.AllocationPercent != 0 {
		t.Fatalf("expected zero totals and 0%% allocation, got %.2f / %.2f", snap.TotalVirtualGB, snap.AllocationPercent)
	}
}

func TestCollectFailures(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name   string
		mutate func(*fakeSource)
		op     string
	}{
		{"virtual memory", func(f *fakeSource) { f.vmErr = boom }, "virtual memory"},
		{"swap", func(f *fakeSource) { f.swapErr = boom }, "swap memory"},
		{"partitions", func(f *fakeSource) { f.partErr = boom }, "disk partitions"},
		{"boot time", func(f *fakeSource) { f.bootErr = boom }, "boot time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := exampleSource()
			tc.mutate(src)
			c, _ := newTestCollector(src)
			snap, err := c.Collect(context.Background(), "host")
			if snap != nil {
				t.Fatalf("expected no partial snapshot")
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if cerr.Kind != KindCollectionFailure || cerr.Op != tc.op {
				t.Fatalf("unexpected error %+v", cerr)
			}
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped cause")
			}
		})
	}
}

func TestCollectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newTestCollector(exampleSource())
	if _, err := c.Collect(ctx, "host"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCollectIsStateless(t *testing.T) {
	src := exampleSource()
	c, _ := newTestCollector(src)
	first, err := c.Collect(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	src.vm = &mem.VirtualMemoryStat{Total: 16 * gb, Used: 12 * gb, UsedPercent: 75}
	second, err := c.Collect(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if first.UsedMemoryGB == second.UsedMemoryGB {
		t.Fatalf("expected second collection to reflect live counters")
	}
	if first.ServerName != "a" || second.ServerName != "b" {
		t.Fatalf("labels leaked between calls")
	}
}

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 days, 0 hours, 0 minutes"},
		{59 * time.Second, "0 days, 0 hours, 0 minutes"},
		{25*time.Hour + 61*time.Minute, "1 days, 2 hours, 1 minutes"},
		{-time.Hour, "0 days, 0 hours, 0 minutes"},
	}
	for _, tc := range cases {
		if got := FormatUptime(tc.in); got != tc.want {
			t.Fatalf("FormatUptime(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
