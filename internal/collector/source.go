package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Source exposes the host counters the collector reads.
type Source interface {
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error)
	Partitions(ctx context.Context) ([]disk.PartitionStat, error)
	Usage(ctx context.Context, mountpoint string) (*disk.UsageStat, error)
	BootTime(ctx context.Context) (time.Time, error)
}

// HostSource reads the local machine through gopsutil.
type HostSource struct{}

func (HostSource) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (HostSource) SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error) {
	return mem.SwapMemoryWithContext(ctx)
}

// Partitions lists physical partitions only, skipping pseudo filesystems.
func (HostSource) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, false)
}

func (HostSource) Usage(ctx context.Context, mountpoint string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, mountpoint)
}

func (HostSource) BootTime(ctx context.Context) (time.Time, error) {
	secs, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0), nil
}
