// Package collector reads memory, swap, disk and uptime counters from the
// local host and derives the aggregate virtual memory figures shown on the
// report.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"hostreport/internal/models"
	"hostreport/internal/utils"

	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
)

// Collector produces one SystemSnapshot per call. It keeps no state between
// calls, so every snapshot reflects the live counters at call time.
type Collector struct {
	source Source
	logger *utils.Logger
	now    func() time.Time
}

// NewCollector builds a collector over an arbitrary source.
func NewCollector(source Source, logger *utils.Logger) *Collector {
	if source == nil {
		source = HostSource{}
	}
	return &Collector{source: source, logger: logger, now: time.Now}
}

// NewHostCollector reads the machine the process runs on.
func NewHostCollector(logger *utils.Logger) *Collector {
	return NewCollector(HostSource{}, logger)
}

// WithClock overrides the wall clock used for uptime.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	if now != nil {
		c.now = now
	}
	return c
}

// Collect reads the host and returns a snapshot labelled with label. The
// memory, swap, disk and boot readings run concurrently; any failure other
// than an unreadable partition cancels the rest and no snapshot is returned.
func (c *Collector) Collect(ctx context.Context, label string) (*models.SystemSnapshot, error) {
	if c == nil {
		return nil, failure("collect", errors.New("collector unavailable"))
	}
	if err := ctx.Err(); err != nil {
		return nil, failure("collect", err)
	}

	var (
		vm   *mem.VirtualMemoryStat
		swap *mem.SwapMemoryStat
		boot time.Time
		snap = &models.SystemSnapshot{ServerName: label}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.source.VirtualMemory(gctx)
		if err != nil {
			return failure("virtual memory", err)
		}
		if v == nil {
			return failure("virtual memory", errors.New("no statistics reported"))
		}
		vm = v
		return nil
	})
	g.Go(func() error {
		s, err := c.source.SwapMemory(gctx)
		if err != nil {
			return failure("swap memory", err)
		}
		if s == nil {
			return failure("swap memory", errors.New("no statistics reported"))
		}
		swap = s
		return nil
	})
	g.Go(func() error {
		return c.readDisk(gctx, snap)
	})
	g.Go(func() error {
		b, err := c.source.BootTime(gctx)
		if err != nil {
			return failure("boot time", err)
		}
		boot = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, failure("collect", err)
	}

	totalMem := toGB(vm.Total)
	usedMem := toGB(vm.Used)
	totalSwap := toGB(swap.Total)
	usedSwap := toGB(swap.Used)

	snap.PhysicalMemoryGB = round2(totalMem)
	snap.UsedMemoryGB = round2(usedMem)
	snap.UsedMemoryPercent = round2(vm.UsedPercent)
	snap.TotalSwapGB = round2(totalSwap)
	snap.UsedSwapGB = round2(usedSwap)
	snap.UsedSwapPercent = round2(swap.UsedPercent)

	now := c.now()
	snap.Uptime = FormatUptime(now.Sub(boot))
	snap.SampledAt = now

	// Aggregates come from the unrounded readings and are rounded once.
	totalVirtual := totalMem + totalSwap
	allocated := usedMem + usedSwap
	snap.TotalVirtualGB = round2(totalVirtual)
	snap.AllocatedVirtualGB = round2(allocated)
	snap.AllocationPercent = round2(allocationPercent(allocated, totalVirtual))

	return snap, nil
}

// readDisk fills the disk group from the first readable partition. It only
// touches the disk fields of snap.
func (c *Collector) readDisk(ctx context.Context, snap *models.SystemSnapshot) error {
	snap.ClearDisk()
	partitions, err := c.source.Partitions(ctx)
	if err != nil {
		return failure("disk partitions", err)
	}
	for _, part := range partitions {
		if err := ctx.Err(); err != nil {
			return failure("disk usage", err)
		}
		if strings.TrimSpace(part.Fstype) == "" {
			continue
		}
		usage, err := c.source.Usage(ctx, part.Mountpoint)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				c.logf("collector: skipping %s: %v", part.Mountpoint, &Error{Kind: KindPartitionUnreadable, Op: "disk usage", Err: err})
				continue
			}
			return failure(fmt.Sprintf("disk usage %s", part.Mountpoint), err)
		}
		if usage == nil {
			continue
		}
		snap.TotalDiskGB = models.Known(round2(toGB(usage.Total)))
		snap.FreeDiskGB = models.Known(round2(toGB(usage.Free)))
		snap.DiskUsedPercent = models.Known(round2(usage.UsedPercent))
		snap.DiskMountpoint = part.Mountpoint
		return nil
	}
	c.logf("collector: no suitable disk partition found among %d", len(partitions))
	return nil
}

func (c *Collector) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.logger != nil {
		c.logger.Write(msg)
		return
	}
	log.Println(msg)
}
