package collector

import (
	"fmt"
	"math"
	"time"
)

const bytesPerGB = 1 << 30

func toGB(b uint64) float64 {
	return float64(b) / bytesPerGB
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// allocationPercent is zero when the host reports neither memory nor swap.
func allocationPercent(allocated, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return allocated / total * 100
}

// FormatUptime renders whole days, hours and minutes; seconds are dropped.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int64(d / (24 * time.Hour))
	hours := int64((d % (24 * time.Hour)) / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%d days, %d hours, %d minutes", days, hours, minutes)
}
