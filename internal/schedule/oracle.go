// Package schedule answers when each scanner last ran and runs next.
// Every answer is a pure function of the supplied time.
package schedule

import (
	"sort"
	"time"

	"SignalHub/internal/domain/models"
)

// DefaultLead is how long before a boundary a producer counts as scanning.
const DefaultLead = 30 * time.Second

// NextScan returns the first boundary strictly after now. Boundaries are
// hour start + k*interval for intervals up to an hour, and UTC day start +
// k*interval for longer ones.
func NextScan(now time.Time, intervalMinutes int) time.Time {
	if intervalMinutes <= 0 {
		return now
	}
	now = now.UTC()
	interval := time.Duration(intervalMinutes) * time.Minute

	period := time.Hour
	base := now.Truncate(time.Hour)
	if interval > time.Hour {
		period = 24 * time.Hour
		base = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	k := now.Sub(base)/interval + 1
	next := base.Add(k * interval)
	if k*interval >= period {
		next = base.Add(period)
	}
	return next
}

// LastScan is one interval before NextScan. For intervals that do not divide
// the hour it need not be a real boundary: at 10:50 a 45 minute producer
// reports 10:15, not 10:45.
func LastScan(now time.Time, intervalMinutes int) time.Time {
	return NextScan(now, intervalMinutes).Add(-time.Duration(intervalMinutes) * time.Minute)
}

// IsScanning reports whether the next boundary is within lead of now.
func IsScanning(now time.Time, intervalMinutes int, lead time.Duration) bool {
	until := NextScan(now, intervalMinutes).Sub(now)
	return until > 0 && until <= lead
}

// Oracle evaluates a fixed set of scan windows.
type Oracle struct {
	windows []models.ScanWindow
	lead    time.Duration
}

// NewOracle builds an oracle from producer id to interval minutes.
// Producers are reported in ascending interval order, then by id.
func NewOracle(producers map[string]int, lead time.Duration) *Oracle {
	if lead <= 0 {
		lead = DefaultLead
	}
	windows := make([]models.ScanWindow, 0, len(producers))
	for id, minutes := range producers {
		windows = append(windows, models.ScanWindow{ProducerID: id, IntervalMinutes: minutes})
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].IntervalMinutes != windows[j].IntervalMinutes {
			return windows[i].IntervalMinutes < windows[j].IntervalMinutes
		}
		return windows[i].ProducerID < windows[j].ProducerID
	})
	return &Oracle{windows: windows, lead: lead}
}

// Windows returns the configured windows.
func (o *Oracle) Windows() []models.ScanWindow {
	return append([]models.ScanWindow(nil), o.windows...)
}

// Status computes every producer's schedule at now.
func (o *Oracle) Status(now time.Time) models.ScanStatus {
	return Status(now, o.windows, o.lead)
}

// Status computes the schedule of windows at now.
func Status(now time.Time, windows []models.ScanWindow, lead time.Duration) models.ScanStatus {
	now = now.UTC()
	out := models.ScanStatus{
		Producers:  make([]models.ProducerScan, 0, len(windows)),
		ServerTime: now,
	}
	for _, w := range windows {
		next := NextScan(now, w.IntervalMinutes)
		until := next.Sub(now)
		out.Producers = append(out.Producers, models.ProducerScan{
			ProducerID:      w.ProducerID,
			IntervalMinutes: w.IntervalMinutes,
			LastScan:        next.Add(-time.Duration(w.IntervalMinutes) * time.Minute),
			NextScan:        next,
			IsScanning:      until > 0 && until <= lead,
			SecondsToNext:   int64(until.Seconds()),
		})
	}
	return out
}

// Changed reports whether any producer's next scan or scanning flag differs.
func Changed(prev, cur models.ScanStatus) bool {
	if len(prev.Producers) != len(cur.Producers) {
		return true
	}
	for i := range cur.Producers {
		a, b := prev.Producers[i], cur.Producers[i]
		if a.ProducerID != b.ProducerID || !a.NextScan.Equal(b.NextScan) || a.IsScanning != b.IsScanning {
			return true
		}
	}
	return false
}
