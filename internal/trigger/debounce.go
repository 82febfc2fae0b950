package trigger

import (
	"strings"
	"time"

	"github.com/strella111/trigsync/internal/device"
)

// debouncer rejects near-duplicate edges on a logical input channel,
// judged on hardware timestamps rather than host time. The last accepted
// timestamp per channel lives for the session and is reset only by a log
// clear.
type debouncer struct {
	// interval is the minimum hardware-time spacing between accepted edges.
	interval time.Duration
	// last maps an input channel to its last accepted edge timestamp.
	last map[int]device.TimeSample
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		last:     make(map[int]device.TimeSample),
	}
}

// accept reports whether the event is a valid edge for the expected input
// channel: right source, matching slope when one is wanted, and separated
// from the previous accepted edge by at least the debounce interval.
// Accepting updates the per-channel state.
//
// Slope matching is case-insensitive and substring-tolerant because
// firmware revisions disagree on the exact token ("POS" vs "POSITIVE").
func (d *debouncer) accept(ev *device.Event, wantChannel int, wantSlope string) bool {
	if ev == nil || ev.Source != wantChannel {
		return false
	}

	if wantSlope != "" &&
		!strings.Contains(strings.ToLower(ev.Slope), strings.ToLower(wantSlope)) {
		return false
	}

	if prev, ok := d.last[ev.Source]; ok {
		if ev.Timestamp.Sub(prev) < d.interval.Seconds() {
			return false
		}
	}

	d.last[ev.Source] = ev.Timestamp

	return true
}

// reset forgets every per-channel timestamp. Called on log clears so the
// debounce history matches the (now empty) on-device log.
func (d *debouncer) reset() {
	clear(d.last)
}
