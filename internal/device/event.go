package device

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is one record popped from the instrument's external-edge FIFO log.
// Popping removes it from the device permanently.
type Event struct {
	// Logged is the instrument time at which the record entered the log.
	Logged TimeSample
	// Timestamp is the hardware time of the detected edge itself.
	// Debounce decisions are judged on this, never on host time.
	Timestamp TimeSample
	// Source is the external input index (0 or 1) the edge arrived on.
	Source int
	// Slope is the edge polarity token as reported by the firmware
	// ("POS", "RISING", ...). Tokens vary between firmware revisions.
	Slope string
}

// parseEvent parses the six comma-separated FIFO record fields.
func parseEvent(s string) (*Event, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: event record %q", ErrBadResponse, s)
	}

	logSec, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: log seconds in %q", ErrBadResponse, s)
	}

	logFrac, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: log fraction in %q", ErrBadResponse, s)
	}

	tsSec, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp seconds in %q", ErrBadResponse, s)
	}

	tsFrac, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp fraction in %q", ErrBadResponse, s)
	}

	source, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil || (source != 0 && source != 1) {
		return nil, fmt.Errorf("%w: source index in %q", ErrBadResponse, s)
	}

	return &Event{
		Logged:    TimeSample{Sec: logSec, Frac: logFrac},
		Timestamp: TimeSample{Sec: tsSec, Frac: tsFrac},
		Source:    source,
		Slope:     strings.TrimSpace(parts[5]),
	}, nil
}
