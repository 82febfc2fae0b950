package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/strella111/trigsync/internal/transport"
)

// noDataSentinel is the FIFO response meaning the external-edge log is empty.
const noDataSentinel = "NONE"

// depthQueries are the known log-depth mnemonics, tried in order.
// Depth reporting is firmware-dependent; older revisions implement neither.
var depthQueries = []string{"INPUT:LOG:COUNT?", "INPUT:LOG:POINTS?"}

// Session speaks the instrument's textual dialect over a transport channel.
// It owns wire formatting and parsing; scheduling policy lives above it.
type Session struct {
	ch transport.Channel
}

// NewSession wraps an open channel in a protocol session.
func NewSession(ch transport.Channel) *Session {
	return &Session{ch: ch}
}

// Identify returns the instrument identification string.
func (s *Session) Identify(ctx context.Context) (string, error) {
	id, err := s.ch.Query(ctx, "*IDN?")
	if err != nil {
		return "", fmt.Errorf("identify: %w", err)
	}

	return id, nil
}

// ClearStatus resets the instrument status and error queue.
func (s *Session) ClearStatus(ctx context.Context) error {
	return s.ch.Command(ctx, "*CLS")
}

// Time reads the instrument's absolute TAI clock.
// The reading is fresh on every call and never cached.
func (s *Session) Time(ctx context.Context) (TimeSample, error) {
	reply, err := s.ch.Query(ctx, "TIME:TAI?")
	if err != nil {
		return TimeSample{}, fmt.Errorf("time query: %w", err)
	}

	return parseTimeSample(reply)
}

// BindOutput routes output channel n to the internal alarm source and
// enables it. Repeating the bind is harmless, so schedulers issue it
// before every configure write.
func (s *Session) BindOutput(ctx context.Context, n int) error {
	if err := s.ch.Command(ctx, fmt.Sprintf("OUTPUT%d:SOURCE ALARM", n)); err != nil {
		return fmt.Errorf("bind output %d: %w", n, err)
	}

	if err := s.ch.Command(ctx, fmt.Sprintf("OUTPUT%d:STATE ON", n)); err != nil {
		return fmt.Errorf("enable output %d: %w", n, err)
	}

	return nil
}

// ConfigureAlarm issues the single atomic alarm-configure write.
// The instrument holds one active program per output channel, so this
// supersedes whatever was armed before.
func (s *Session) ConfigureAlarm(ctx context.Context, n int, start TimeSample, periodSeconds float64, count int) error {
	cmd := fmt.Sprintf("ALARM%d:CONFIG 1,%d,%s,%s,%d",
		n,
		start.Sec,
		start.FracString(),
		strconv.FormatFloat(periodSeconds, 'f', FractionDigits, 64),
		count,
	)

	if err := s.ch.Command(ctx, cmd); err != nil {
		return fmt.Errorf("configure alarm %d: %w", n, err)
	}

	return nil
}

// DropAlarms deletes every programmed alarm on the instrument.
// This is the idempotent safe-stop primitive: pulses already emitted are
// unaffected, not-yet-fired programs are discarded.
func (s *Session) DropAlarms(ctx context.Context) error {
	return s.ch.Command(ctx, "ALARM:DELETE:ALL")
}

// EnableLogs turns on both on-device log classes: the external-edge log
// and the trigger-output log.
func (s *Session) EnableLogs(ctx context.Context) error {
	if err := s.ch.Command(ctx, "INPUT:LOG:STATE ON"); err != nil {
		return fmt.Errorf("enable input log: %w", err)
	}

	if err := s.ch.Command(ctx, "OUTPUT:LOG:STATE ON"); err != nil {
		return fmt.Errorf("enable output log: %w", err)
	}

	return nil
}

// ClearLogs empties both on-device logs. The FIFO has bounded depth;
// long unattended runs clear it periodically to avoid query stalls.
func (s *Session) ClearLogs(ctx context.Context) error {
	if err := s.ch.Command(ctx, "INPUT:LOG:CLEAR"); err != nil {
		return fmt.Errorf("clear input log: %w", err)
	}

	if err := s.ch.Command(ctx, "OUTPUT:LOG:CLEAR"); err != nil {
		return fmt.Errorf("clear output log: %w", err)
	}

	return nil
}

// PopEvent destructively reads the oldest external-edge record.
// It returns (nil, nil) when the log is empty.
func (s *Session) PopEvent(ctx context.Context) (*Event, error) {
	reply, err := s.ch.Query(ctx, "INPUT:LOG:NEXT?")
	if err != nil {
		return nil, fmt.Errorf("pop event: %w", err)
	}

	if strings.EqualFold(strings.TrimSpace(reply), noDataSentinel) {
		return nil, nil
	}

	return parseEvent(reply)
}

// LogDepth reports how many records wait in the external-edge log.
// It tries the known mnemonics in order and returns ErrUnsupported when
// none of them answers with a number; callers then fall back to blind pops.
func (s *Session) LogDepth(ctx context.Context) (int, error) {
	for _, q := range depthQueries {
		reply, err := s.ch.Query(ctx, q)
		if err != nil {
			continue
		}

		depth, err := strconv.Atoi(strings.TrimSpace(reply))
		if err != nil || depth < 0 {
			continue
		}

		return depth, nil
	}

	return 0, ErrUnsupported
}

// NextError pops one entry from the instrument error queue.
func (s *Session) NextError(ctx context.Context) (*Error, error) {
	reply, err := s.ch.Query(ctx, "SYSTEM:ERROR?")
	if err != nil {
		return nil, fmt.Errorf("error queue query: %w", err)
	}

	code, text, ok := strings.Cut(strings.TrimSpace(reply), ",")

	n, convErr := strconv.Atoi(strings.TrimSpace(code))
	if !ok || convErr != nil {
		return nil, fmt.Errorf("%w: error queue entry %q", ErrBadResponse, reply)
	}

	return &Error{Code: n, Text: strings.Trim(strings.TrimSpace(text), `"`)}, nil
}

// CheckError drains one error-queue entry and surfaces it as an error
// when the queue was not empty. Schedulers call it after every configure
// write so a rejected program fails loudly instead of silently not firing.
func (s *Session) CheckError(ctx context.Context) error {
	devErr, err := s.NextError(ctx)
	if err != nil {
		return err
	}

	if devErr.Code != 0 {
		return devErr
	}

	return nil
}
