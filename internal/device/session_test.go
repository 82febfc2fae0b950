package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errScriptedIO = errors.New("scripted I/O failure")

// scriptChannel is an in-memory transport.Channel whose query replies are
// scripted per command. Commands are recorded for assertion.
type scriptChannel struct {
	// replies maps a query to its response line.
	replies map[string]string
	// failing contains queries that fail with a transport error.
	failing map[string]bool
	// sent records every command and query in order.
	sent []string
}

func (c *scriptChannel) Command(_ context.Context, cmd string) error {
	c.sent = append(c.sent, cmd)

	return nil
}

func (c *scriptChannel) Query(_ context.Context, cmd string) (string, error) {
	c.sent = append(c.sent, cmd)

	if c.failing[cmd] {
		return "", errScriptedIO
	}

	reply, ok := c.replies[cmd]
	if !ok {
		return "", errScriptedIO
	}

	return reply, nil
}

func (c *scriptChannel) Close() error { return nil }

// TestTime_ParsesReading verifies the "<sec>,<frac>" time form and rejection
// of malformed replies.
func TestTime_ParsesReading(t *testing.T) {
	t.Parallel()

	ch := &scriptChannel{replies: map[string]string{
		"TIME:TAI?": "1761234567,0.123456789",
	}}
	s := NewSession(ch)

	sample, err := s.Time(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1761234567), sample.Sec)
	require.InDelta(t, 0.123456789, sample.Frac, 1e-12)

	ch.replies["TIME:TAI?"] = "garbage"
	_, err = s.Time(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)

	// Fraction outside [0, 1) is a firmware bug, not a valid sample.
	ch.replies["TIME:TAI?"] = "12,1.25"
	_, err = s.Time(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
}

// TestPopEvent_SentinelAndRecord verifies the empty-log sentinel maps to nil
// and a six-field record parses completely.
func TestPopEvent_SentinelAndRecord(t *testing.T) {
	t.Parallel()

	ch := &scriptChannel{replies: map[string]string{
		"INPUT:LOG:NEXT?": "NONE",
	}}
	s := NewSession(ch)

	ev, err := s.PopEvent(context.Background())
	require.NoError(t, err)
	require.Nil(t, ev)

	ch.replies["INPUT:LOG:NEXT?"] = "100,0.5,100,0.499998000,1,POS"

	ev, err = s.PopEvent(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, int64(100), ev.Timestamp.Sec)
	require.InDelta(t, 0.499998, ev.Timestamp.Frac, 1e-12)
	require.Equal(t, 1, ev.Source)
	require.Equal(t, "POS", ev.Slope)

	// Source index outside {0, 1} is malformed.
	ch.replies["INPUT:LOG:NEXT?"] = "100,0.5,100,0.5,2,POS"
	_, err = s.PopEvent(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
}

// TestLogDepth_TriesBothMnemonics verifies the firmware-dependent depth
// query falls through the known forms and degrades to ErrUnsupported.
func TestLogDepth_TriesBothMnemonics(t *testing.T) {
	t.Parallel()

	// First mnemonic answers.
	ch := &scriptChannel{replies: map[string]string{"INPUT:LOG:COUNT?": "7"}}

	depth, err := NewSession(ch).LogDepth(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, depth)

	// First fails, second answers.
	ch = &scriptChannel{
		failing: map[string]bool{"INPUT:LOG:COUNT?": true},
		replies: map[string]string{"INPUT:LOG:POINTS?": "3"},
	}

	depth, err = NewSession(ch).LogDepth(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, depth)

	// Neither answers: unsupported, not a hard failure.
	ch = &scriptChannel{}

	depth, err = NewSession(ch).LogDepth(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
	require.Zero(t, depth)
}

// TestCheckError_QueueStates verifies the empty-queue code and a reported fault.
func TestCheckError_QueueStates(t *testing.T) {
	t.Parallel()

	ch := &scriptChannel{replies: map[string]string{
		"SYSTEM:ERROR?": `0,"No error"`,
	}}
	s := NewSession(ch)

	require.NoError(t, s.CheckError(context.Background()))

	ch.replies["SYSTEM:ERROR?"] = `-222,"Data out of range"`

	err := s.CheckError(context.Background())
	require.Error(t, err)

	var devErr *Error
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, -222, devErr.Code)
	require.Equal(t, "Data out of range", devErr.Text)
}

// TestConfigureAlarm_WireFormat verifies the atomic configure write carries
// 9-decimal fractions.
func TestConfigureAlarm_WireFormat(t *testing.T) {
	t.Parallel()

	ch := &scriptChannel{}
	s := NewSession(ch)

	start := TimeSample{Sec: 500, Frac: 0.25}
	require.NoError(t, s.ConfigureAlarm(context.Background(), 1, start, 0.0001, 40))

	require.Len(t, ch.sent, 1)
	require.Equal(t, "ALARM1:CONFIG 1,500,0.250000000,0.000100000,40", ch.sent[0])
}

// TestTimeSample_AddCarries verifies fraction carry in both directions.
func TestTimeSample_AddCarries(t *testing.T) {
	t.Parallel()

	s := TimeSample{Sec: 10, Frac: 0.75}

	up := s.Add(0.5)
	require.Equal(t, int64(11), up.Sec)
	require.InDelta(t, 0.25, up.Frac, 1e-9)

	down := s.Add(-1.5)
	require.Equal(t, int64(9), down.Sec)
	require.InDelta(t, 0.25, down.Frac, 1e-9)

	require.InDelta(t, 0.5, up.Sub(s), 1e-9)
	require.True(t, up.After(s))
	require.False(t, s.After(up))
}
