package trigger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/device"
)

var errFakeIO = errors.New("fake transport failure")

// fakeAlarm records one accepted alarm-configure write.
type fakeAlarm struct {
	start  device.TimeSample
	period float64
	count  int
}

// fakeDevice is an in-memory instrument: a monotonic TAI clock that
// advances on every read, an external-edge FIFO and an alarm table.
// Fault injection covers transport errors and device-error-queue entries.
type fakeDevice struct {
	mu sync.Mutex

	// now is the simulated TAI clock; step advances it per Time read.
	now  device.TimeSample
	step float64

	// events is the external-edge FIFO, oldest first.
	events []device.Event

	// alarms records every accepted configure write in order.
	alarms []fakeAlarm

	binds     int
	drops     int
	logClears int

	// depthUnsupported makes LogDepth degrade like old firmware.
	depthUnsupported bool

	// nextDeviceErr is reported once by the next CheckError call.
	nextDeviceErr *device.Error

	// timeFails / popFails fail that many upcoming calls.
	timeFails int
	popFails  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		now:  device.TimeSample{Sec: 1000, Frac: 0},
		step: 0.001,
	}
}

func (f *fakeDevice) Identify(context.Context) (string, error) {
	return "FAKE,TB-1000,000001,1.0", nil
}

func (f *fakeDevice) ClearStatus(context.Context) error { return nil }

func (f *fakeDevice) Time(context.Context) (device.TimeSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timeFails > 0 {
		f.timeFails--

		return device.TimeSample{}, errFakeIO
	}

	f.now = f.now.Add(f.step)

	return f.now, nil
}

func (f *fakeDevice) BindOutput(context.Context, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.binds++

	return nil
}

func (f *fakeDevice) ConfigureAlarm(_ context.Context, _ int, start device.TimeSample, periodSeconds float64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alarms = append(f.alarms, fakeAlarm{start: start, period: periodSeconds, count: count})

	return nil
}

func (f *fakeDevice) DropAlarms(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drops++

	return nil
}

func (f *fakeDevice) EnableLogs(context.Context) error { return nil }

func (f *fakeDevice) ClearLogs(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logClears++
	f.events = nil

	return nil
}

func (f *fakeDevice) PopEvent(context.Context) (*device.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.popFails > 0 {
		f.popFails--

		return nil, errFakeIO
	}

	if len(f.events) == 0 {
		return nil, nil
	}

	ev := f.events[0]
	f.events = f.events[1:]

	return &ev, nil
}

func (f *fakeDevice) LogDepth(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.depthUnsupported {
		return 0, device.ErrUnsupported
	}

	return len(f.events), nil
}

func (f *fakeDevice) CheckError(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nextDeviceErr != nil {
		err := f.nextDeviceErr
		f.nextDeviceErr = nil

		return err
	}

	return nil
}

// addEdge queues one external-edge record with the given hardware timestamp.
func (f *fakeDevice) addEdge(ts device.TimeSample, source int, slope string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, device.Event{
		Logged:    ts,
		Timestamp: ts,
		Source:    source,
		Slope:     slope,
	})
}

func (f *fakeDevice) alarmCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.alarms)
}

func (f *fakeDevice) dropCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.drops
}

func (f *fakeDevice) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.logClears
}

// testConfig returns a validated configuration suitable for the fake device.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Resource = "fake:5025"
	cfg.Timeout = time.Second
	cfg.BurstLead = 200 * time.Millisecond
	cfg.PulsePeriod = time.Millisecond
	cfg.DebounceInterval = time.Millisecond

	return cfg
}
