package serial

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

// TimerID identifies a registered timer for RemoveTimer.
type TimerID int

type timerEntry struct {
	id       TimerID
	interval time.Duration
	due      time.Time
	cb       func()
	removed  bool
}

type readEvent struct {
	dev   *Device
	chunk []byte
	err   error
}

// Manager owns the set of open devices and a single cooperative dispatch
// loop: every device-readable callback, every timer callback, and the
// stop check all run on the goroutine that calls RunUntilStopped, never
// concurrently with each other. Each device's blocking Read runs on its
// own goroutine purely to turn the blocking call into a channel event;
// no device state is touched there.
//
// This channel-based dispatch is this repository's rendering of the
// single-threaded "central wait loop" contract: Go's select over event
// channels plays the role the C original fills with self-pipe-woken
// select(2) over raw file descriptors.
type Manager struct {
	mu      sync.Mutex
	devices []*Device
	timers  []*timerEntry
	nextID  TimerID

	onReadable map[*Device]func([]byte)
	events     chan readEvent
	stopCh     chan struct{}
	stopped    int32
	running    int32
}

// NewManager returns an idle Manager.
func NewManager() *Manager {
	return &Manager{
		onReadable: map[*Device]func([]byte){},
		events:     make(chan readEvent, 64),
		stopCh:     make(chan struct{}),
	}
}

// Listen registers dev and starts its background reader goroutine. cb is
// invoked on the manager's dispatch goroutine whenever a chunk arrives.
func (m *Manager) Listen(dev *Device, cb func(chunk []byte)) {
	m.mu.Lock()
	m.devices = append(m.devices, dev)
	m.onReadable[dev] = cb
	m.mu.Unlock()

	go m.readLoop(dev)
}

func (m *Manager) readLoop(dev *Device) {
	buf := make([]byte, 4096)
	for {
		n, err := dev.Read(buf)
		if n > 0 {
			chunk := append([]byte{}, buf[:n]...)
			select {
			case m.events <- readEvent{dev: dev, chunk: chunk}:
			case <-m.stopCh:
				return
			}
		}
		if err != nil {
			select {
			case m.events <- readEvent{dev: dev, err: err}:
			case <-m.stopCh:
			}
			return
		}
		select {
		case <-m.stopCh:
			return
		default:
		}
	}
}

// AddTimer schedules cb to run every interval, starting one interval from
// now, and returns an id RemoveTimer accepts.
func (m *Manager) AddTimer(interval time.Duration, cb func()) TimerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.timers = append(m.timers, &timerEntry{
		id:       id,
		interval: interval,
		due:      time.Now().Add(interval),
		cb:       cb,
	})
	return id
}

// RemoveTimer disables a previously registered timer; it is a no-op if id
// is unknown or already removed.
func (m *Manager) RemoveTimer(id TimerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timers {
		if t.id == id {
			t.removed = true
		}
	}
}

// IsRunning reports whether RunUntilStopped is currently looping.
func (m *Manager) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

// Stop requests the dispatch loop to return at its next iteration. Safe
// to call from any goroutine, including a signal handler, any number of
// times.
func (m *Manager) Stop() {
	if atomic.CompareAndSwapInt32(&m.stopped, 0, 1) {
		close(m.stopCh)
	}
}

// RunUntilStopped blocks, dispatching readable and timer events, until
// Stop is called. Timer due-times are checked on a fixed short tick
// rather than computing the exact next wakeup, trading a little wasted
// wakeup for the simplicity of one select loop; the coarsest timer this
// package schedules (the 60s/2s check-status timer) is unaffected by the
// difference.
func (m *Manager) RunUntilStopped() {
	atomic.StoreInt32(&m.running, 1)
	defer atomic.StoreInt32(&m.running, 0)

	const tick = 10 * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case ev := <-m.events:
			m.dispatchRead(ev)
		case <-ticker.C:
			m.fireDueTimers()
		}
	}
}

func (m *Manager) dispatchRead(ev readEvent) {
	if ev.err != nil {
		wlog.Default.Warn("serial: device %s read error: %v", ev.dev.Path, ev.err)
		return
	}
	m.mu.Lock()
	cb := m.onReadable[ev.dev]
	m.mu.Unlock()
	if cb != nil {
		cb(ev.chunk)
	}
}

func (m *Manager) fireDueTimers() {
	now := time.Now()
	m.mu.Lock()
	due := make([]*timerEntry, 0)
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.removed {
			continue
		}
		if !now.Before(t.due) {
			due = append(due, t)
			t.due = now.Add(t.interval)
		}
		live = append(live, t)
	}
	m.timers = live
	m.mu.Unlock()

	for _, t := range due {
		t.cb()
	}
}
