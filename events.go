package patchctl

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Monitor watches a card for control element changes and fans them out to
// subscribers. It satisfies Notifier.
type Monitor struct {
	card *Card

	mu      sync.Mutex
	subs    map[int]func()
	nextID  int
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewMonitor(card *Card) *Monitor {
	return &Monitor{
		card: card,
		subs: make(map[int]func()),
	}
}

// Subscribe registers a callback invoked after each burst of element
// changes. The monitor starts on the first subscription.
func (m *Monitor) Subscribe(fn func()) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		if err := m.startLocked(); err != nil {
			return nil, err
		}
	}

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return cancel, nil
}

func (m *Monitor) startLocked() error {
	if m.card.handle == nil {
		return fmt.Errorf("card not open")
	}
	pollFds := m.card.pollFdList()
	if len(pollFds) == 0 {
		return fmt.Errorf("no poll descriptors available")
	}

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true
	go m.loop(pollFds)
	return nil
}

// Stop stops the monitor and waits for its loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
}

func (m *Monitor) loop(pollFds []int) {
	defer close(m.done)

	fds := make([]unix.PollFd, len(pollFds))
	for i, fd := range pollFds {
		fds[i] = unix.PollFd{
			Fd:     int32(fd),
			Events: unix.POLLIN,
		}
	}

	for {
		select {
		case <-m.stop:
			return
		default:
		}

		n, err := unix.Poll(fds, 1000) // 1 second timeout
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}

		// drain the burst, then wait a beat so rapid dial moves coalesce
		// into one notification
		changed := false
		for {
			hasEvent, err := drainEvent(m.card.handle)
			if err != nil {
				return
			}
			if !hasEvent {
				break
			}
			changed = true
		}
		if !changed {
			continue
		}
		time.Sleep(50 * time.Millisecond)
		for {
			hasEvent, err := drainEvent(m.card.handle)
			if err != nil {
				return
			}
			if !hasEvent {
				break
			}
		}

		m.notify()
	}
}

func (m *Monitor) notify() {
	m.mu.Lock()
	subs := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
