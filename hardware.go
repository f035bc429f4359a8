package patchctl

import (
	"fmt"
	"sort"
	"sync"
)

// Hardware is the narrow control-access collaborator: the core needs a
// point-in-time snapshot of control values and a way to write one back,
// nothing more. All levels are normalised to 0..100.
type Hardware interface {
	// Enumerate returns the raw names of every mixer control on the device
	Enumerate() ([]string, error)
	// ReadAll returns a snapshot of every control's current value
	ReadAll() (map[string]int, error)
	// Write sets one control's value
	Write(raw string, value int) error
}

// Notifier is implemented by hardware backends that can report external
// control changes. Any notification means "rebuild the catalog and
// re-resolve"; the callback carries no finer granularity.
type Notifier interface {
	// Subscribe registers a change callback and returns a cancel function
	Subscribe(fn func()) (cancel func(), err error)
}

// HardwareError wraps a failed hardware operation. Callers keep the block's
// last-known value, surface the failure, and retry only on the next explicit
// user action.
type HardwareError struct {
	Op      string
	Control string
	Err     error
}

func (e *HardwareError) Error() string {
	if e.Control == "" {
		return fmt.Sprintf("hardware %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("hardware %s '%s': %v", e.Op, e.Control, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// MemoryHardware is an in-memory Hardware implementation. Tests run against
// it, and it backs the demo mode of the terminal front end.
type MemoryHardware struct {
	mu         sync.Mutex
	values     map[string]int
	writeFails map[string]error
	subs       []func()
}

func NewMemoryHardware(values map[string]int) *MemoryHardware {
	h := &MemoryHardware{
		values:     make(map[string]int, len(values)),
		writeFails: make(map[string]error),
	}
	for raw, v := range values {
		h.values[raw] = v
	}
	return h
}

func (h *MemoryHardware) Enumerate() ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.values))
	for raw := range h.values {
		names = append(names, raw)
	}
	sort.Strings(names)
	return names, nil
}

func (h *MemoryHardware) ReadAll() (map[string]int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]int, len(h.values))
	for raw, v := range h.values {
		out[raw] = v
	}
	return out, nil
}

func (h *MemoryHardware) Write(raw string, value int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err, ok := h.writeFails[raw]; ok {
		return &HardwareError{Op: "write", Control: raw, Err: err}
	}
	if _, ok := h.values[raw]; !ok {
		return &HardwareError{Op: "write", Control: raw, Err: fmt.Errorf("no such control")}
	}
	h.values[raw] = clampLevel(value)
	return nil
}

func (h *MemoryHardware) Subscribe(fn func()) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs = append(h.subs, fn)
	idx := len(h.subs) - 1
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.subs[idx] = nil
	}, nil
}

// SetControls replaces the control set, simulating a device change, and
// notifies subscribers
func (h *MemoryHardware) SetControls(values map[string]int) {
	h.mu.Lock()
	h.values = make(map[string]int, len(values))
	for raw, v := range values {
		h.values[raw] = v
	}
	subs := make([]func(), len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn()
		}
	}
}

// FailWrites makes writes to the given control fail with err
func (h *MemoryHardware) FailWrites(raw string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeFails[raw] = err
}
