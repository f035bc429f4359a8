package patchctl

import (
	"fmt"
	"sync"
)

// MuteEngine layers mute and solo on top of the device without the hardware
// having native mute switches: muting writes zero and remembers the prior
// level, unmuting restores it. Solo mutes every other fader channel.
type MuteEngine struct {
	mu sync.Mutex
	hw Hardware

	// savedLevels holds the pre-mute value for each muted control
	savedLevels map[string]int
	explicit    map[string]bool
	soloed      map[string]bool
}

func NewMuteEngine(hw Hardware) *MuteEngine {
	return &MuteEngine{
		hw:          hw,
		savedLevels: make(map[string]int),
		explicit:    make(map[string]bool),
		soloed:      make(map[string]bool),
	}
}

// Mute silences a control, remembering its level for Unmute
func (m *MuteEngine) Mute(raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.muteLocked(raw); err != nil {
		return err
	}
	m.explicit[raw] = true
	return nil
}

func (m *MuteEngine) muteLocked(raw string) error {
	if _, muted := m.savedLevels[raw]; muted {
		return nil
	}
	values, err := m.hw.ReadAll()
	if err != nil {
		return fmt.Errorf("mute '%s': %w", raw, err)
	}
	level, ok := values[raw]
	if !ok {
		return &HardwareError{Op: "mute", Control: raw, Err: fmt.Errorf("no such control")}
	}
	if err := m.hw.Write(raw, 0); err != nil {
		return fmt.Errorf("mute '%s': %w", raw, err)
	}
	m.savedLevels[raw] = level
	return nil
}

// Unmute restores the level the control had before it was muted. Unmuting a
// control that is not muted is a no-op.
func (m *MuteEngine) Unmute(raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.explicit, raw)
	if m.impliedBySolo(raw) {
		return nil
	}
	return m.unmuteLocked(raw)
}

func (m *MuteEngine) unmuteLocked(raw string) error {
	level, muted := m.savedLevels[raw]
	if !muted {
		return nil
	}
	if err := m.hw.Write(raw, level); err != nil {
		return fmt.Errorf("unmute '%s': %w", raw, err)
	}
	delete(m.savedLevels, raw)
	return nil
}

// IsMuted reports whether the control is currently silenced, whether
// explicitly or as a side effect of another channel's solo
func (m *MuteEngine) IsMuted(raw string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, muted := m.savedLevels[raw]
	return muted
}

// Solo silences every other fader channel while leaving this one audible
func (m *MuteEngine) Solo(raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, err := m.hw.ReadAll()
	if err != nil {
		return fmt.Errorf("solo '%s': %w", raw, err)
	}
	if _, ok := values[raw]; !ok {
		return &HardwareError{Op: "solo", Control: raw, Err: fmt.Errorf("no such control")}
	}

	m.soloed[raw] = true
	if err := m.unmuteLocked(raw); err != nil {
		return err
	}

	for _, other := range sortedNames(mapKeys(values)) {
		if m.soloed[other] || !hasFader(other) {
			continue
		}
		if err := m.muteLocked(other); err != nil {
			return err
		}
	}
	return nil
}

// Unsolo lifts a solo. When no solos remain, every implicitly muted channel
// is restored; explicit mutes stay in place.
func (m *MuteEngine) Unsolo(raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.soloed[raw] {
		return nil
	}
	delete(m.soloed, raw)

	if len(m.soloed) > 0 {
		// remaining solos keep the field muted; the lifted one rejoins it
		if !m.explicit[raw] {
			return m.muteLocked(raw)
		}
		return nil
	}

	for _, other := range sortedNames(mapKeys(m.savedLevels)) {
		if m.explicit[other] {
			continue
		}
		if err := m.unmuteLocked(other); err != nil {
			return err
		}
	}
	return nil
}

// IsSoloed reports whether the control is currently soloed
func (m *MuteEngine) IsSoloed(raw string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.soloed[raw]
}

func (m *MuteEngine) impliedBySolo(raw string) bool {
	return len(m.soloed) > 0 && !m.soloed[raw] && hasFader(raw)
}
