package patchctl

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Card represents an ALSA control connection to an audio interface
type Card struct {
	Number int
	Name   string
	handle *ctlHandle
}

// OpenCard opens an ALSA control connection to the specified card number
func OpenCard(cardNum int) (*Card, error) {
	handle, err := openHandle(cardNum)
	if err != nil {
		return nil, err
	}

	name, err := cardName(cardNum)
	if err != nil {
		closeHandle(handle)
		return nil, err
	}

	return &Card{
		Number: cardNum,
		Name:   name,
		handle: handle,
	}, nil
}

// Close closes the connection to the card
func (c *Card) Close() error {
	if c.handle == nil {
		return nil
	}
	return closeHandle(c.handle)
}

// String returns a string representation of the card
func (c *Card) String() string {
	return fmt.Sprintf("Card %d: %s", c.Number, c.Name)
}

// pollFdList returns the file descriptors to poll for events
func (c *Card) pollFdList() []int {
	if c.handle == nil {
		return nil
	}
	return c.handle.pollFds
}

// ListCards returns all ALSA cards whose name contains the match string
// (case-insensitive). An empty match returns every card.
func ListCards(match string) ([]*Card, error) {
	nums, err := cardNumbers()
	if err != nil {
		return nil, err
	}

	matchLower := strings.ToLower(match)
	cards := make([]*Card, 0)
	for _, num := range nums {
		name, err := cardName(num)
		if err != nil {
			continue // card can't be accessed
		}
		if match != "" && !strings.Contains(strings.ToLower(name), matchLower) {
			continue
		}
		cards = append(cards, &Card{Number: num, Name: name})
	}

	if len(cards) == 0 {
		if match != "" {
			return nil, fmt.Errorf("no cards matching '%s' found", match)
		}
		return nil, fmt.Errorf("no cards found")
	}

	return cards, nil
}

// FindCard opens a card by number or name substring
func FindCard(identifier string) (*Card, error) {
	cards, err := ListCards("")
	if err != nil {
		return nil, err
	}

	// try parsing as card number
	var cardNum int
	if _, err := fmt.Sscanf(identifier, "%d", &cardNum); err == nil {
		for _, card := range cards {
			if card.Number == cardNum {
				return OpenCard(card.Number)
			}
		}
		return nil, fmt.Errorf("card %d not found", cardNum)
	}

	identifierLower := strings.ToLower(identifier)
	for _, card := range cards {
		if strings.Contains(strings.ToLower(card.Name), identifierLower) {
			return OpenCard(card.Number)
		}
	}

	return nil, fmt.Errorf("no card matching '%s' found", identifier)
}

// AlsaDevice exposes a card's control elements through the Hardware
// interface. Integer elements are presented on a 0..100 scale regardless of
// the hardware range; boolean and enumerated elements pass through as-is.
type AlsaDevice struct {
	mu    sync.Mutex
	card  *Card
	elems map[string]*elem
	order []string
}

// NewAlsaDevice wraps an open card, enumerating its elements once.
// Call Refresh after a device-side change to re-enumerate.
func NewAlsaDevice(card *Card) (*AlsaDevice, error) {
	d := &AlsaDevice{card: card}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// Refresh re-enumerates the card's elements
func (d *AlsaDevice) Refresh() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	elems, err := listElements(d.card.handle)
	if err != nil {
		return fmt.Errorf("enumerate card %d: %w", d.card.Number, err)
	}

	d.elems = make(map[string]*elem, len(elems))
	d.order = d.order[:0]
	for _, e := range elems {
		name := e.Name
		if e.Count > 1 {
			name = fmt.Sprintf("%s[%d]", e.Name, e.Index)
		}
		if _, dup := d.elems[name]; dup {
			continue
		}
		d.elems[name] = e
		d.order = append(d.order, name)
	}
	return nil
}

func (d *AlsaDevice) Enumerate() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, len(d.order))
	copy(names, d.order)
	return names, nil
}

func (d *AlsaDevice) ReadAll() (map[string]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	values := make(map[string]int, len(d.elems))
	for name, e := range d.elems {
		raw, err := readElement(d.card.handle, e)
		if err != nil {
			continue // skip elements we can't read
		}
		values[name] = scaleFromHardware(e, raw)
	}
	return values, nil
}

func (d *AlsaDevice) Write(raw string, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.elems[raw]
	if !ok {
		return &HardwareError{Op: "write", Control: raw, Err: fmt.Errorf("no such control")}
	}
	if err := writeElement(d.card.handle, e, scaleToHardware(e, value)); err != nil {
		return &HardwareError{Op: "write", Control: raw, Err: err}
	}
	return nil
}

// scaleFromHardware maps a hardware value onto the 0..100 scale
func scaleFromHardware(e *elem, raw int64) int {
	switch e.Type {
	case ControlTypeInteger, ControlTypeInteger64:
		span := e.Max - e.Min
		if span <= 0 {
			return int(raw)
		}
		return int(math.Round(float64(raw-e.Min) / float64(span) * 100))
	default:
		return int(raw)
	}
}

// scaleToHardware maps a 0..100 value back onto the hardware range
func scaleToHardware(e *elem, value int) int64 {
	switch e.Type {
	case ControlTypeInteger, ControlTypeInteger64:
		span := e.Max - e.Min
		if span <= 0 {
			return int64(value)
		}
		v := clampLevel(value)
		return e.Min + int64(math.Round(float64(v)/100*float64(span)))
	default:
		return int64(value)
	}
}
