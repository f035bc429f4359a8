package patchctl

import "fmt"

// LinkSet tracks which stereo pairs are linked. Writing a level to a member
// of a linked pair mirrors the write to the other member, so the pair moves
// as one channel.
type LinkSet struct {
	partner map[string]string
	pairOf  map[string]string
	linked  map[string]bool
}

// NewLinkSet derives the linkable pairs from a catalog snapshot. All pairs
// start unlinked; persisted link state is applied with Restore.
func NewLinkSet(cat *Catalog) *LinkSet {
	s := &LinkSet{
		partner: make(map[string]string),
		pairOf:  make(map[string]string),
		linked:  make(map[string]bool),
	}
	for _, pair := range Pairs(cat) {
		id := pair.ID()
		s.partner[pair.Left.RawName] = pair.Right.RawName
		s.partner[pair.Right.RawName] = pair.Left.RawName
		s.pairOf[pair.Left.RawName] = id
		s.pairOf[pair.Right.RawName] = id
		s.linked[id] = false
	}
	return s
}

// SetLinked sets the link state of a pair by its ID. Unknown pair IDs are
// rejected rather than recorded.
func (s *LinkSet) SetLinked(pairID string, linked bool) error {
	if _, ok := s.linked[pairID]; !ok {
		return fmt.Errorf("stereo link: unknown pair '%s'", pairID)
	}
	s.linked[pairID] = linked
	return nil
}

// Linked reports the link state of a pair by its ID
func (s *LinkSet) Linked(pairID string) bool {
	return s.linked[pairID]
}

// PairID returns the identifier of the pair the control belongs to, for link
// toggling and persistence
func (s *LinkSet) PairID(raw string) (string, bool) {
	id, ok := s.pairOf[raw]
	return id, ok
}

// Partner returns the other member of the control's pair and whether that
// pair is currently linked
func (s *LinkSet) Partner(raw string) (string, bool) {
	other, ok := s.partner[raw]
	if !ok {
		return "", false
	}
	return other, s.linked[s.pairOf[raw]]
}

// Restore applies persisted link state, ignoring pairs the catalog no longer
// has. Reconciliation has already filtered stale entries, so silence here is
// safe.
func (s *LinkSet) Restore(state map[string]bool) {
	for id, linked := range state {
		if _, ok := s.linked[id]; ok {
			s.linked[id] = linked
		}
	}
}

// State snapshots the link flags for persistence
func (s *LinkSet) State() map[string]bool {
	out := make(map[string]bool, len(s.linked))
	for id, linked := range s.linked {
		out[id] = linked
	}
	return out
}

// Write sets a control's level, mirroring it to the pair partner when the
// control belongs to a linked pair. A failed mirror write reports the error
// but leaves the primary write in place.
func (s *LinkSet) Write(hw Hardware, raw string, value int) error {
	if err := hw.Write(raw, value); err != nil {
		return err
	}
	if other, linked := s.Partner(raw); linked {
		if err := hw.Write(other, value); err != nil {
			return fmt.Errorf("mirror to '%s': %w", other, err)
		}
	}
	return nil
}
