package patchctl

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrBlockNotFound is returned when a raw name resolves to no block in
	// the arena
	ErrBlockNotFound = errors.New("patchctl: block not found")
)

// AlreadyGroupedError is returned when a grouping action names a block that
// already belongs to a group
type AlreadyGroupedError struct {
	RawName string
}

func (e *AlreadyGroupedError) Error() string {
	return fmt.Sprintf("block %q is already grouped", e.RawName)
}

// SnapConfig holds the spatial grouping thresholds. The values are tuned
// empirically and therefore configuration, not invariants.
type SnapConfig struct {
	// DistancePx is the maximum horizontal gap between facing edges
	DistancePx float64 `yaml:"distance_px"`
	// MinOverlapPx is the minimum vertical overlap of the two blocks
	MinOverlapPx float64 `yaml:"min_overlap_px"`
}

// DefaultSnapConfig matches the tuning the patchbay shipped with
func DefaultSnapConfig() SnapConfig {
	return SnapConfig{DistancePx: 30, MinOverlapPx: 1}
}

// Block is the atomic placeable unit: one control plus a position and size.
// Identity is the underlying control's raw name; blocks reference the catalog
// by name only, so a catalog rebuild can never leave a dangling pointer.
type Block struct {
	RawName string
	X, Y    float64
	W, H    float64
	Value   int
	// HasFader is false for function controls and other non-level entries
	HasFader bool
}

func (b *Block) right() float64  { return b.X + b.W }
func (b *Block) bottom() float64 { return b.Y + b.H }

// Group links exactly two blocks. Crossfader and macro are derived
// write-through quantities: setting either recomputes both members' levels.
// A group persists as a logical link after its members are dragged apart.
type Group struct {
	A, B       string
	Crossfader int
	Macro      int
	Linked     bool
}

func (g *Group) has(raw string) bool { return g.A == raw || g.B == raw }

// Partner returns the other member of the group
func (g *Group) Partner(raw string) string {
	if g.A == raw {
		return g.B
	}
	return g.A
}

// Arena tracks every block by raw name along with group membership. It
// replaces scene-graph traversal with an explicit index, which keeps
// reconciliation a plain set operation.
type Arena struct {
	snap     SnapConfig
	blocks   map[string]*Block
	order    []string
	groups   []*Group
	byMember map[string]*Group
}

func NewArena(snap SnapConfig) *Arena {
	return &Arena{
		snap:     snap,
		blocks:   make(map[string]*Block),
		byMember: make(map[string]*Group),
	}
}

// AddBlock places a new block. Re-adding an existing name replaces its
// geometry and value but keeps group membership.
func (a *Arena) AddBlock(b Block) {
	if _, exists := a.blocks[b.RawName]; !exists {
		a.order = append(a.order, b.RawName)
	}
	blk := b
	a.blocks[b.RawName] = &blk
}

// Block looks up a block by raw name
func (a *Arena) Block(raw string) (*Block, bool) {
	b, ok := a.blocks[raw]
	return b, ok
}

// Blocks returns all blocks in placement order
func (a *Arena) Blocks() []*Block {
	out := make([]*Block, 0, len(a.order))
	for _, raw := range a.order {
		out = append(out, a.blocks[raw])
	}
	return out
}

// Remove drops a block from the arena. Any group it belonged to dissolves and
// the surviving partner reverts to ungrouped.
func (a *Arena) Remove(raw string) {
	if _, ok := a.blocks[raw]; !ok {
		return
	}
	a.Ungroup(raw)
	delete(a.blocks, raw)
	for i, name := range a.order {
		if name == raw {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Move repositions a block without evaluating snap candidates; snapping is
// only evaluated on drag release to avoid flicker during motion.
func (a *Arena) Move(raw string, x, y float64) error {
	b, ok := a.blocks[raw]
	if !ok {
		return fmt.Errorf("move %q: %w", raw, ErrBlockNotFound)
	}
	b.X, b.Y = x, y
	return nil
}

// SetValue records a block's level
func (a *Arena) SetValue(raw string, value int) error {
	b, ok := a.blocks[raw]
	if !ok {
		return fmt.Errorf("set value %q: %w", raw, ErrBlockNotFound)
	}
	b.Value = clampLevel(value)
	return nil
}

// SnapCandidate finds the block the given one should snap to, if any: the
// nearest ungrouped neighbour whose facing edge is within the configured
// horizontal distance and whose vertical extent overlaps by at least the
// configured minimum. Returns ok=false when no candidate qualifies.
func (a *Arena) SnapCandidate(raw string) (string, bool) {
	dragged, ok := a.blocks[raw]
	if !ok {
		return "", false
	}
	if _, grouped := a.byMember[raw]; grouped {
		return "", false
	}

	best := ""
	bestGap := math.Inf(1)
	for _, name := range a.order {
		if name == raw {
			continue
		}
		if _, grouped := a.byMember[name]; grouped {
			continue
		}
		other := a.blocks[name]

		overlap := math.Min(dragged.bottom(), other.bottom()) - math.Max(dragged.Y, other.Y)
		if overlap < a.snap.MinOverlapPx {
			continue
		}

		// facing-edge gap: dragged right to other left, or other right to
		// dragged left
		gap := math.Min(
			math.Abs(dragged.right()-other.X),
			math.Abs(other.right()-dragged.X),
		)
		if gap > a.snap.DistancePx {
			continue
		}
		if gap < bestGap {
			bestGap = gap
			best = name
		}
	}
	return best, best != ""
}

// ReleaseDrag evaluates snapping for a block at the end of a drag. When a
// candidate is found the two blocks form a group, the dragged block is
// aligned flush against the candidate, and the new group is returned. When no
// candidate qualifies the release is a no-op and nil is returned.
func (a *Arena) ReleaseDrag(raw string) (*Group, error) {
	other, ok := a.SnapCandidate(raw)
	if !ok {
		return nil, nil
	}

	dragged := a.blocks[raw]
	target := a.blocks[other]
	if dragged.X < target.X {
		dragged.X = target.X - dragged.W
	} else {
		dragged.X = target.right()
	}
	dragged.Y = target.Y

	return a.GroupBlocks(raw, other)
}

// GroupBlocks links two blocks into a new group. The crossfader and macro
// dials initialise from the members' current levels so that grouping causes
// no audible change.
func (a *Arena) GroupBlocks(rawA, rawB string) (*Group, error) {
	blockA, ok := a.blocks[rawA]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", rawA, ErrBlockNotFound)
	}
	blockB, ok := a.blocks[rawB]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", rawB, ErrBlockNotFound)
	}
	if _, grouped := a.byMember[rawA]; grouped {
		return nil, &AlreadyGroupedError{RawName: rawA}
	}
	if _, grouped := a.byMember[rawB]; grouped {
		return nil, &AlreadyGroupedError{RawName: rawB}
	}

	crossfader, macro := DialsFromLevels(blockA.Value, blockB.Value)
	g := &Group{
		A:          rawA,
		B:          rawB,
		Crossfader: crossfader,
		Macro:      macro,
		Linked:     true,
	}
	a.groups = append(a.groups, g)
	a.byMember[rawA] = g
	a.byMember[rawB] = g
	return g, nil
}

// GroupOf returns the group a block belongs to, if any
func (a *Arena) GroupOf(raw string) (*Group, bool) {
	g, ok := a.byMember[raw]
	return g, ok
}

// Groups returns all groups in formation order
func (a *Arena) Groups() []*Group {
	out := make([]*Group, len(a.groups))
	copy(out, a.groups)
	return out
}

// Ungroup dissolves the group a block belongs to, returning both members to
// independent control with their last computed levels retained. Ungrouping a
// block with no membership is a no-op, not an error.
func (a *Arena) Ungroup(raw string) bool {
	g, ok := a.byMember[raw]
	if !ok {
		return false
	}
	delete(a.byMember, g.A)
	delete(a.byMember, g.B)
	for i, other := range a.groups {
		if other == g {
			a.groups = append(a.groups[:i], a.groups[i+1:]...)
			break
		}
	}
	return true
}

// SetCrossfader moves a group's crossfader and writes the derived levels
// through to both members. Balance 0 favours member A entirely, 100 member B.
func (a *Arena) SetCrossfader(g *Group, value int) (levelA, levelB int, err error) {
	g.Crossfader = clampLevel(value)
	return a.applyGroupLevels(g)
}

// SetMacro moves a group's macro fader, scaling both members together while
// the crossfader balance is preserved.
func (a *Arena) SetMacro(g *Group, value int) (levelA, levelB int, err error) {
	g.Macro = clampLevel(value)
	return a.applyGroupLevels(g)
}

func (a *Arena) applyGroupLevels(g *Group) (int, int, error) {
	levelA, levelB := GroupLevels(g.Crossfader, g.Macro)
	if err := a.SetValue(g.A, levelA); err != nil {
		return 0, 0, err
	}
	if err := a.SetValue(g.B, levelB); err != nil {
		return 0, 0, err
	}
	return levelA, levelB, nil
}

// GroupLevels maps a crossfader position and macro level to the two members'
// levels using a constant-power law: the perceptual loudness sum stays
// constant while the balance shifts. Pure, so the mapping is testable with no
// arena or hardware attached.
func GroupLevels(crossfader, macro int) (levelA, levelB int) {
	pan := float64(clampLevel(crossfader)) / 100.0
	m := float64(clampLevel(macro))
	levelA = int(math.Round(m * math.Cos(pan*math.Pi/2)))
	levelB = int(math.Round(m * math.Sin(pan*math.Pi/2)))
	return levelA, levelB
}

// DialsFromLevels inverts GroupLevels approximately for group formation: the
// macro takes the members' mean and the crossfader their relative balance.
// The linear balance is not the exact inverse of the constant-power law but
// preserves its endpoints and ordering, which is all formation needs.
func DialsFromLevels(levelA, levelB int) (crossfader, macro int) {
	levelA = clampLevel(levelA)
	levelB = clampLevel(levelB)
	macro = (levelA + levelB) / 2
	total := levelA + levelB
	if total <= 0 {
		return 50, macro
	}
	crossfader = int(math.Round(float64(levelB) / float64(total) * 100))
	return crossfader, macro
}

// FallbackGrid places blocks for controls that have no recorded position:
// appended in catalog order on a fixed grid. The same input always produces
// the same placement.
type FallbackGrid struct {
	StartX float64 `yaml:"start_x"`
	StartY float64 `yaml:"start_y"`
	GapPx  float64 `yaml:"gap_px"`
	WrapX  float64 `yaml:"wrap_x"`
	BlockW float64 `yaml:"block_w"`
	BlockH float64 `yaml:"block_h"`
}

// DefaultFallbackGrid mirrors the patchbay's initial population grid
func DefaultFallbackGrid() FallbackGrid {
	return FallbackGrid{StartX: 50, StartY: 50, GapPx: 30, WrapX: 800, BlockW: 120, BlockH: 120}
}

// PlaceBelow lays out the given names on the grid, starting below every block
// already in the arena
func (g FallbackGrid) PlaceBelow(a *Arena, names []string, values map[string]int) {
	y := g.StartY
	for _, b := range a.Blocks() {
		if bottom := b.bottom() + g.GapPx; bottom > y {
			y = bottom
		}
	}

	x := g.StartX
	for _, raw := range names {
		a.AddBlock(Block{
			RawName:  raw,
			X:        x,
			Y:        y,
			W:        g.BlockW,
			H:        g.BlockH,
			Value:    values[raw],
			HasFader: hasFader(raw),
		})
		x += g.BlockW + g.GapPx
		if x > g.WrapX {
			x = g.StartX
			y += g.BlockH + g.GapPx
		}
	}
}

// hasFader reports whether a control carries a level fader; function
// controls are placeable but have no level of their own
func hasFader(raw string) bool {
	_, isFunction := Decode(raw).(FunctionControl)
	return !isFunction
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// sortedNames returns a copy of names in lexical order; reconciliation
// reports use it so warning lists are stable
func sortedNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
