package patchctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LayoutVersion is the persisted format version this build writes
const LayoutVersion = 1

// ErrLayoutNotFound is returned when no file exists for a layout name
var ErrLayoutNotFound = errors.New("patchctl: layout not found")

// BlockState is the persisted geometry and level of one block
type BlockState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Value int     `json:"value"`
}

// GroupState is the persisted membership record of one group
type GroupState struct {
	MemberA    string `json:"member_a"`
	MemberB    string `json:"member_b"`
	Crossfader int    `json:"crossfader"`
	Macro      int    `json:"macro"`
	Linked     bool   `json:"linked"`
}

// Layout is the persisted arrangement of blocks, groups, and values under a
// name. One file per layout, named deterministically from the layout name.
type Layout struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Version     int                   `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	Blocks      map[string]BlockState `json:"blocks"`
	Groups      []GroupState          `json:"groups"`
	StereoLinks map[string]bool       `json:"stereo_links"`
}

// StaleReferenceWarning records a persisted control reference that no longer
// resolves against the live catalog. Stale references are dropped, never
// fatal.
type StaleReferenceWarning struct {
	RawName string
	Detail  string
}

func (w StaleReferenceWarning) String() string {
	return fmt.Sprintf("%s: %s", w.RawName, w.Detail)
}

// ReconciledScene is the result of loading a layout against a live catalog:
// a populated arena plus everything that had to change to get there.
type ReconciledScene struct {
	Layout      *Layout
	Arena       *Arena
	StereoLinks map[string]bool
	// Stale lists every persisted raw name dropped because the live
	// catalog no longer has it
	Stale []StaleReferenceWarning
	// Added lists live controls the layout did not mention; they were
	// placed by the fallback grid in catalog order
	Added []string
	// VersionWarning is non-empty when the file carried an unknown format
	// version and was parsed best-effort
	VersionWarning string
}

// LayoutStore saves and loads layouts as JSON files in a dedicated
// directory. Saves are atomic: a temporary file is written and renamed into
// place, so a crash mid-write leaves the previous file intact.
type LayoutStore struct {
	dir    string
	snap   SnapConfig
	grid   FallbackGrid
	logger *slog.Logger
}

func NewLayoutStore(dir string, snap SnapConfig, grid FallbackGrid, logger *slog.Logger) *LayoutStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LayoutStore{dir: dir, snap: snap, grid: grid, logger: logger}
}

// Capture builds a Layout from the current arena state
func Capture(name, description string, arena *Arena, stereoLinks map[string]bool) *Layout {
	l := &Layout{
		Name:        name,
		Description: description,
		Version:     LayoutVersion,
		Blocks:      make(map[string]BlockState),
		StereoLinks: make(map[string]bool),
	}
	for _, b := range arena.Blocks() {
		l.Blocks[b.RawName] = BlockState{X: b.X, Y: b.Y, W: b.W, H: b.H, Value: b.Value}
	}
	for _, g := range arena.Groups() {
		l.Groups = append(l.Groups, GroupState{
			MemberA:    g.A,
			MemberB:    g.B,
			Crossfader: g.Crossfader,
			Macro:      g.Macro,
			Linked:     g.Linked,
		})
	}
	for id, linked := range stereoLinks {
		l.StereoLinks[id] = linked
	}
	return l
}

// Save writes the layout to its file. Saving under the same name overwrites
// deterministically; a failed save leaves any previous file untouched.
func (s *LayoutStore) Save(l *Layout) error {
	if l.Name == "" {
		return fmt.Errorf("layout name is empty")
	}
	l.Version = LayoutVersion
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout '%s': %w", l.Name, err)
	}

	if err := writeFileAtomic(s.dir, layoutFileName(l.Name), data); err != nil {
		return fmt.Errorf("save layout '%s': %w", l.Name, err)
	}

	s.logger.Info("layout saved", "name", l.Name, "blocks", len(l.Blocks), "groups", len(l.Groups))
	return nil
}

// Load reads a layout and reconciles it against the live catalog and the
// given control values. Loading always produces a usable scene; omissions are
// reported in the result, not raised as errors.
func (s *LayoutStore) Load(name string, cat *Catalog, values map[string]int) (*ReconciledScene, error) {
	l, err := s.read(name)
	if err != nil {
		return nil, err
	}
	scene := s.reconcile(l, cat, values)

	if len(scene.Stale) > 0 {
		dropped := make([]string, 0, len(scene.Stale))
		for _, w := range scene.Stale {
			dropped = append(dropped, w.RawName)
		}
		s.logger.Warn("layout references stale controls", "name", name, "dropped", dropped)
	}
	if scene.VersionWarning != "" {
		s.logger.Warn("layout version unknown", "name", name, "detail", scene.VersionWarning)
	}
	return scene, nil
}

// read loads the raw layout file without reconciling it
func (s *LayoutStore) read(name string) (*Layout, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, layoutFileName(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("layout '%s': %w", name, ErrLayoutNotFound)
		}
		return nil, fmt.Errorf("read layout '%s': %w", name, err)
	}

	var l Layout
	// unknown fields are ignored, which is what makes best-effort loads of
	// newer versions possible
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layout '%s': %w", name, err)
	}
	return &l, nil
}

func (s *LayoutStore) reconcile(l *Layout, cat *Catalog, values map[string]int) *ReconciledScene {
	scene := &ReconciledScene{
		Layout:      l,
		Arena:       NewArena(s.snap),
		StereoLinks: make(map[string]bool),
	}
	if l.Version != LayoutVersion {
		scene.VersionWarning = fmt.Sprintf("version %d is not the supported %d; loaded best-effort", l.Version, LayoutVersion)
	}

	// restore recorded blocks that still resolve, in catalog order
	restored := make(map[string]bool)
	for _, raw := range cat.Names() {
		st, ok := l.Blocks[raw]
		if !ok {
			continue
		}
		scene.Arena.AddBlock(Block{
			RawName:  raw,
			X:        st.X,
			Y:        st.Y,
			W:        st.W,
			H:        st.H,
			Value:    clampLevel(st.Value),
			HasFader: hasFader(raw),
		})
		restored[raw] = true
	}

	// recorded blocks the live catalog no longer has
	var missing []string
	for raw := range l.Blocks {
		if !restored[raw] {
			missing = append(missing, raw)
		}
	}
	for _, raw := range sortedNames(missing) {
		scene.Stale = append(scene.Stale, StaleReferenceWarning{
			RawName: raw,
			Detail:  "control not present on device; block dropped",
		})
	}

	// restore groups whose members both survived; a group with a missing
	// member dissolves and the survivor reverts to ungrouped
	for _, gs := range l.Groups {
		if !restored[gs.MemberA] || !restored[gs.MemberB] {
			stale := gs.MemberA
			if restored[gs.MemberA] {
				stale = gs.MemberB
			}
			scene.Stale = append(scene.Stale, StaleReferenceWarning{
				RawName: stale,
				Detail:  fmt.Sprintf("group %s/%s dissolved; member missing", gs.MemberA, gs.MemberB),
			})
			continue
		}
		g, err := scene.Arena.GroupBlocks(gs.MemberA, gs.MemberB)
		if err != nil {
			// overlapping membership records in the file; keep the first
			scene.Stale = append(scene.Stale, StaleReferenceWarning{
				RawName: gs.MemberA,
				Detail:  fmt.Sprintf("group %s/%s skipped: %v", gs.MemberA, gs.MemberB, err),
			})
			continue
		}
		g.Crossfader = clampLevel(gs.Crossfader)
		g.Macro = clampLevel(gs.Macro)
		g.Linked = gs.Linked
	}

	// stereo links survive only while both sides of the pair still exist
	for id, linked := range l.StereoLinks {
		left, right, ok := strings.Cut(id, "|")
		if !ok {
			continue
		}
		if _, lok := cat.Lookup(left); !lok {
			continue
		}
		if _, rok := cat.Lookup(right); !rok {
			continue
		}
		scene.StereoLinks[id] = linked
	}

	// live controls the layout never saw get deterministic fallback
	// placement rather than being hidden
	var added []string
	for _, raw := range cat.Names() {
		if !restored[raw] {
			added = append(added, raw)
		}
	}
	s.grid.PlaceBelow(scene.Arena, added, values)
	scene.Added = added

	return scene
}

// List returns the names of all stored layouts in lexical order
func (s *LayoutStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list layouts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		// prefer the display name recorded in the file
		if data, err := os.ReadFile(filepath.Join(s.dir, entry.Name())); err == nil {
			var l Layout
			if json.Unmarshal(data, &l) == nil && l.Name != "" {
				name = l.Name
			}
		}
		names = append(names, name)
	}
	return sortedNames(names), nil
}

// Delete removes a stored layout
func (s *LayoutStore) Delete(name string) error {
	err := os.Remove(filepath.Join(s.dir, layoutFileName(name)))
	if os.IsNotExist(err) {
		return fmt.Errorf("layout '%s': %w", name, ErrLayoutNotFound)
	}
	return err
}

// layoutFileName derives the on-disk file name from a layout name
func layoutFileName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_")) + ".json"
}

// writeFileAtomic writes data to dir/name through a temporary file and an
// atomic rename, cleaning up the temporary on every failure path
func writeFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return err
	}
	committed = true
	return nil
}
