package patchctl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LayoutStore {
	t.Helper()
	return NewLayoutStore(t.TempDir(), DefaultSnapConfig(), DefaultFallbackGrid(), nil)
}

func TestLayoutRoundTrip(t *testing.T) {
	store := newTestStore(t)

	arena := newTestArena()
	arena.AddBlock(Block{RawName: "PCM-AN1-AN1", X: 10, Y: 20, W: 120, H: 120, Value: 75, HasFader: true})
	arena.AddBlock(Block{RawName: "PCM-AN2-AN2", X: 130, Y: 20, W: 120, H: 120, Value: 75, HasFader: true})
	g, err := arena.GroupBlocks("PCM-AN1-AN1", "PCM-AN2-AN2")
	require.NoError(t, err)

	layout := Capture("Studio A", "tracking setup", arena, map[string]bool{"PCM-AN1-AN1|PCM-AN2-AN2": true})
	require.NoError(t, store.Save(layout))

	cat := buildTestCatalog(t, []string{"PCM-AN1-AN1", "PCM-AN2-AN2"})
	scene, err := store.Load("Studio A", cat, nil)
	require.NoError(t, err)

	assert.Empty(t, scene.Stale)
	assert.Empty(t, scene.Added)
	assert.Empty(t, scene.VersionWarning)

	block, ok := scene.Arena.Block("PCM-AN1-AN1")
	require.True(t, ok)
	assert.Equal(t, 10.0, block.X)
	assert.Equal(t, 20.0, block.Y)
	assert.Equal(t, 75, block.Value)

	restored, ok := scene.Arena.GroupOf("PCM-AN1-AN1")
	require.True(t, ok)
	assert.Equal(t, g.Crossfader, restored.Crossfader)
	assert.Equal(t, g.Macro, restored.Macro)
	assert.True(t, restored.Linked)

	assert.Equal(t, map[string]bool{"PCM-AN1-AN1|PCM-AN2-AN2": true}, scene.StereoLinks)
}

func TestLayoutFileNameSlugged(t *testing.T) {
	store := newTestStore(t)

	arena := newTestArena()
	arena.AddBlock(Block{RawName: "PCM-AN1-AN1", W: 120, H: 120, HasFader: true})
	layout := Capture("My Studio Layout", "", arena, nil)
	require.NoError(t, store.Save(layout))

	_, err := os.Stat(filepath.Join(store.dir, "my_studio_layout.json"))
	assert.NoError(t, err)
}

func TestLayoutSaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	arena := newTestArena()
	arena.AddBlock(Block{RawName: "PCM-AN1-AN1", X: 1, W: 120, H: 120, HasFader: true})
	require.NoError(t, store.Save(Capture("Main", "", arena, nil)))

	require.NoError(t, arena.Move("PCM-AN1-AN1", 99, 0))
	require.NoError(t, store.Save(Capture("Main", "", arena, nil)))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"Main"}, names)

	cat := buildTestCatalog(t, []string{"PCM-AN1-AN1"})
	scene, err := store.Load("Main", cat, nil)
	require.NoError(t, err)
	block, _ := scene.Arena.Block("PCM-AN1-AN1")
	assert.Equal(t, 99.0, block.X)
}

func TestLayoutLoadMissing(t *testing.T) {
	store := newTestStore(t)
	cat := buildTestCatalog(t, nil)

	_, err := store.Load("nope", cat, nil)
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestReconcileDropsStaleAndDissolvesGroup(t *testing.T) {
	store := newTestStore(t)

	arena := newTestArena()
	arena.AddBlock(Block{RawName: "Mic-AN1-AN1", X: 0, Y: 0, W: 120, H: 120, Value: 70, HasFader: true})
	arena.AddBlock(Block{RawName: "Mic-AN2-AN2", X: 120, Y: 0, W: 120, H: 120, Value: 70, HasFader: true})
	_, err := arena.GroupBlocks("Mic-AN1-AN1", "Mic-AN2-AN2")
	require.NoError(t, err)

	require.NoError(t, store.Save(Capture("Session", "", arena, nil)))

	// the device comes back without the second mic path
	cat := buildTestCatalog(t, []string{"Mic-AN1-AN1"})
	scene, err := store.Load("Session", cat, nil)
	require.NoError(t, err)

	require.Len(t, scene.Stale, 2)
	assert.Equal(t, "Mic-AN2-AN2", scene.Stale[0].RawName)

	// the survivor keeps its block but reverts to ungrouped
	_, ok := scene.Arena.Block("Mic-AN1-AN1")
	assert.True(t, ok)
	_, ok = scene.Arena.Block("Mic-AN2-AN2")
	assert.False(t, ok)
	_, ok = scene.Arena.GroupOf("Mic-AN1-AN1")
	assert.False(t, ok)
	assert.Empty(t, scene.Arena.Groups())
}

func TestReconcilePlacesNewControls(t *testing.T) {
	store := newTestStore(t)

	arena := newTestArena()
	arena.AddBlock(Block{RawName: "PCM-AN1-AN1", X: 10, Y: 10, W: 120, H: 120, HasFader: true})
	require.NoError(t, store.Save(Capture("Base", "", arena, nil)))

	cat := buildTestCatalog(t, []string{"PCM-AN1-AN1", "PCM-AN2-AN2", "Line-IN3-AN1"})
	values := map[string]int{"PCM-AN2-AN2": 33}
	scene, err := store.Load("Base", cat, values)
	require.NoError(t, err)

	// new controls are appended in catalog order below existing blocks
	assert.Equal(t, []string{"PCM-AN2-AN2", "Line-IN3-AN1"}, scene.Added)

	added, ok := scene.Arena.Block("PCM-AN2-AN2")
	require.True(t, ok)
	assert.Equal(t, 33, added.Value)
	restored, _ := scene.Arena.Block("PCM-AN1-AN1")
	assert.Greater(t, added.Y, restored.Y)
}

func TestReconcileDropsStereoLinksWithMissingSides(t *testing.T) {
	store := newTestStore(t)

	arena := newTestArena()
	arena.AddBlock(Block{RawName: "PCM-AN1-AN1", W: 120, H: 120, HasFader: true})
	arena.AddBlock(Block{RawName: "PCM-AN2-AN2", X: 120, W: 120, H: 120, HasFader: true})
	links := map[string]bool{
		"PCM-AN1-AN1|PCM-AN2-AN2": true,
		"PCM-PH3-PH3|PCM-PH4-PH4": true,
	}
	require.NoError(t, store.Save(Capture("Links", "", arena, links)))

	cat := buildTestCatalog(t, []string{"PCM-AN1-AN1", "PCM-AN2-AN2"})
	scene, err := store.Load("Links", cat, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"PCM-AN1-AN1|PCM-AN2-AN2": true}, scene.StereoLinks)
}

func TestReconcileUnknownVersionBestEffort(t *testing.T) {
	store := newTestStore(t)

	data := []byte(`{
		"name": "Future",
		"version": 99,
		"created_at": "2031-01-01T00:00:00Z",
		"blocks": {"PCM-AN1-AN1": {"x": 5, "y": 6, "w": 120, "h": 120, "value": 40}},
		"some_future_field": {"nested": true}
	}`)
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "future.json"), data, 0o644))

	cat := buildTestCatalog(t, []string{"PCM-AN1-AN1"})
	scene, err := store.Load("Future", cat, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, scene.VersionWarning)
	block, ok := scene.Arena.Block("PCM-AN1-AN1")
	require.True(t, ok)
	assert.Equal(t, 40, block.Value)
}

func TestReconcileClampsPersistedValues(t *testing.T) {
	store := newTestStore(t)

	// a hand-edited file can carry levels outside the fader range
	data := []byte(`{
		"name": "Edited",
		"version": 1,
		"blocks": {
			"PCM-AN1-AN1": {"x": 0, "y": 0, "w": 120, "h": 120, "value": -10},
			"PCM-AN2-AN2": {"x": 130, "y": 0, "w": 120, "h": 120, "value": 250}
		}
	}`)
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "edited.json"), data, 0o644))

	cat := buildTestCatalog(t, []string{"PCM-AN1-AN1", "PCM-AN2-AN2"})
	scene, err := store.Load("Edited", cat, nil)
	require.NoError(t, err)

	low, ok := scene.Arena.Block("PCM-AN1-AN1")
	require.True(t, ok)
	assert.Equal(t, 0, low.Value)
	high, ok := scene.Arena.Block("PCM-AN2-AN2")
	require.True(t, ok)
	assert.Equal(t, 100, high.Value)
}

func TestLayoutListAndDelete(t *testing.T) {
	store := newTestStore(t)
	arena := newTestArena()

	require.NoError(t, store.Save(Capture("bravo", "", arena, nil)))
	require.NoError(t, store.Save(Capture("alpha", "", arena, nil)))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, names)

	require.NoError(t, store.Delete("bravo"))
	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, names)

	assert.ErrorIs(t, store.Delete("bravo"), ErrLayoutNotFound)
}

func TestLayoutListEmptyDir(t *testing.T) {
	store := NewLayoutStore(filepath.Join(t.TempDir(), "missing"), DefaultSnapConfig(), DefaultFallbackGrid(), nil)
	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
