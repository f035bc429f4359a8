package patchctl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinkFixture(t *testing.T) (*MemoryHardware, *LinkSet) {
	t.Helper()
	names := babyfaceNames()
	values := make(map[string]int, len(names))
	for _, raw := range names {
		values[raw] = 50
	}
	hw := NewMemoryHardware(values)
	return hw, NewLinkSet(buildTestCatalog(t, names))
}

func TestLinkSetStartsUnlinked(t *testing.T) {
	_, links := newLinkFixture(t)

	assert.False(t, links.Linked("Mic-AN1-AN1|Mic-AN2-AN2"))
	_, linked := links.Partner("Mic-AN1-AN1")
	assert.False(t, linked)
}

func TestLinkSetPairID(t *testing.T) {
	_, links := newLinkFixture(t)

	id, ok := links.PairID("Mic-AN2-AN2")
	require.True(t, ok)
	assert.Equal(t, "Mic-AN1-AN1|Mic-AN2-AN2", id)

	_, ok = links.PairID("Main-Out AN1")
	assert.False(t, ok)
}

func TestLinkSetRejectsUnknownPair(t *testing.T) {
	_, links := newLinkFixture(t)
	assert.Error(t, links.SetLinked("no|pair", true))
}

func TestLinkedWriteMirrorsBothDirections(t *testing.T) {
	hw, links := newLinkFixture(t)
	require.NoError(t, links.SetLinked("Mic-AN1-AN1|Mic-AN2-AN2", true))

	require.NoError(t, links.Write(hw, "Mic-AN1-AN1", 80))
	values, _ := hw.ReadAll()
	assert.Equal(t, 80, values["Mic-AN1-AN1"])
	assert.Equal(t, 80, values["Mic-AN2-AN2"])

	// writing through the right member mirrors back to the left
	require.NoError(t, links.Write(hw, "Mic-AN2-AN2", 20))
	values, _ = hw.ReadAll()
	assert.Equal(t, 20, values["Mic-AN1-AN1"])
	assert.Equal(t, 20, values["Mic-AN2-AN2"])
}

func TestUnlinkedWriteDoesNotMirror(t *testing.T) {
	hw, links := newLinkFixture(t)

	require.NoError(t, links.Write(hw, "Mic-AN1-AN1", 80))
	values, _ := hw.ReadAll()
	assert.Equal(t, 80, values["Mic-AN1-AN1"])
	assert.Equal(t, 50, values["Mic-AN2-AN2"])
}

func TestLinkedWriteMirrorFailureSurfaced(t *testing.T) {
	hw, links := newLinkFixture(t)
	require.NoError(t, links.SetLinked("Mic-AN1-AN1|Mic-AN2-AN2", true))

	boom := errors.New("device busy")
	hw.FailWrites("Mic-AN2-AN2", boom)

	err := links.Write(hw, "Mic-AN1-AN1", 80)
	assert.ErrorIs(t, err, boom)

	// the primary write stands even when the mirror fails
	values, _ := hw.ReadAll()
	assert.Equal(t, 80, values["Mic-AN1-AN1"])
	assert.Equal(t, 50, values["Mic-AN2-AN2"])
}

func TestLinkSetRestoreAndState(t *testing.T) {
	_, links := newLinkFixture(t)

	links.Restore(map[string]bool{
		"Mic-AN1-AN1|Mic-AN2-AN2": true,
		"gone|pair":               true,
	})

	assert.True(t, links.Linked("Mic-AN1-AN1|Mic-AN2-AN2"))
	state := links.State()
	assert.True(t, state["Mic-AN1-AN1|Mic-AN2-AN2"])
	assert.NotContains(t, state, "gone|pair")
}

func TestLinkWriteOutsideAnyPair(t *testing.T) {
	hw, links := newLinkFixture(t)

	// masters belong to no stereo pair; the write passes straight through
	require.NoError(t, links.Write(hw, "Main-Out AN1", 60))
	values, _ := hw.ReadAll()
	assert.Equal(t, 60, values["Main-Out AN1"])
}
