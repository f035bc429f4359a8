package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(m *model, keys string) {
	for _, r := range keys {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestMuteKeyTogglesSelectedChannel(t *testing.T) {
	hw := DemoHardware()
	m, err := newModel(hw)
	require.NoError(t, err)

	name := m.rows()[0]
	require.Equal(t, "Mic-AN1-AN1", name)

	// raise the channel so the restore is observable
	press(m, "+")
	values, _ := hw.ReadAll()
	require.Equal(t, 5, values[name])

	press(m, "m")
	assert.True(t, m.mutes.IsMuted(name))
	values, _ = hw.ReadAll()
	assert.Equal(t, 0, values[name])
	assert.Equal(t, 0, m.values[name])

	press(m, "m")
	assert.False(t, m.mutes.IsMuted(name))
	values, _ = hw.ReadAll()
	assert.Equal(t, 5, values[name])
}

func TestSoloKeySilencesOtherChannels(t *testing.T) {
	hw := DemoHardware()
	m, err := newModel(hw)
	require.NoError(t, err)

	press(m, "s")
	assert.True(t, m.mutes.IsSoloed("Mic-AN1-AN1"))

	values, _ := hw.ReadAll()
	assert.Equal(t, 0, values["PCM-AN1-AN1"])
	assert.Equal(t, 0, values["Main-Out AN1"])
	// hardware settings keep their values, only fader channels are muted
	assert.Equal(t, 30, values["Mic-AN1 Gain"])

	press(m, "s")
	assert.False(t, m.mutes.IsSoloed("Mic-AN1-AN1"))
	values, _ = hw.ReadAll()
	assert.Equal(t, 80, values["PCM-AN1-AN1"])
	assert.Equal(t, 70, values["Main-Out AN1"])
}

func TestLinkKeyMirrorsAdjustToPartner(t *testing.T) {
	hw := DemoHardware()
	m, err := newModel(hw)
	require.NoError(t, err)

	press(m, "L")
	id, ok := m.links.PairID("Mic-AN1-AN1")
	require.True(t, ok)
	require.True(t, m.links.Linked(id))

	press(m, "+")
	values, _ := hw.ReadAll()
	assert.Equal(t, 5, values["Mic-AN1-AN1"])
	assert.Equal(t, 5, values["Mic-AN2-AN2"])
	assert.Equal(t, 5, m.values["Mic-AN2-AN2"])

	// unlinking stops the mirroring
	press(m, "L")
	press(m, "+")
	values, _ = hw.ReadAll()
	assert.Equal(t, 10, values["Mic-AN1-AN1"])
	assert.Equal(t, 5, values["Mic-AN2-AN2"])
}
