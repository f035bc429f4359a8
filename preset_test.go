package patchctl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPresetHardware() *MemoryHardware {
	return NewMemoryHardware(map[string]int{
		"PCM-AN1-AN1":         80,
		"PCM-AN2-AN2":         80,
		"Line-IN3-AN1":        40,
		"Mic-AN1-AN1":         55,
		"Main-Out AN1":        70,
		"Main-Out AN2":        70,
		"Mic-AN1 Gain":        30,
		"Mic-AN2 Gain":        25,
		"Line-IN3 PAD":        0,
		"Mic-AN1 48V":         1,
		"IEC958 Emphasis":     0,
		"Sample Clock Source": 0,
	})
}

func TestCapturePresetViews(t *testing.T) {
	hw := testPresetHardware()
	p, err := CapturePreset("tracking", "vocal chain", hw)
	require.NoError(t, err)

	assert.Equal(t, "tracking", p.Name)
	assert.Equal(t, "vocal chain", p.Description)
	assert.Len(t, p.Controls, 12)

	assert.Equal(t, map[string]int{
		"Main-Out AN1": 70,
		"Main-Out AN2": 70,
	}, p.MainLevels)

	assert.Equal(t, map[string]int{
		"Mic-AN1 Gain": 30,
		"Mic-AN2 Gain": 25,
	}, p.InputGains)

	assert.Equal(t, map[string]int{
		"Line-IN3 PAD":        0,
		"Mic-AN1 48V":         1,
		"IEC958 Emphasis":     0,
		"Sample Clock Source": 0,
	}, p.HardwareSettings)

	require.Contains(t, p.RoutingMatrix, "PCM-AN1")
	assert.Equal(t, 80, p.RoutingMatrix["PCM-AN1"]["AN1"])
	require.Contains(t, p.RoutingMatrix, "Line-IN3")
	assert.Equal(t, 40, p.RoutingMatrix["Line-IN3"]["AN1"])
	// masters are a separate view, not routing entries
	assert.NotContains(t, p.RoutingMatrix, "MainOut-AN1")
}

func TestApplyPreset(t *testing.T) {
	hw := testPresetHardware()
	p, err := CapturePreset("snapshot", "", hw)
	require.NoError(t, err)

	// drift the device, then re-apply
	require.NoError(t, hw.Write("PCM-AN1-AN1", 10))
	require.NoError(t, hw.Write("Main-Out AN1", 0))

	report, err := ApplyPreset(p, hw)
	require.NoError(t, err)
	assert.Equal(t, 12, report.Applied)
	assert.Empty(t, report.Failed)

	values, _ := hw.ReadAll()
	assert.Equal(t, 80, values["PCM-AN1-AN1"])
	assert.Equal(t, 70, values["Main-Out AN1"])
}

func TestApplyPresetSkipsVanishedControls(t *testing.T) {
	hw := testPresetHardware()
	p, err := CapturePreset("snapshot", "", hw)
	require.NoError(t, err)

	values, _ := hw.ReadAll()
	delete(values, "Mic-AN1-AN1")
	shrunk := NewMemoryHardware(values)

	report, err := ApplyPreset(p, shrunk)
	require.NoError(t, err)
	assert.Equal(t, 11, report.Applied)
	assert.Empty(t, report.Failed)
}

func TestApplyPresetCollectsFailures(t *testing.T) {
	hw := testPresetHardware()
	p, err := CapturePreset("snapshot", "", hw)
	require.NoError(t, err)

	boom := errors.New("device busy")
	hw.FailWrites("PCM-AN1-AN1", boom)
	hw.FailWrites("PCM-AN2-AN2", boom)

	report, err := ApplyPreset(p, hw)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Applied)
	require.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed["PCM-AN1-AN1"], boom)
	assert.Contains(t, report.String(), "2 failed")
}

func TestPresetStoreRoundTrip(t *testing.T) {
	store := NewPresetStore(t.TempDir(), nil)
	hw := testPresetHardware()

	p, err := CapturePreset("My Session", "", hw)
	require.NoError(t, err)
	require.NoError(t, store.Save(p))

	loaded, err := store.Load("My Session")
	require.NoError(t, err)
	assert.Equal(t, p.Controls, loaded.Controls)
	assert.Equal(t, p.MainLevels, loaded.MainLevels)
	assert.Equal(t, PresetVersion, loaded.Version)
	assert.False(t, loaded.CreatedAt.IsZero())

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"my_session"}, names)

	require.NoError(t, store.Delete("My Session"))
	_, err = store.Load("My Session")
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestPresetStoreRejectsEmptyName(t *testing.T) {
	store := NewPresetStore(t.TempDir(), nil)
	err := store.Save(&Preset{})
	assert.Error(t, err)
}
