package patchctl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHardwareEnumerateSorted(t *testing.T) {
	hw := NewMemoryHardware(map[string]int{
		"PCM-AN2-AN2": 1,
		"Mic-AN1-AN1": 2,
		"PCM-AN1-AN1": 3,
	})

	names, err := hw.Enumerate()
	require.NoError(t, err)
	assert.Equal(t, []string{"Mic-AN1-AN1", "PCM-AN1-AN1", "PCM-AN2-AN2"}, names)
}

func TestMemoryHardwareWriteClampsAndValidates(t *testing.T) {
	hw := NewMemoryHardware(map[string]int{"PCM-AN1-AN1": 50})

	require.NoError(t, hw.Write("PCM-AN1-AN1", 150))
	values, _ := hw.ReadAll()
	assert.Equal(t, 100, values["PCM-AN1-AN1"])

	err := hw.Write("nope", 10)
	var hwErr *HardwareError
	require.ErrorAs(t, err, &hwErr)
	assert.Equal(t, "nope", hwErr.Control)
}

func TestMemoryHardwareReadAllIsSnapshot(t *testing.T) {
	hw := NewMemoryHardware(map[string]int{"PCM-AN1-AN1": 50})

	snapshot, err := hw.ReadAll()
	require.NoError(t, err)
	require.NoError(t, hw.Write("PCM-AN1-AN1", 10))

	assert.Equal(t, 50, snapshot["PCM-AN1-AN1"])
}

func TestMemoryHardwareFailWrites(t *testing.T) {
	hw := NewMemoryHardware(map[string]int{"PCM-AN1-AN1": 50})
	boom := errors.New("device busy")
	hw.FailWrites("PCM-AN1-AN1", boom)

	err := hw.Write("PCM-AN1-AN1", 10)
	assert.ErrorIs(t, err, boom)

	// the value is untouched after a failed write
	values, _ := hw.ReadAll()
	assert.Equal(t, 50, values["PCM-AN1-AN1"])
}

func TestMemoryHardwareChangeNotification(t *testing.T) {
	hw := NewMemoryHardware(map[string]int{"PCM-AN1-AN1": 50})

	fired := 0
	cancel, err := hw.Subscribe(func() { fired++ })
	require.NoError(t, err)

	hw.SetControls(map[string]int{"PCM-AN1-AN1": 50, "PCM-AN2-AN2": 50})
	assert.Equal(t, 1, fired)

	// the new control set is visible to a rebuild
	names, _ := hw.Enumerate()
	assert.Len(t, names, 2)

	cancel()
	hw.SetControls(map[string]int{"PCM-AN1-AN1": 50})
	assert.Equal(t, 1, fired)
}
