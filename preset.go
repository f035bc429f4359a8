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

// PresetVersion is the persisted preset format version this build writes
const PresetVersion = 2

// ErrPresetNotFound is returned when no file exists for a preset name
var ErrPresetNotFound = errors.New("patchctl: preset not found")

// Preset is a full device snapshot: every control value, plus logical views
// extracted from the snapshot the way a console stores scenes. The views are
// derived on capture; Controls is the authoritative record.
type Preset struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`

	// Controls is the complete raw-name -> value snapshot
	Controls map[string]int `json:"controls"`

	MainLevels       map[string]int            `json:"main_levels"`
	InputGains       map[string]int            `json:"input_gains"`
	HardwareSettings map[string]int            `json:"hardware_settings"`
	RoutingMatrix    map[string]map[string]int `json:"routing_matrix"`
}

// hardwareSettingKeywords marks controls captured into the hardware-settings
// view: digital format, phantom power, pad, clocking
var hardwareSettingKeywords = []string{"48V", "PAD", "IEC958", "Sample Clock"}

// CapturePreset snapshots the device into a named preset
func CapturePreset(name, description string, hw Hardware) (*Preset, error) {
	values, err := hw.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("capture preset '%s': %w", name, err)
	}

	p := &Preset{
		Name:             name,
		Description:      description,
		Version:          PresetVersion,
		Controls:         values,
		MainLevels:       make(map[string]int),
		InputGains:       make(map[string]int),
		HardwareSettings: make(map[string]int),
		RoutingMatrix:    make(map[string]map[string]int),
	}

	for raw, value := range values {
		if strings.HasPrefix(raw, "Main-Out ") {
			p.MainLevels[raw] = value
		}
		if strings.Contains(raw, "Gain") &&
			(strings.Contains(raw, "Mic-") || strings.Contains(raw, "Line-")) {
			p.InputGains[raw] = value
		}
		for _, kw := range hardwareSettingKeywords {
			if strings.Contains(raw, kw) {
				p.HardwareSettings[raw] = value
				break
			}
		}
		if path, ok := Decode(raw).(RoutingPath); ok && path.Kind != KindMainOut && path.Kind != KindOther {
			key := path.Kind.String() + "-" + path.Source
			if p.RoutingMatrix[key] == nil {
				p.RoutingMatrix[key] = make(map[string]int)
			}
			p.RoutingMatrix[key][path.Destination] = value
		}
	}

	return p, nil
}

// ApplyReport summarises a preset application. Individual control failures
// never abort the apply; they are collected here.
type ApplyReport struct {
	Applied int
	Failed  map[string]error
}

func (r *ApplyReport) failedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for raw := range r.Failed {
		names = append(names, raw)
	}
	return sortedNames(names)
}

func (r *ApplyReport) String() string {
	if len(r.Failed) == 0 {
		return fmt.Sprintf("%d controls applied", r.Applied)
	}
	return fmt.Sprintf("%d controls applied, %d failed (%s)",
		r.Applied, len(r.Failed), strings.Join(r.failedNames(), ", "))
}

// ApplyPreset writes every control value in the preset to the device,
// skipping controls the device no longer exposes
func ApplyPreset(p *Preset, hw Hardware) (*ApplyReport, error) {
	live, err := hw.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("apply preset '%s': %w", p.Name, err)
	}

	report := &ApplyReport{Failed: make(map[string]error)}
	for _, raw := range sortedNames(mapKeys(p.Controls)) {
		if _, ok := live[raw]; !ok {
			continue
		}
		if err := hw.Write(raw, p.Controls[raw]); err != nil {
			report.Failed[raw] = err
			continue
		}
		report.Applied++
	}
	return report, nil
}

// PresetStore saves and loads presets as JSON files in a dedicated
// directory, with the same atomic-write discipline as layouts
type PresetStore struct {
	dir    string
	logger *slog.Logger
}

func NewPresetStore(dir string, logger *slog.Logger) *PresetStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PresetStore{dir: dir, logger: logger}
}

func (s *PresetStore) Save(p *Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset name is empty")
	}
	p.Version = PresetVersion
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preset '%s': %w", p.Name, err)
	}
	if err := writeFileAtomic(s.dir, presetFileName(p.Name), data); err != nil {
		return fmt.Errorf("save preset '%s': %w", p.Name, err)
	}

	s.logger.Info("preset saved", "name", p.Name, "controls", len(p.Controls))
	return nil
}

func (s *PresetStore) Load(name string) (*Preset, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, presetFileName(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("preset '%s': %w", name, ErrPresetNotFound)
		}
		return nil, fmt.Errorf("read preset '%s': %w", name, err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode preset '%s': %w", name, err)
	}
	if p.Version != PresetVersion {
		s.logger.Warn("preset version unknown, loading best-effort", "name", name, "version", p.Version)
	}
	return &p, nil
}

func (s *PresetStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list presets: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return sortedNames(names), nil
}

func (s *PresetStore) Delete(name string) error {
	err := os.Remove(filepath.Join(s.dir, presetFileName(name)))
	if os.IsNotExist(err) {
		return fmt.Errorf("preset '%s': %w", name, ErrPresetNotFound)
	}
	return err
}

func presetFileName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_")) + ".json"
}

func mapKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
