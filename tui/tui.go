// Package tui provides an interactive terminal patchbay browser: output
// pairs as tabs, channels as fader strips.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mgriffin/patchctl"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("244"))
	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))
	channelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
	selectedChannelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15"))
	masterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
)

type keyMap struct {
	PrevTab key.Binding
	NextTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Louder  key.Binding
	Quieter key.Binding
	Mute    key.Binding
	Solo    key.Binding
	Link    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevTab, k.NextTab, k.Up, k.Down, k.Louder, k.Quieter, k.Mute, k.Solo, k.Link, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	PrevTab: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev tab")),
	NextTab: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next tab")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev channel")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next channel")),
	Louder:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
	Quieter: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "quieter")),
	Mute:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
	Solo:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "solo")),
	Link:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "stereo link")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type model struct {
	hw     patchctl.Hardware
	tabs   []patchctl.OutputTab
	values map[string]int
	mutes  *patchctl.MuteEngine
	links  *patchctl.LinkSet

	tab      int
	selected int
	status   string
	width    int
	help     help.Model
}

type refreshMsg struct {
	values map[string]int
	err    error
}

func newModel(hw patchctl.Hardware) (*model, error) {
	names, err := hw.Enumerate()
	if err != nil {
		return nil, err
	}
	cat, err := patchctl.BuildCatalog(names)
	if err != nil {
		return nil, err
	}

	tabs := patchctl.Tabs(cat)
	if len(tabs) == 0 {
		return nil, fmt.Errorf("no output pairs found on device")
	}

	values, err := hw.ReadAll()
	if err != nil {
		return nil, err
	}

	return &model{
		hw:     hw,
		tabs:   tabs,
		values: values,
		mutes:  patchctl.NewMuteEngine(hw),
		links:  patchctl.NewLinkSet(cat),
		help:   help.New(),
	}, nil
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) refresh() tea.Cmd {
	return func() tea.Msg {
		values, err := m.hw.ReadAll()
		return refreshMsg{values: values, err: err}
	}
}

// rows returns the channel names in the active tab, masters last
func (m *model) rows() []string {
	tab := m.tabs[m.tab]
	rows := make([]string, 0, len(tab.Paths)+len(tab.Masters))
	for _, path := range tab.Paths {
		rows = append(rows, path.RawName)
	}
	for _, master := range tab.Masters {
		rows = append(rows, master.RawName)
	}
	return rows
}

// selectedName returns the raw name of the highlighted channel
func (m *model) selectedName() (string, bool) {
	rows := m.rows()
	if m.selected >= len(rows) {
		return "", false
	}
	return rows[m.selected], true
}

// reload re-reads every control value; mute and solo touch many channels at
// once
func (m *model) reload() {
	values, err := m.hw.ReadAll()
	if err != nil {
		m.status = fmt.Sprintf("refresh failed: %v", err)
		return
	}
	m.values = values
}

func (m *model) adjust(delta int) tea.Cmd {
	name, ok := m.selectedName()
	if !ok {
		return nil
	}
	value := m.values[name] + delta
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	// linked pairs mirror the write to the partner channel
	if err := m.links.Write(m.hw, name, value); err != nil {
		m.status = fmt.Sprintf("write failed: %v", err)
		return nil
	}
	m.values[name] = value
	if partner, linked := m.links.Partner(name); linked {
		m.values[partner] = value
		m.status = fmt.Sprintf("%s = %s = %d", name, partner, value)
		return nil
	}
	m.status = fmt.Sprintf("%s = %d", name, value)
	return nil
}

func (m *model) toggleMute() {
	name, ok := m.selectedName()
	if !ok {
		return
	}
	if m.mutes.IsMuted(name) {
		if err := m.mutes.Unmute(name); err != nil {
			m.status = fmt.Sprintf("unmute failed: %v", err)
			return
		}
		m.status = fmt.Sprintf("unmuted %s", name)
	} else {
		if err := m.mutes.Mute(name); err != nil {
			m.status = fmt.Sprintf("mute failed: %v", err)
			return
		}
		m.status = fmt.Sprintf("muted %s", name)
	}
	m.reload()
}

func (m *model) toggleSolo() {
	name, ok := m.selectedName()
	if !ok {
		return
	}
	if m.mutes.IsSoloed(name) {
		if err := m.mutes.Unsolo(name); err != nil {
			m.status = fmt.Sprintf("unsolo failed: %v", err)
			return
		}
		m.status = fmt.Sprintf("unsoloed %s", name)
	} else {
		if err := m.mutes.Solo(name); err != nil {
			m.status = fmt.Sprintf("solo failed: %v", err)
			return
		}
		m.status = fmt.Sprintf("soloed %s", name)
	}
	m.reload()
}

func (m *model) toggleLink() {
	name, ok := m.selectedName()
	if !ok {
		return
	}
	id, ok := m.links.PairID(name)
	if !ok {
		m.status = fmt.Sprintf("%s has no stereo pair", name)
		return
	}
	next := !m.links.Linked(id)
	if err := m.links.SetLinked(id, next); err != nil {
		m.status = fmt.Sprintf("link failed: %v", err)
		return
	}
	if next {
		m.status = fmt.Sprintf("linked %s", id)
	} else {
		m.status = fmt.Sprintf("unlinked %s", id)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case refreshMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("refresh failed: %v", msg.err)
			break
		}
		m.values = msg.values
		m.status = "refreshed"

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.PrevTab):
			m.tab = (m.tab + len(m.tabs) - 1) % len(m.tabs)
			m.selected = 0
		case key.Matches(msg, keys.NextTab):
			m.tab = (m.tab + 1) % len(m.tabs)
			m.selected = 0
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.rows())-1 {
				m.selected++
			}
		case key.Matches(msg, keys.Louder):
			return m, m.adjust(5)
		case key.Matches(msg, keys.Quieter):
			return m, m.adjust(-5)
		case key.Matches(msg, keys.Mute):
			m.toggleMute()
		case key.Matches(msg, keys.Solo):
			m.toggleSolo()
		case key.Matches(msg, keys.Link):
			m.toggleLink()
		case key.Matches(msg, keys.Refresh):
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m *model) View() string {
	var tabBar string
	for i, tab := range m.tabs {
		style := tabStyle
		if i == m.tab {
			style = activeTabStyle
		}
		tabBar = lipgloss.JoinHorizontal(lipgloss.Top, tabBar, style.Render(tab.Name()))
	}

	tab := m.tabs[m.tab]
	masterCount := len(tab.Masters)
	rows := m.rows()

	var body string
	for i, name := range rows {
		style := channelStyle
		if i >= len(rows)-masterCount {
			style = masterStyle
		}
		prefix := "  "
		if i == m.selected {
			style = selectedChannelStyle
			prefix = "> "
		}

		value := m.values[name]
		line := fmt.Sprintf("%s%-28s %s %3d%s", prefix, name, fader(value), value, m.flags(name))
		body += style.Render(line) + "\n"
	}

	status := m.status
	if status == "" {
		status = fmt.Sprintf("%d channels", len(rows))
	}

	return tabBar + "\n\n" + body + "\n" + statusStyle.Render(status) + "\n" + m.help.View(keys)
}

// flags marks a channel's mute, solo, and stereo-link state
func (m *model) flags(name string) string {
	out := ""
	if m.mutes.IsSoloed(name) {
		out += " S"
	} else if m.mutes.IsMuted(name) {
		out += " M"
	}
	if id, ok := m.links.PairID(name); ok && m.links.Linked(id) {
		out += " L"
	}
	return out
}

// fader renders a 20-step horizontal level bar
func fader(value int) string {
	const width = 20
	filled := value * width / 100
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// Run starts the interactive browser against the given device
func Run(hw patchctl.Hardware) error {
	m, err := newModel(hw)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// DemoHardware builds an in-memory device with the Babyface Pro FS control
// surface, for trying the browser without hardware attached
func DemoHardware() patchctl.Hardware {
	outputs := []string{"AN1", "AN2", "PH3", "PH4", "AS1", "AS2", "ADAT3", "ADAT4", "ADAT5", "ADAT6", "ADAT7", "ADAT8"}
	adatSources := []string{"AS1", "AS2", "ADAT3", "ADAT4", "ADAT5", "ADAT6", "ADAT7", "ADAT8"}

	values := make(map[string]int)
	for _, out := range outputs {
		values["Mic-AN1-"+out] = 0
		values["Mic-AN2-"+out] = 0
		values["Line-IN3-"+out] = 0
		values["Line-IN4-"+out] = 0
		values["PCM-"+out+"-"+out] = 80
		for _, src := range adatSources {
			values["Line-"+src+"-"+out] = 0
		}
		values["Main-Out "+out] = 70
	}
	values["Mic-AN1 Gain"] = 30
	values["Mic-AN2 Gain"] = 30
	values["Mic-AN1 48V"] = 0
	values["Mic-AN2 48V"] = 0
	values["Line-IN3 PAD"] = 0
	values["Line-IN4 PAD"] = 0
	values["IEC958 Emphasis"] = 0
	values["IEC958 Pro Mask"] = 0
	values["Sample Clock Source"] = 0

	return patchctl.NewMemoryHardware(values)
}
