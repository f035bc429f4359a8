package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/mgriffin/patchctl"
	"github.com/mgriffin/patchctl/tui"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "patchctl",
	Short: "Patchbay control for RME Babyface Pro FS interfaces",
	Long: `patchctl is a command-line patchbay for RME Babyface Pro FS audio
interfaces driven through the ALSA control interface.

It decodes the card's flat control list into routing paths, groups them
by output pair, and manages spatial layouts, stereo groups, and presets.`,
}

func loadConfig() (*patchctl.Config, error) {
	return patchctl.LoadConfig(configPath)
}

// openDevice opens the configured card and wraps it for control access
func openDevice(cfg *patchctl.Config, identifier string) (*patchctl.Card, *patchctl.AlsaDevice, error) {
	if identifier == "" {
		identifier = cfg.Card
	}
	card, err := patchctl.FindCard(identifier)
	if err != nil {
		return nil, nil, err
	}
	dev, err := patchctl.NewAlsaDevice(card)
	if err != nil {
		card.Close()
		return nil, nil, err
	}
	return card, dev, nil
}

// buildCatalog enumerates the device and decodes every control
func buildCatalog(dev *patchctl.AlsaDevice) (*patchctl.Catalog, error) {
	names, err := dev.Enumerate()
	if err != nil {
		return nil, err
	}
	return patchctl.BuildCatalog(names)
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "List available audio interfaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		match := cfg.Card
		if all {
			match = ""
		}
		cards, err := patchctl.ListCards(match)
		if err != nil {
			return err
		}

		fmt.Println("available cards:")
		for _, card := range cards {
			fmt.Printf("  %d: %s\n", card.Number, card.Name)
		}
		return nil
	},
}

var controlsCmd = &cobra.Command{
	Use:   "controls [card]",
	Short: "List all controls on the card",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, argOrEmpty(args, 0))
		if err != nil {
			return err
		}
		defer card.Close()

		cat, err := buildCatalog(dev)
		if err != nil {
			return err
		}
		values, err := dev.ReadAll()
		if err != nil {
			return err
		}

		fmt.Printf("controls for %s:\n\n", card)
		for _, name := range cat.Names() {
			entry, _ := cat.Lookup(name)
			fmt.Printf("%-50s %s = %d\n", name, describeEntry(entry), values[name])
		}
		fmt.Printf("\ntotal: %d controls\n", cat.Len())
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <control-name>...",
	Short: "Decode control names into routing paths",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, raw := range args {
			fmt.Printf("%-50s %s\n", raw, describeEntry(patchctl.Decode(raw)))
		}
		return nil
	},
}

var pairsCmd = &cobra.Command{
	Use:   "pairs [card]",
	Short: "Show the stereo pairs present on the card",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, argOrEmpty(args, 0))
		if err != nil {
			return err
		}
		defer card.Close()

		cat, err := buildCatalog(dev)
		if err != nil {
			return err
		}

		for _, pair := range patchctl.Pairs(cat) {
			fmt.Printf("%-8s %-30s / %s\n", pair.Kind, pair.Left.RawName, pair.Right.RawName)
		}
		return nil
	},
}

var tabsCmd = &cobra.Command{
	Use:   "tabs [card]",
	Short: "Show controls grouped by output pair",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, argOrEmpty(args, 0))
		if err != nil {
			return err
		}
		defer card.Close()

		cat, err := buildCatalog(dev)
		if err != nil {
			return err
		}

		for _, tab := range patchctl.Tabs(cat) {
			fmt.Printf("%s:\n", tab.Name())
			for _, path := range tab.Paths {
				fmt.Printf("  %s\n", path.RawName)
			}
			for _, master := range tab.Masters {
				fmt.Printf("  %s (master)\n", master.RawName)
			}
			fmt.Println()
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <control-name>",
	Short: "Get the value of a control",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, "")
		if err != nil {
			return err
		}
		defer card.Close()

		values, err := dev.ReadAll()
		if err != nil {
			return err
		}
		value, ok := values[args[0]]
		if !ok {
			return fmt.Errorf("control '%s' not found", args[0])
		}

		fmt.Printf("%s = %d\n", args[0], value)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <control-name> <value>",
	Short: "Set the value of a control (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid value: %s", args[1])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, "")
		if err != nil {
			return err
		}
		defer card.Close()

		if err := dev.Write(args[0], value); err != nil {
			return err
		}
		fmt.Printf("%s = %d\n", args[0], value)
		return nil
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Save, load, list, and delete patchbay layouts",
}

var layoutSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the current control state as a layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, "")
		if err != nil {
			return err
		}
		defer card.Close()

		cat, err := buildCatalog(dev)
		if err != nil {
			return err
		}
		values, err := dev.ReadAll()
		if err != nil {
			return err
		}

		logger := patchctl.NewLogger(cfg.Logging, os.Stderr)
		store := patchctl.NewLayoutStore(cfg.LayoutDir, cfg.Snap, cfg.Grid, logger)

		// no saved positions yet, so place everything on the default grid
		arena := patchctl.NewArena(cfg.Snap)
		cfg.Grid.PlaceBelow(arena, cat.Names(), values)

		// saving over an existing layout keeps its stereo links
		var stereoLinks map[string]bool
		if prev, err := store.Load(args[0], cat, values); err == nil {
			stereoLinks = prev.StereoLinks
		} else if !errors.Is(err, patchctl.ErrLayoutNotFound) {
			return err
		}

		layout := patchctl.Capture(args[0], description, arena, stereoLinks)
		if err := store.Save(layout); err != nil {
			return err
		}
		fmt.Printf("layout '%s' saved (%d blocks)\n", args[0], len(layout.Blocks))
		return nil
	},
}

var layoutLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Load a layout and apply its control values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, "")
		if err != nil {
			return err
		}
		defer card.Close()

		cat, err := buildCatalog(dev)
		if err != nil {
			return err
		}
		values, err := dev.ReadAll()
		if err != nil {
			return err
		}

		logger := patchctl.NewLogger(cfg.Logging, os.Stderr)
		store := patchctl.NewLayoutStore(cfg.LayoutDir, cfg.Snap, cfg.Grid, logger)

		scene, err := store.Load(args[0], cat, values)
		if err != nil {
			return err
		}

		applied := 0
		for _, block := range scene.Arena.Blocks() {
			if err := dev.Write(block.RawName, block.Value); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				continue
			}
			applied++
		}

		fmt.Printf("layout '%s' loaded: %d controls applied", args[0], applied)
		if len(scene.Stale) > 0 {
			fmt.Printf(", %d stale references dropped", len(scene.Stale))
		}
		if len(scene.Added) > 0 {
			fmt.Printf(", %d new controls placed", len(scene.Added))
		}
		fmt.Println()
		return nil
	},
}

var layoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved layouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := patchctl.NewLayoutStore(cfg.LayoutDir, cfg.Snap, cfg.Grid, nil)
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var layoutDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := patchctl.NewLayoutStore(cfg.LayoutDir, cfg.Snap, cfg.Grid, nil)
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("layout '%s' deleted\n", args[0])
		return nil
	},
}

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Save, load, list, and delete device presets",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Snapshot every control value into a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, "")
		if err != nil {
			return err
		}
		defer card.Close()

		preset, err := patchctl.CapturePreset(args[0], description, dev)
		if err != nil {
			return err
		}

		logger := patchctl.NewLogger(cfg.Logging, os.Stderr)
		store := patchctl.NewPresetStore(cfg.PresetDir, logger)
		if err := store.Save(preset); err != nil {
			return err
		}
		fmt.Printf("preset '%s' saved (%d controls)\n", args[0], len(preset.Controls))
		return nil
	},
}

var presetLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Apply a saved preset to the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, "")
		if err != nil {
			return err
		}
		defer card.Close()

		store := patchctl.NewPresetStore(cfg.PresetDir, nil)
		preset, err := store.Load(args[0])
		if err != nil {
			return err
		}

		report, err := patchctl.ApplyPreset(preset, dev)
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := patchctl.NewPresetStore(cfg.PresetDir, nil)
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := patchctl.NewPresetStore(cfg.PresetDir, nil)
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("preset '%s' deleted\n", args[0])
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Inspect and edit the stereo links stored in a layout",
}

// loadLinks opens the device, loads the named layout, and builds a link set
// carrying the layout's persisted link state
func loadLinks(cfg *patchctl.Config, name string) (*patchctl.ReconciledScene, *patchctl.LinkSet, *patchctl.LayoutStore, error) {
	card, dev, err := openDevice(cfg, "")
	if err != nil {
		return nil, nil, nil, err
	}
	defer card.Close()

	cat, err := buildCatalog(dev)
	if err != nil {
		return nil, nil, nil, err
	}
	values, err := dev.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := patchctl.NewLogger(cfg.Logging, os.Stderr)
	store := patchctl.NewLayoutStore(cfg.LayoutDir, cfg.Snap, cfg.Grid, logger)
	scene, err := store.Load(name, cat, values)
	if err != nil {
		return nil, nil, nil, err
	}

	links := patchctl.NewLinkSet(cat)
	links.Restore(scene.StereoLinks)
	return scene, links, store, nil
}

var linkListCmd = &cobra.Command{
	Use:   "list <layout>",
	Short: "Show every stereo pair and its link state in a layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, links, _, err := loadLinks(cfg, args[0])
		if err != nil {
			return err
		}

		for _, id := range sortedLinkIDs(links.State()) {
			state := "off"
			if links.Linked(id) {
				state = "on"
			}
			fmt.Printf("%-60s %s\n", id, state)
		}
		return nil
	},
}

var linkSetCmd = &cobra.Command{
	Use:   "set <layout> <control-name> on|off",
	Short: "Link or unlink the stereo pair containing a control",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var linked bool
		switch args[2] {
		case "on":
			linked = true
		case "off":
			linked = false
		default:
			return fmt.Errorf("link state must be 'on' or 'off', got '%s'", args[2])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		scene, links, store, err := loadLinks(cfg, args[0])
		if err != nil {
			return err
		}

		id, ok := links.PairID(args[1])
		if !ok {
			return fmt.Errorf("control '%s' is not a member of any stereo pair", args[1])
		}
		if err := links.SetLinked(id, linked); err != nil {
			return err
		}

		scene.Layout.StereoLinks = links.State()
		if err := store.Save(scene.Layout); err != nil {
			return err
		}
		fmt.Printf("%s: stereo link %s\n", id, args[2])
		return nil
	},
}

func sortedLinkIDs(state map[string]bool) []string {
	ids := make([]string, 0, len(state))
	for id := range state {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var watchCmd = &cobra.Command{
	Use:   "watch [card]",
	Short: "Monitor control changes in real-time",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		card, dev, err := openDevice(cfg, argOrEmpty(args, 0))
		if err != nil {
			return err
		}
		defer card.Close()

		last, err := dev.ReadAll()
		if err != nil {
			return err
		}

		monitor := patchctl.NewMonitor(card)
		defer monitor.Stop()

		changes := make(chan struct{}, 1)
		cancel, err := monitor.Subscribe(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer cancel()

		fmt.Printf("monitoring controls for %s (press ctrl+c to stop)\n", card)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-sigChan:
				fmt.Println("\nstopping monitor...")
				return nil
			case <-changes:
				current, err := dev.ReadAll()
				if err != nil {
					return err
				}
				for _, name := range sortedKeys(current) {
					if prev, ok := last[name]; !ok || prev != current[name] {
						fmt.Printf("%-50s = %d\n", name, current[name])
					}
				}
				last = current
			}
		}
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui [card]",
	Short: "Interactive patchbay browser",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		demo, _ := cmd.Flags().GetBool("demo")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if demo {
			return tui.Run(tui.DemoHardware())
		}

		card, dev, err := openDevice(cfg, argOrEmpty(args, 0))
		if err != nil {
			return err
		}
		defer card.Close()

		return tui.Run(dev)
	},
}

func describeEntry(entry patchctl.Entry) string {
	switch e := entry.(type) {
	case patchctl.RoutingPath:
		if e.IsMaster() {
			return fmt.Sprintf("[master %s]", e.Destination)
		}
		if e.Kind == patchctl.KindOther {
			return "[other]"
		}
		return fmt.Sprintf("[%s %s -> %s]", e.Kind, e.Source, e.Destination)
	case patchctl.FunctionControl:
		return fmt.Sprintf("[%s on %s]", e.Role, e.ParentHint)
	default:
		return "[unknown]"
	}
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(controlsCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(tabsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tuiCmd)

	layoutCmd.AddCommand(layoutSaveCmd)
	layoutCmd.AddCommand(layoutLoadCmd)
	layoutCmd.AddCommand(layoutListCmd)
	layoutCmd.AddCommand(layoutDeleteCmd)

	linkCmd.AddCommand(linkListCmd)
	linkCmd.AddCommand(linkSetCmd)

	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetLoadCmd)
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetDeleteCmd)

	cardsCmd.Flags().BoolP("all", "a", false, "List every card, not just matching ones")
	layoutSaveCmd.Flags().StringP("description", "d", "", "Layout description")
	presetSaveCmd.Flags().StringP("description", "d", "", "Preset description")
	tuiCmd.Flags().Bool("demo", false, "Run against a simulated device")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
