package patchctl

import "sort"

// outputPairs lists the physical output pairs of the interface in display
// order. Each pair becomes one mixing tab.
var outputPairs = [][2]string{
	{"AN1", "AN2"},
	{"PH3", "PH4"},
	{"AS1", "AS2"},
	{"ADAT3", "ADAT4"},
	{"ADAT5", "ADAT6"},
	{"ADAT7", "ADAT8"},
}

// adatSourcePairs lists the digital input pairs feeding the Adat group, one
// canonical stereo pair per row
var adatSourcePairs = [][2]string{
	{"AS1", "AS2"},
	{"ADAT3", "ADAT4"},
	{"ADAT5", "ADAT6"},
	{"ADAT7", "ADAT8"},
}

// pairTemplate is one canonical (left, right) raw-name pair for a tab
type pairTemplate struct {
	kind  GroupKind
	index int
	left  string
	right string
}

// pairTemplates returns the canonical stereo-pair templates for the output
// pair (left, right), in group precedence order. Mic inputs are the two
// analog preamps, Line the two line inputs, Adat the digital input pairs,
// and Pcm the computer playback channels addressed to the pair itself.
func pairTemplates(left, right string) []pairTemplate {
	templates := []pairTemplate{
		{GroupMic, 0, "Mic-AN1-" + left, "Mic-AN2-" + right},
		{GroupLine, 0, "Line-IN3-" + left, "Line-IN4-" + right},
	}
	for i, src := range adatSourcePairs {
		templates = append(templates, pairTemplate{
			kind:  GroupAdat,
			index: i,
			left:  "Line-" + src[0] + "-" + left,
			right: "Line-" + src[1] + "-" + right,
		})
	}
	templates = append(templates, pairTemplate{
		kind:  GroupPcm,
		left:  "PCM-" + left + "-" + left,
		right: "PCM-" + right + "-" + right,
	})
	return templates
}

// Pairs derives the canonical stereo pairs present in the catalog, iterating
// tabs in display order and each tab's templates in group precedence order.
// A pair is emitted only when both templated names resolve to routed entries;
// a missing side silently omits the pair, since partial hardware
// configurations are expected. The result depends only on catalog membership,
// not on enumeration order.
func Pairs(c *Catalog) []StereoPair {
	var pairs []StereoPair
	for _, out := range outputPairs {
		pairs = append(pairs, tabPairs(c, out[0], out[1])...)
	}
	return pairs
}

func tabPairs(c *Catalog, left, right string) []StereoPair {
	var pairs []StereoPair
	for _, tpl := range pairTemplates(left, right) {
		l, lok := c.Path(tpl.left)
		r, rok := c.Path(tpl.right)
		if !lok || !rok {
			continue
		}
		pairs = append(pairs, StereoPair{
			Left:       l,
			Right:      r,
			Kind:       tpl.kind,
			OrderIndex: tpl.index,
		})
	}
	return pairs
}

// Tabs builds one OutputTab per physical output pair. Population collects
// every routed entry whose destination falls in the tab's pair, grouped by
// input group in Mic, Line, Adat, Pcm order; canonical pair members come
// first within each group, followed by off-template entries in name order.
// The pair's master controls are appended last regardless of kind ordering.
func Tabs(c *Catalog) []OutputTab {
	tabs := make([]OutputTab, 0, len(outputPairs))
	for _, out := range outputPairs {
		tabs = append(tabs, buildTab(c, out[0], out[1]))
	}
	return tabs
}

func buildTab(c *Catalog, left, right string) OutputTab {
	tab := OutputTab{Left: left, Right: right, Pairs: tabPairs(c, left, right)}

	// canonical members, keyed for dedup against the full destination scan
	seen := make(map[string]bool)
	grouped := make(map[GroupKind][]RoutingPath)
	canonical := make(map[GroupKind]int)
	for _, p := range tab.Pairs {
		grouped[p.Kind] = append(grouped[p.Kind], p.Left, p.Right)
		canonical[p.Kind] += 2
		seen[p.Left.RawName] = true
		seen[p.Right.RawName] = true
	}

	// off-template entries routed to this pair remain individually
	// addressable; they follow the canonical members within their group
	var trailing []RoutingPath
	for _, p := range c.Paths() {
		if p.Destination != left && p.Destination != right {
			continue
		}
		if seen[p.RawName] {
			continue
		}
		if p.IsMaster() {
			tab.Masters = append(tab.Masters, p)
			continue
		}
		if kind, ok := tabGroupKind(p); ok {
			grouped[kind] = append(grouped[kind], p)
		} else {
			trailing = append(trailing, p)
		}
		seen[p.RawName] = true
	}

	for _, kind := range groupOrder {
		members := grouped[kind]
		// canonical members keep template order; the scan above appended
		// off-template ones after them, and only those need name ordering
		if tail := members[canonical[kind]:]; len(tail) > 1 {
			sort.Slice(tail, func(i, j int) bool { return tail[i].RawName < tail[j].RawName })
		}
		tab.Paths = append(tab.Paths, members...)
	}

	sort.Slice(trailing, func(i, j int) bool { return trailing[i].RawName < trailing[j].RawName })
	tab.Paths = append(tab.Paths, trailing...)

	sort.Slice(tab.Masters, func(i, j int) bool { return tab.Masters[i].Destination < tab.Masters[j].Destination })
	return tab
}

// tabGroupKind maps a routed entry to the input group it is displayed under
func tabGroupKind(p RoutingPath) (GroupKind, bool) {
	switch p.Kind {
	case KindMic:
		return GroupMic, true
	case KindPCM:
		return GroupPcm, true
	case KindAS:
		return GroupAdat, true
	case KindLine:
		if len(p.Source) >= 2 && p.Source[:2] == "IN" {
			return GroupLine, true
		}
		return GroupAdat, true
	default:
		return 0, false
	}
}
