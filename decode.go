package patchctl

import (
	"regexp"
	"strings"
)

var (
	// three-token routed control names: <kind>-<source>-<destination>
	// with '-' or '_' separators, e.g. "PCM-AN1-AN1", "Line-IN3-PH3"
	pathRe = regexp.MustCompile(`^(PCM|Line|Mic|AS|PH|IEC958)[-_]([A-Za-z0-9]+)[-_]([A-Za-z0-9]+)$`)

	// master/output-only controls, e.g. "Main-Out AN1", "OUT PH3"
	masterRe = regexp.MustCompile(`^(?:Main-Out|OUT)[-_ ]([A-Za-z0-9]+)$`)
)

// functionKeyword is one rule of the function-control classifier. Rules are
// checked in order; the first substring match wins, and any match takes
// precedence over path decoding.
type functionKeyword struct {
	keyword string
	role    FunctionRole
}

var functionKeywords = []functionKeyword{
	{"Gain", RoleGain},
	{"PAD", RolePad},
	{"48V", RolePhantomPower},
	{"Sens", RoleSensitivity},
	{"Emphasis", RoleEmphasis},
	{"Pro Mask", RoleProMask},
	{"Switch", RoleSwitchOther},
}

var pathKinds = map[string]PathKind{
	"PCM":    KindPCM,
	"Line":   KindLine,
	"Mic":    KindMic,
	"AS":     KindAS,
	"PH":     KindPH,
	"IEC958": KindIEC958,
}

// Decode parses a raw control name into a RoutingPath or a FunctionControl.
// It is total: every name yields exactly one of the two, with unmatched names
// retained as KindOther routing entries rather than dropped. Decoding is pure
// and deterministic.
func Decode(raw string) Entry {
	// function-keyword detection takes precedence over path decoding
	for _, rule := range functionKeywords {
		if strings.Contains(raw, rule.keyword) {
			return FunctionControl{
				RawName:    raw,
				ParentHint: functionParent(raw, rule.keyword),
				Role:       rule.role,
			}
		}
	}

	if m := pathRe.FindStringSubmatch(raw); m != nil {
		return RoutingPath{
			Kind:        pathKinds[m[1]],
			Source:      m[2],
			Destination: m[3],
			RawName:     raw,
		}
	}

	if m := masterRe.FindStringSubmatch(raw); m != nil {
		return RoutingPath{
			Kind:        KindMainOut,
			Source:      m[1],
			Destination: m[1],
			RawName:     raw,
		}
	}

	return RoutingPath{Kind: KindOther, RawName: raw}
}

// functionParent derives the owning input from a function-control name by
// stripping the keyword and trailing separators, e.g. "Mic-AN1 Gain" -> "Mic-AN1".
// Returns "" when nothing usable remains; such controls stay unparented.
func functionParent(raw, keyword string) string {
	idx := strings.Index(raw, keyword)
	if idx < 0 {
		return ""
	}
	parent := strings.TrimRight(raw[:idx], " -_")
	return parent
}
