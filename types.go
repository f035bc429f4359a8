package patchctl

import "fmt"

// PathKind classifies the signal kind of a routed control
type PathKind int

const (
	KindOther PathKind = iota
	KindPCM
	KindMic
	KindLine
	KindAS
	KindPH
	KindIEC958
	KindMainOut
)

func (k PathKind) String() string {
	switch k {
	case KindPCM:
		return "PCM"
	case KindMic:
		return "Mic"
	case KindLine:
		return "Line"
	case KindAS:
		return "AS"
	case KindPH:
		return "PH"
	case KindIEC958:
		return "IEC958"
	case KindMainOut:
		return "MainOut"
	default:
		return "Other"
	}
}

// FunctionRole classifies a non-routed per-input hardware setting
type FunctionRole int

const (
	RoleSwitchOther FunctionRole = iota
	RoleGain
	RolePad
	RolePhantomPower
	RoleSensitivity
	RoleEmphasis
	RoleProMask
)

func (r FunctionRole) String() string {
	switch r {
	case RoleGain:
		return "Gain"
	case RolePad:
		return "Pad"
	case RolePhantomPower:
		return "PhantomPower"
	case RoleSensitivity:
		return "Sensitivity"
	case RoleEmphasis:
		return "Emphasis"
	case RoleProMask:
		return "ProMask"
	default:
		return "SwitchOther"
	}
}

// Entry is a decoded control: either a RoutingPath or a FunctionControl
type Entry interface {
	// Raw returns the driver-assigned control name
	Raw() string
}

// RoutingPath is a decoded audio signal path from a named source to a named
// destination, corresponding to one hardware mixer control.
type RoutingPath struct {
	Kind        PathKind
	Source      string
	Destination string
	RawName     string
}

func (p RoutingPath) Raw() string { return p.RawName }

// IsMaster reports whether this is a master/output-only control
// (source and destination are the same output leg)
func (p RoutingPath) IsMaster() bool {
	return p.Kind == KindMainOut
}

func (p RoutingPath) String() string {
	return fmt.Sprintf("%s: %s -> %s [%s]", p.RawName, p.Source, p.Destination, p.Kind)
}

// FunctionControl is a non-routed hardware setting (gain trim, pad, phantom
// power, sensitivity, digital format flags). ParentHint names the input the
// control belongs to when that can be derived from the name; it is empty for
// unparented controls, which are retained and surfaced but not attached to a
// fader.
type FunctionControl struct {
	RawName    string
	ParentHint string
	Role       FunctionRole
}

func (f FunctionControl) Raw() string { return f.RawName }

func (f FunctionControl) String() string {
	if f.ParentHint == "" {
		return fmt.Sprintf("%s [%s]", f.RawName, f.Role)
	}
	return fmt.Sprintf("%s [%s of %s]", f.RawName, f.Role, f.ParentHint)
}

// GroupKind is the input group a stereo pair belongs to. The fixed display
// precedence is Mic, Line, Adat, Pcm.
type GroupKind int

const (
	GroupMic GroupKind = iota
	GroupLine
	GroupAdat
	GroupPcm
)

// groupOrder is the canonical precedence for pairing and tab population
var groupOrder = []GroupKind{GroupMic, GroupLine, GroupAdat, GroupPcm}

func (g GroupKind) String() string {
	switch g {
	case GroupMic:
		return "Mic"
	case GroupLine:
		return "Line"
	case GroupAdat:
		return "Adat"
	default:
		return "Pcm"
	}
}

// StereoPair is two RoutingPaths conventionally forming a left/right channel
// pair for a given input group and output leg. Pairs are recomputed from a
// catalog snapshot, never mutated.
type StereoPair struct {
	Left       RoutingPath
	Right      RoutingPath
	Kind       GroupKind
	OrderIndex int
}

// ID returns the stable identifier used for persisted stereo-link state
func (p StereoPair) ID() string {
	return p.Left.RawName + "|" + p.Right.RawName
}

func (p StereoPair) String() string {
	return fmt.Sprintf("%s/%s [%s %d]", p.Left.RawName, p.Right.RawName, p.Kind, p.OrderIndex)
}

// OutputTab is the set of RoutingPaths whose destination matches one physical
// output pair, grouped and ordered for display. Masters holds the pair's own
// master/output-only controls, appended after the kind-ordered paths.
type OutputTab struct {
	Left    string
	Right   string
	Paths   []RoutingPath
	Pairs   []StereoPair
	Masters []RoutingPath
}

// Name returns the display name of the tab, e.g. "AN1/AN2"
func (t OutputTab) Name() string {
	return t.Left + "/" + t.Right
}
