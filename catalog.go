package patchctl

import (
	"fmt"
	"sort"
	"strings"
)

// DuplicateControlError reports raw names that appeared more than once in a
// catalog build. Duplicates signal a decoder or device-enumeration bug and
// abort the build rather than being silently deduplicated.
type DuplicateControlError struct {
	Names []string
}

func (e *DuplicateControlError) Error() string {
	return fmt.Sprintf("duplicate control names: %s", strings.Join(e.Names, ", "))
}

// Catalog is an immutable snapshot of every control discovered on the device
// at a point in time. Refreshing produces a new Catalog; holders of stale
// references re-resolve by raw name against the new snapshot.
type Catalog struct {
	entries   map[string]Entry
	order     []string
	paths     []RoutingPath
	functions []FunctionControl
}

// BuildCatalog decodes the given raw control names into a catalog snapshot.
// The input order is preserved as the catalog's enumeration order. Duplicate
// names fail the build with a DuplicateControlError.
func BuildCatalog(names []string) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]Entry, len(names)),
		order:   make([]string, 0, len(names)),
	}

	var dupes []string
	for _, name := range names {
		if _, exists := c.entries[name]; exists {
			dupes = append(dupes, name)
			continue
		}

		entry := Decode(name)
		c.entries[name] = entry
		c.order = append(c.order, name)

		switch e := entry.(type) {
		case RoutingPath:
			c.paths = append(c.paths, e)
		case FunctionControl:
			c.functions = append(c.functions, e)
		}
	}

	if len(dupes) > 0 {
		sort.Strings(dupes)
		return nil, &DuplicateControlError{Names: dupes}
	}

	return c, nil
}

// Lookup resolves a raw name to its decoded entry
func (c *Catalog) Lookup(raw string) (Entry, bool) {
	e, ok := c.entries[raw]
	return e, ok
}

// Path resolves a raw name to a RoutingPath; ok is false when the name is
// unknown or decodes to a function control
func (c *Catalog) Path(raw string) (RoutingPath, bool) {
	e, ok := c.entries[raw]
	if !ok {
		return RoutingPath{}, false
	}
	p, ok := e.(RoutingPath)
	return p, ok
}

// Names returns the raw names in enumeration order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Paths returns all routed entries in enumeration order
func (c *Catalog) Paths() []RoutingPath {
	out := make([]RoutingPath, len(c.paths))
	copy(out, c.paths)
	return out
}

// ByKind returns all routed entries of the given kind in enumeration order
func (c *Catalog) ByKind(kind PathKind) []RoutingPath {
	var out []RoutingPath
	for _, p := range c.paths {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Functions returns all function controls in enumeration order
func (c *Catalog) Functions() []FunctionControl {
	out := make([]FunctionControl, len(c.functions))
	copy(out, c.functions)
	return out
}

// FunctionsFor returns the function controls whose parent hint matches the
// given input name prefix. The association is by name, not a hard key; a
// missing parent simply yields no results.
func (c *Catalog) FunctionsFor(parent string) []FunctionControl {
	var out []FunctionControl
	for _, f := range c.functions {
		if f.ParentHint != "" && f.ParentHint == parent {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of entries in the snapshot
func (c *Catalog) Len() int {
	return len(c.order)
}
