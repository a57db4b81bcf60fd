package unit

import (
	"fmt"
	"sort"
)

// ----- Factory ----- //

// Builder constructs a node of one type with all of its ports declared.
type Builder func() Node

type registration struct {
	version int
	build   Builder
}

var builders = map[string]registration{}

// Register makes a node type constructible by name. Registering twice panics.
func Register(kind string, version int, build Builder) {
	if _, ok := builders[kind]; ok {
		panic("node type registered twice: " + kind)
	}
	builders[kind] = registration{version: version, build: build}
}

// New builds a node of the named type attached to host.
func New(kind string, host Host) (Node, error) {
	r, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", kind)
	}
	n := r.build()
	m := n.Mod()
	m.kind = kind
	m.version = r.version
	m.host = host
	n.Reset()
	return n, nil
}

// Kinds returns every registered type name in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	Register("envelope", 1, newEnvelope)
	Register("lfo", 2, newLfo)
	Register("midi", 1, newPerformance)
	Register("multiply", 1, newMultiply)
	Register("harmonics", 1, newHarmonics)
	Register("amplifier", 1, newAmplifier)
	Register("stretch", 1, newStretch)
	Register("scatter", 1, newScatter)
	Register("filter", 1, newFilter)
	Register("out", 1, newEmitter)
}
