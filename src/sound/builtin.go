package sound

import (
	"sort"

	"github.com/jinjor/partials/src/unit"
)

// ----- Built-in patches ----- //

type options map[string]float64
type bindings map[string]unit.Binding

func c(v float64) unit.Binding { return unit.Binding{Const: &v} }

func ref(id int) unit.Binding { return unit.Binding{Node: id, Output: "out"} }

func node(id int, kind string, version int, o options, m bindings, u bindings) unit.Record {
	return unit.Record{Type: kind, ID: id, Version: version, Options: o, Mods: m, Units: u}
}

// constrained fills in the constraint options a record does not set
func constrained(o options) options {
	for k, v := range map[string]float64{"constraint": float64(unit.ConstraintNone), "constraintParam": 1, "constraintInvert": 0} {
		if _, ok := o[k]; !ok {
			o[k] = v
		}
	}
	return o
}

func envelope(id int, a, d, s, r float64) unit.Record {
	return node(id, "envelope", 1,
		options{"attack": a, "decay": d, "sustain": s, "release": r},
		bindings{"level": c(1)}, nil)
}

func emitter(id, in, gain int, wet float64, dephase bool) unit.Record {
	dp := 0.0
	if dephase {
		dp = 1
	}
	return node(id, "out", 1, options{"dephase": dp},
		bindings{"gain": ref(gain), "wet": c(wet), "room": c(0.6), "damp": c(0.4)},
		bindings{"in": ref(in)})
}

var builtins = map[string]func() *unit.Patch{
	"init": func() *unit.Patch {
		return &unit.Patch{Version: unit.PatchVersion, Emits: 3, Output: "out", Nodes: []unit.Record{
			node(1, "harmonics", 1, options{"count": 16, "slope": 1}, bindings{"level": c(0.5)}, nil),
			envelope(2, 10, 200, 0.7, 300),
			emitter(3, 1, 2, 0, false),
		}}
	},
	"organ": func() *unit.Patch {
		return &unit.Patch{Version: unit.PatchVersion, Emits: 4, Output: "out", Nodes: []unit.Record{
			node(1, "harmonics", 1, options{"count": 12, "slope": 0.5}, bindings{"level": c(0.4)}, nil),
			node(2, "amplifier", 1,
				constrained(options{"constraint": float64(unit.ConstraintEven)}),
				bindings{"gain": c(0.3)}, bindings{"in": ref(1), "constraint": {}}),
			envelope(3, 5, 0, 1, 80),
			emitter(4, 2, 3, 0.2, false),
		}}
	},
	"bell": func() *unit.Patch {
		return &unit.Patch{Version: unit.PatchVersion, Emits: 5, Output: "out", Nodes: []unit.Record{
			node(1, "harmonics", 1, options{"count": 32, "slope": 1.2}, bindings{"level": c(0.6)}, nil),
			node(2, "stretch", 1, constrained(options{}), bindings{"amount": c(0.8)},
				bindings{"in": ref(1), "constraint": {}}),
			node(3, "filter", 1, constrained(options{"kind": 0, "q": 0.7}),
				bindings{"cutoff": c(0.8), "gain": c(0.5)}, bindings{"in": ref(2), "constraint": {}}),
			envelope(4, 1, 1500, 0, 1500),
			emitter(5, 3, 4, 0.35, true),
		}}
	},
	"pad": func() *unit.Patch {
		return &unit.Patch{Version: unit.PatchVersion, Emits: 6, Output: "out", Nodes: []unit.Record{
			node(1, "harmonics", 1, options{"count": 48, "slope": 1.5}, bindings{"level": c(0.5)}, nil),
			node(2, "lfo", 2, options{"wave": 0, "sync": 0, "rate": 0.3, "division": 1, "retrigger": 0},
				bindings{"depth": c(1)}, nil),
			node(3, "scatter", 1, constrained(options{"spread": 0.3}), bindings{"amount": ref(2)},
				bindings{"in": ref(1), "constraint": {}}),
			node(4, "filter", 1, constrained(options{"kind": 0, "q": 1}),
				bindings{"cutoff": c(0.6), "gain": c(0.5)}, bindings{"in": ref(3), "constraint": {}}),
			envelope(5, 800, 500, 0.8, 2000),
			emitter(6, 4, 5, 0.5, true),
		}}
	},
}

// Builtin returns a fresh copy of the named built-in patch, or nil.
func Builtin(name string) *unit.Patch {
	f, ok := builtins[name]
	if !ok {
		return nil
	}
	return f()
}

// BuiltinNames returns the names of the built-in patches in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
