package unit

import (
	"testing"
)

const testPatch = `{
  "version": 1,
  "nodes": [
    {"type": "harmonics", "id": 3, "version": 1,
     "options": {"count": 64, "slope": 1},
     "mods": {"level": {"const": 1}}},
    {"type": "envelope", "id": 4, "version": 1,
     "options": {"attack": 0, "decay": 0, "sustain": 0.5, "release": 10},
     "mods": {"level": {"const": 1}}},
    {"type": "scatter", "id": 7, "version": 1,
     "options": {"spread": 24, "constraint": 0, "constraintParam": 1, "constraintInvert": 0},
     "mods": {"amount": {"const": 1}},
     "units": {"in": {"node": 3, "output": "out"}, "constraint": {}}},
    {"type": "stretch", "id": 8, "version": 1,
     "options": {"constraint": 0, "constraintParam": 1, "constraintInvert": 0},
     "mods": {"amount": {"const": 0.2}},
     "units": {"in": {"node": 7, "output": "out"}, "constraint": {}}},
    {"type": "out", "id": 9, "version": 1,
     "options": {"dephase": 1},
     "mods": {"gain": {"node": 4, "output": "out"}, "wet": {"const": 0}, "room": {"const": 0.5}, "damp": {"const": 0.5}},
     "units": {"in": {"node": 8, "output": "out"}}}
  ],
  "emits": 9,
  "output": "out"
}`

func loadTestPatch(t *testing.T, host Host) *Graph {
	t.Helper()
	p, err := ParsePatch([]byte(testPatch))
	expectNoError(t, err)
	g, err := Load(p, host)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestLoad(t *testing.T) {
	g := loadTestPatch(t, newTestHost())
	expectEqual(t, len(g.Nodes), 5)
	expectEqual(t, g.Emits.Mod().Kind(), "out")
	expectEqual(t, g.Emits.(Dephaser).Dephase(), true)
	for i, n := range g.Nodes {
		expectEqual(t, n.Mod().ID(), i+1)
	}
	src, _ := g.Emits.AsUnit().UnitInput("in").Source()
	expectEqual(t, src.Mod().Kind(), "stretch")
	expectEqual(t, g.Nodes[0].Mod().Option("count").Int(), 64)
}

func TestSortInvariantAfterGo(t *testing.T) {
	g := loadTestPatch(t, newTestHost())
	for _, n := range g.Nodes {
		n.Gate()
	}
	for tick := 0; tick < 10; tick++ {
		for _, n := range g.Nodes {
			n.Go()
			un, ok := n.(UnitNode)
			if !ok {
				continue
			}
			for i := range un.AsUnit().UnitOutputNames() {
				p := un.AsUnit().Output(i)
				if !p.Sorted() {
					t.Fatalf("%s output %d is not sorted", n.Mod().Kind(), i)
				}
				if !p.IsPermutation() {
					t.Fatalf("%s output %d order is not a permutation", n.Mod().Kind(), i)
				}
			}
		}
	}
	out := g.Emits.AsUnit().Output(g.Output)
	sum := 0.0
	for _, a := range out.Amp {
		sum += a
	}
	if sum == 0 {
		t.Errorf("expected the emitter to carry sound")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	g := loadTestPatch(t, newTestHost())
	saved := SaveGraph(g)
	expectEqual(t, saved.Emits, 5)
	expectEqual(t, saved.Output, "out")

	g2, err := Load(saved, newTestHost())
	expectNoError(t, err)
	again := SaveGraph(g2)
	expectEqual(t, len(again.Nodes), len(saved.Nodes))
	for i := range saved.Nodes {
		a, b := saved.Nodes[i], again.Nodes[i]
		expectEqual(t, a.Type, b.Type)
		expectEqual(t, a.ID, b.ID)
		for k, v := range a.Options {
			expectEqual(t, b.Options[k], v)
		}
		for k, v := range a.Mods {
			w := b.Mods[k]
			expectEqual(t, w.Node, v.Node)
			expectEqual(t, w.Output, v.Output)
			if v.Const != nil {
				expectEqual(t, *w.Const, *v.Const)
			}
		}
		for k, v := range a.Units {
			expectEqual(t, b.Units[k], v)
		}
	}
	gain := saved.Nodes[4].Mods["gain"]
	expectEqual(t, gain.Node, 2)
	expectEqual(t, gain.Output, "out")
}

func TestLoadMissingKeys(t *testing.T) {
	p := &Patch{Version: 1, Nodes: []Record{
		{Type: "amplifier", ID: 1, Version: 1},
		{Type: "lfo", ID: 2, Version: 2, Options: map[string]float64{"rate": 200}},
	}}
	g, err := Load(p, newTestHost())
	expectNoError(t, err)
	amp := g.Nodes[0].Mod()
	expectEqual(t, amp.Input("gain").IsConstant(), true)
	expectEqual(t, amp.Input("gain").Value(), 1.0)
	expectEqual(t, g.Nodes[0].(UnitNode).AsUnit().UnitInput("in").IsNil(), true)
	lfo := g.Nodes[1].Mod()
	expectEqual(t, lfo.Option("rate").Value, 100.0)
	expectEqual(t, lfo.Option("wave").Value, float64(waveSine))
	expectEqual(t, g.Emits, UnitNode(nil))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(&Patch{Nodes: []Record{{Type: "nope", ID: 1}}}, newTestHost())
	if err == nil {
		t.Errorf("expected an error for an unknown type")
	}
	_, err = Load(&Patch{Nodes: []Record{{Type: "lfo", ID: 1}, {Type: "lfo", ID: 1}}}, newTestHost())
	if err == nil {
		t.Errorf("expected an error for a duplicate id")
	}
	_, err = Load(&Patch{Nodes: []Record{{Type: "lfo", ID: 1}}, Emits: 1}, newTestHost())
	if err == nil {
		t.Errorf("expected an error for a modulation emitter")
	}
}

func TestLfoMigration(t *testing.T) {
	p := &Patch{Nodes: []Record{
		{Type: "lfo", ID: 1, Version: 1, Options: map[string]float64{"freq": 3}},
	}}
	g, err := Load(p, newTestHost())
	expectNoError(t, err)
	expectEqual(t, g.Nodes[0].Mod().Option("rate").Value, 3.0)
}
