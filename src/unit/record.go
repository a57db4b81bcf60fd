package unit

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
)

// PatchVersion is written into every saved patch.
const PatchVersion = 1

// ----- Record ----- //

// Binding connects an input either to an embedded constant or to an output of
// another node, referenced by id and output name.
type Binding struct {
	Const  *float64 `json:"const,omitempty"`
	Node   int      `json:"node,omitempty"`
	Output string   `json:"output,omitempty"`
}

// Record is the saved form of one node.
type Record struct {
	Type    string             `json:"type"`
	ID      int                `json:"id"`
	Version int                `json:"version"`
	Options map[string]float64 `json:"options"`
	Mods    map[string]Binding `json:"mods"`
	Units   map[string]Binding `json:"units,omitempty"`
}

// Patch is the saved form of one voice graph.
type Patch struct {
	Version int      `json:"version"`
	Nodes   []Record `json:"nodes"`
	Emits   int      `json:"emits"`
	Output  string   `json:"output,omitempty"`
}

// ParsePatch decodes a patch from JSON.
func ParsePatch(data []byte) (*Patch, error) {
	p := &Patch{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse patch: %w", err)
	}
	return p, nil
}

// JSON encodes the patch.
func (p *Patch) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// PreLoader is implemented by nodes that rewrite their record before binding,
// typically to migrate an older version.
type PreLoader interface {
	PreLoad(rec *Record)
}

// PostLoader is implemented by nodes that need a pass after every binding is resolved.
type PostLoader interface {
	PostLoad()
}

// Graph is a loaded voice graph in evaluation order.
type Graph struct {
	Nodes  []Node
	Emits  UnitNode
	Output int
}

// Load builds a graph from a patch in four passes so that forward references resolve:
// construct every node and assign ids, run PreLoad hooks, bind options and inputs,
// run PostLoad hooks. Missing keys are logged and reset to their defaults.
func Load(p *Patch, host Host) (*Graph, error) {
	g := &Graph{Nodes: make([]Node, 0, len(p.Nodes))}
	recs := make([]Record, len(p.Nodes))
	byID := make(map[int]Node, len(p.Nodes))

	for i, rec := range p.Nodes {
		if rec.ID <= 0 {
			return nil, fmt.Errorf("node %d: invalid id %d", i, rec.ID)
		}
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("node %d: duplicate id %d", i, rec.ID)
		}
		n, err := New(rec.Type, host)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", rec.ID, err)
		}
		n.Mod().id = len(g.Nodes) + 1
		byID[rec.ID] = n
		g.Nodes = append(g.Nodes, n)
		recs[i] = rec
	}

	for i, n := range g.Nodes {
		if pl, ok := n.(PreLoader); ok {
			pl.PreLoad(&recs[i])
		}
	}

	for i, n := range g.Nodes {
		bind(n, &recs[i], byID)
	}

	for _, n := range g.Nodes {
		if pl, ok := n.(PostLoader); ok {
			pl.PostLoad()
		}
	}

	if p.Emits != 0 {
		n, ok := byID[p.Emits]
		if !ok {
			return nil, fmt.Errorf("emitter %d not found", p.Emits)
		}
		un, ok := n.(UnitNode)
		if !ok {
			return nil, fmt.Errorf("emitter %d is not a unit", p.Emits)
		}
		g.Emits = un
		g.Output = 0
		if p.Output != "" {
			if g.Output = un.AsUnit().UnitOutputIndex(p.Output); g.Output < 0 {
				log.Printf("[WARN] emitter %d has no output %q, using the first one", p.Emits, p.Output)
				g.Output = 0
			}
		}
	}
	return g, nil
}

func bind(n Node, rec *Record, byID map[int]Node) {
	m := n.Mod()
	for _, opt := range m.options {
		v, ok := rec.Options[opt.Name]
		if !ok {
			log.Printf("[WARN] %s %d: missing option %q", m.kind, rec.ID, opt.Name)
			opt.Set(opt.Default)
			continue
		}
		opt.Set(v)
	}
	for _, in := range m.ins {
		b, ok := rec.Mods[in.Name]
		if !ok {
			log.Printf("[WARN] %s %d: missing input %q", m.kind, rec.ID, in.Name)
			in.Constant(in.Default)
			continue
		}
		if b.Const != nil {
			in.Constant(math.Max(0, math.Min(1, *b.Const)))
			continue
		}
		src, ok := byID[b.Node]
		if !ok {
			log.Printf("[WARN] %s %d: input %q refers to missing node %d", m.kind, rec.ID, in.Name, b.Node)
			in.Constant(in.Default)
			continue
		}
		if err := in.Bind(src, src.Mod().OutputIndex(b.Output)); err != nil {
			log.Printf("[WARN] %s %d: %v", m.kind, rec.ID, err)
			in.Constant(in.Default)
		}
	}
	un, ok := n.(UnitNode)
	if !ok {
		return
	}
	u := un.AsUnit()
	uins := u.uins
	if u.dynamic != nil {
		uins = append(uins[:len(uins):len(uins)], u.dynamic)
	}
	for _, in := range uins {
		b, ok := rec.Units[in.Name]
		if !ok {
			if in != u.dynamic {
				log.Printf("[WARN] %s %d: missing unit input %q", m.kind, rec.ID, in.Name)
			}
			in.Unbind()
			continue
		}
		if b.Node == 0 {
			in.Unbind()
			continue
		}
		src, ok := byID[b.Node].(UnitNode)
		if !ok {
			log.Printf("[WARN] %s %d: unit input %q refers to missing unit %d", m.kind, rec.ID, in.Name, b.Node)
			in.Unbind()
			continue
		}
		if err := in.Bind(src, src.AsUnit().UnitOutputIndex(b.Output)); err != nil {
			log.Printf("[WARN] %s %d: %v", m.kind, rec.ID, err)
			in.Unbind()
		}
	}
}

// Save produces the record of a node. Ids of referenced nodes are taken as assigned.
func Save(n Node) Record {
	m := n.Mod()
	rec := Record{
		Type:    m.kind,
		ID:      m.id,
		Version: m.version,
		Options: make(map[string]float64, len(m.options)),
		Mods:    make(map[string]Binding, len(m.ins)),
	}
	for _, opt := range m.options {
		rec.Options[opt.Name] = opt.Value
	}
	for _, in := range m.ins {
		src, index := in.Source()
		if c, ok := src.(*Constant); ok {
			v := c.outs[0].value
			rec.Mods[in.Name] = Binding{Const: &v}
			continue
		}
		rec.Mods[in.Name] = Binding{Node: src.Mod().id, Output: src.Mod().outs[index].Name}
	}
	un, ok := n.(UnitNode)
	if !ok {
		return rec
	}
	u := un.AsUnit()
	rec.Units = make(map[string]Binding, len(u.uins)+1)
	save := func(in *UnitInput) {
		if in.IsNil() {
			rec.Units[in.Name] = Binding{}
			return
		}
		src, index := in.Source()
		rec.Units[in.Name] = Binding{Node: src.Mod().id, Output: src.AsUnit().names[index]}
	}
	for _, in := range u.uins {
		save(in)
	}
	if u.dynamic != nil {
		save(u.dynamic)
	}
	return rec
}

// SaveGraph produces a patch from nodes in evaluation order.
func SaveGraph(g *Graph) *Patch {
	p := &Patch{Version: PatchVersion, Nodes: make([]Record, 0, len(g.Nodes))}
	for _, n := range g.Nodes {
		p.Nodes = append(p.Nodes, Save(n))
	}
	if g.Emits != nil {
		p.Emits = g.Emits.Mod().id
		p.Output = g.Emits.AsUnit().names[g.Output]
	}
	return p
}
