package unit

import (
	"fmt"
	"math"
	"math/rand"
)

// ----- Host ----- //

// Host is the read-only view a node has of the voice that owns it.
type Host interface {
	Pitch() float64
	Note() int
	Velocity() float64
	ReleaseVelocity() float64
	Aftertouch() float64
	Bend() float64
	CC(num int) float64
	NRPN(param int) float64
	SyncTick() int64
	ClockTick() float64
	SampleRate() float64
	TicksPerSecond() float64
	Rand() *rand.Rand
}

// ----- Node ----- //

// Node is any element of a voice graph. Every node carries scalar modulation ports.
type Node interface {
	Mod() *Modulation
	Go()
	Reset()
	Gate()
	Release()
	Restart()
}

// UnitNode is a node that also carries partial set ports.
type UnitNode interface {
	Node
	AsUnit() *Unit
}

// ReverbSource is implemented by emitters that drive the global reverb.
type ReverbSource interface {
	Reverb() (wet, room, damp float64)
}

// Dephaser is implemented by emitters that request per-order phase offsets.
type Dephaser interface {
	Dephase() bool
}

// ----- Modulation ----- //

// ModInput is a named scalar input bound to an output of another node.
type ModInput struct {
	Name     string
	Default  float64
	source   Node
	index    int
	constant *Constant
}

// Value returns the current value of the bound output.
func (in *ModInput) Value() float64 {
	return in.source.Mod().outs[in.index].value
}

// Source returns the bound node and output index.
func (in *ModInput) Source() (Node, int) {
	return in.source, in.index
}

// Bind attaches the input to output index of src.
func (in *ModInput) Bind(src Node, index int) error {
	if index < 0 || index >= len(src.Mod().outs) {
		return fmt.Errorf("%s: no modulation output %d on %s", in.Name, index, src.Mod().kind)
	}
	in.source = src
	in.index = index
	return nil
}

// Constant detaches the input and feeds it a fixed value.
func (in *ModInput) Constant(value float64) {
	if in.constant == nil {
		in.constant = NewConstant(value)
	} else {
		in.constant.Set(value)
	}
	in.source = in.constant
	in.index = 0
}

// IsConstant reports whether the input is fed by its own constant.
func (in *ModInput) IsConstant() bool {
	return in.constant != nil && in.source == Node(in.constant)
}

// ModOutput is a scalar output in [0,1] with a trigger flag.
type ModOutput struct {
	Name     string
	value    float64
	trigger  bool
	triggers uint64
}

// Set stores a value. Values outside [0,1] are a programming error.
func (o *ModOutput) Set(value float64) {
	if !(value >= 0 && value <= 1) {
		panic(fmt.Sprintf("modulation output %s out of range: %v", o.Name, value))
	}
	o.value = value
}

// Value returns the last stored value.
func (o *ModOutput) Value() float64 { return o.value }

// Trigger raises the trigger flag for the current step.
func (o *ModOutput) Trigger() {
	o.trigger = true
	o.triggers++
}

// Triggered reports whether the output fired during the current step.
func (o *ModOutput) Triggered() bool { return o.trigger }

// Triggers returns how many times the output ever fired.
func (o *ModOutput) Triggers() uint64 { return o.triggers }

// Option is a named numeric setting of a node.
type Option struct {
	Name    string
	Value   float64
	Default float64
	Min     float64
	Max     float64
}

// Set clamps value into the declared range.
func (o *Option) Set(value float64) {
	o.Value = math.Max(o.Min, math.Min(o.Max, value))
}

// Int returns the value rounded to an int.
func (o *Option) Int() int { return int(math.Round(o.Value)) }

// Bool reports whether the value is non-zero.
func (o *Option) Bool() bool { return o.Value != 0 }

// Modulation is the base of every node: scalar ports, options and identity.
type Modulation struct {
	kind    string
	version int
	id      int
	host    Host
	ins     []*ModInput
	outs    []*ModOutput
	options []*Option
}

// Mod returns the modulation base.
func (m *Modulation) Mod() *Modulation { return m }

// Kind returns the registered type name.
func (m *Modulation) Kind() string { return m.kind }

// Version returns the persistence version of the node type.
func (m *Modulation) Version() int { return m.version }

// ID returns the id assigned by the owning voice.
func (m *Modulation) ID() int { return m.id }

// SetID assigns the id used by persistence.
func (m *Modulation) SetID(id int) { m.id = id }

// Host returns the owning voice.
func (m *Modulation) Host() Host { return m.host }

// SetHost attaches the node to a voice.
func (m *Modulation) SetHost(h Host) { m.host = h }

// DeclareInput adds a scalar input fed by a constant of the default value.
func (m *Modulation) DeclareInput(name string, def float64) *ModInput {
	in := &ModInput{Name: name, Default: def}
	in.Constant(def)
	m.ins = append(m.ins, in)
	return in
}

// DeclareOutput adds a scalar output.
func (m *Modulation) DeclareOutput(name string) *ModOutput {
	out := &ModOutput{Name: name}
	m.outs = append(m.outs, out)
	return out
}

// DeclareOption adds a named setting.
func (m *Modulation) DeclareOption(name string, def, min, max float64) *Option {
	opt := &Option{Name: name, Value: def, Default: def, Min: min, Max: max}
	m.options = append(m.options, opt)
	return opt
}

// Inputs returns the scalar inputs in declaration order.
func (m *Modulation) Inputs() []*ModInput { return m.ins }

// Outputs returns the scalar outputs in declaration order.
func (m *Modulation) Outputs() []*ModOutput { return m.outs }

// Options returns the settings in declaration order.
func (m *Modulation) Options() []*Option { return m.options }

// Input finds a scalar input by name.
func (m *Modulation) Input(name string) *ModInput {
	for _, in := range m.ins {
		if in.Name == name {
			return in
		}
	}
	return nil
}

// OutputIndex finds a scalar output by name.
func (m *Modulation) OutputIndex(name string) int {
	for i, out := range m.outs {
		if out.Name == name {
			return i
		}
	}
	return -1
}

// Option finds a setting by name.
func (m *Modulation) Option(name string) *Option {
	for _, opt := range m.options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

// Go clears trigger flags. Nodes call it before computing.
func (m *Modulation) Go() {
	for _, out := range m.outs {
		out.trigger = false
	}
}

// Reset zeroes the scalar outputs.
func (m *Modulation) Reset() {
	for _, out := range m.outs {
		out.value = 0
		out.trigger = false
	}
}

// Gate has no default effect.
func (m *Modulation) Gate() {}

// Release has no default effect.
func (m *Modulation) Release() {}

// Restart has no default effect.
func (m *Modulation) Restart() {}

// ----- Constant ----- //

// Constant is a leaf holding one fixed value. Constants are never registered in a
// voice and never saved.
type Constant struct {
	Modulation
}

// NewConstant returns a constant source.
func NewConstant(value float64) *Constant {
	c := &Constant{Modulation: Modulation{kind: "constant"}}
	c.DeclareOutput("value").Set(value)
	return c
}

// Set replaces the value.
func (c *Constant) Set(value float64) { c.outs[0].Set(value) }

// Reset keeps the value.
func (c *Constant) Reset() {}

// ----- Unit ----- //

// UnitInput is a named partial set input bound to an output of another unit.
type UnitInput struct {
	Name   string
	source UnitNode
	index  int
}

// Partials returns the partial set currently published by the bound output.
func (in *UnitInput) Partials() *Partials {
	return in.source.AsUnit().outs[in.index]
}

// Source returns the bound unit and output index.
func (in *UnitInput) Source() (UnitNode, int) {
	return in.source, in.index
}

// Bind attaches the input to output index of src.
func (in *UnitInput) Bind(src UnitNode, index int) error {
	if index < 0 || index >= len(src.AsUnit().outs) {
		return fmt.Errorf("%s: no unit output %d on %s", in.Name, index, src.Mod().kind)
	}
	in.source = src
	in.index = index
	return nil
}

// Unbind restores the canonical nil unit.
func (in *UnitInput) Unbind() {
	in.source = Nil
	in.index = 0
}

// IsNil reports whether the input reads the nil unit.
func (in *UnitInput) IsNil() bool { return in.source == UnitNode(Nil) }

// Unit is the base of partial-producing nodes.
type Unit struct {
	Modulation
	uins        []*UnitInput
	outs        []*Partials
	own         []*Partials
	names       []string
	keepOnReset bool
	dynamic     *UnitInput
}

// AsUnit returns the unit base.
func (u *Unit) AsUnit() *Unit { return u }

// DeclareUnitInput adds a partial set input bound to the nil unit.
func (u *Unit) DeclareUnitInput(name string) *UnitInput {
	in := &UnitInput{Name: name}
	in.Unbind()
	u.uins = append(u.uins, in)
	return in
}

// DeclareUnitOutput adds a partial set output owning its storage.
func (u *Unit) DeclareUnitOutput(name string) int {
	p := NewPartials()
	u.own = append(u.own, p)
	u.outs = append(u.outs, p)
	u.names = append(u.names, name)
	return len(u.outs) - 1
}

// KeepOnReset makes Reset leave the outputs untouched.
func (u *Unit) KeepOnReset() { u.keepOnReset = true }

// UnitInputs returns the partial set inputs in declaration order.
func (u *Unit) UnitInputs() []*UnitInput { return u.uins }

// UnitInput finds a partial set input by name.
func (u *Unit) UnitInput(name string) *UnitInput {
	for _, in := range u.uins {
		if in.Name == name {
			return in
		}
	}
	if u.dynamic != nil && u.dynamic.Name == name {
		return u.dynamic
	}
	return nil
}

// UnitOutputNames returns the names of the partial set outputs.
func (u *Unit) UnitOutputNames() []string { return u.names }

// UnitOutputIndex finds a partial set output by name.
func (u *Unit) UnitOutputIndex(name string) int {
	for i, n := range u.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Output returns the partial set currently published at index i.
func (u *Unit) Output(i int) *Partials { return u.outs[i] }

// Own returns the storage owned by output i and publishes it.
func (u *Unit) Own(i int) *Partials {
	u.outs[i] = u.own[i]
	return u.own[i]
}

// Push publishes the partials of input in as output i without copying.
// The node must not write to them afterwards.
func (u *Unit) Push(i int, in *UnitInput) {
	u.outs[i] = in.Partials()
}

// Copy publishes a private duplicate of the partials of input in as output i.
func (u *Unit) Copy(i int, in *UnitInput) *Partials {
	p := u.Own(i)
	p.CopyFrom(in.Partials())
	return p
}

// Reset returns every output to the canonical state unless the node opted out.
func (u *Unit) Reset() {
	u.Modulation.Reset()
	if u.keepOnReset {
		return
	}
	for i := range u.own {
		u.own[i].Reset()
		u.outs[i] = u.own[i]
	}
}

// ----- Nil ----- //

type nilUnit struct {
	Unit
}

// Go does nothing; the nil unit is shared and never changes.
func (n *nilUnit) Go() {}

// Reset does nothing.
func (n *nilUnit) Reset() {}

// Nil is the canonical all-silent unit bound to unconnected unit inputs.
var Nil UnitNode = newNilUnit()

func newNilUnit() *nilUnit {
	n := &nilUnit{}
	n.kind = "nil"
	n.own = []*Partials{nilPartials}
	n.outs = []*Partials{nilPartials}
	n.names = []string{"out"}
	return n
}
