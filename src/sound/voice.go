package sound

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/jinjor/partials/src/unit"
)

// ----- Channel ----- //

const (
	ChannelNone      = -1
	ChannelOmni      = 16
	ChannelLowerZone = 17
	ChannelUpperZone = 18
)

// NoteToFreq converts a MIDI note number to Hz.
func NoteToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// ----- State ----- //

// State is the place of a voice in the pool's queues.
type State int

const (
	Free State = iota
	Sounding
	Sustained
)

func (s State) String() string {
	switch s {
	case Sounding:
		return "sounding"
	case Sustained:
		return "sustained"
	default:
		return "free"
	}
}

// ----- Voice ----- //

// Voice is one polyphony slot: a node graph plus the performance state of the note it
// plays. Channel and note are only changed by the dispatcher, under the scheduler lock.
type Voice struct {
	index           int
	group           int
	channel         int
	note            int
	noteOns         uint64
	pitch           float64
	bend            float64
	velocity        float64
	releaseVelocity float64
	aftertouch      float64
	state           State
	graph           *unit.Graph
	rand            *rand.Rand
	pool            *Pool
	resetRequested  bool
}

func newVoice(pool *Pool, index int) *Voice {
	v := &Voice{
		index:   index,
		channel: ChannelNone,
		note:    -1,
		bend:    1,
		pitch:   NoteToFreq(69),
		graph:   &unit.Graph{},
		rand:    rand.New(rand.NewSource(int64(index) + 1)),
		pool:    pool,
	}
	return v
}

// Index returns the slot number.
func (v *Voice) Index() int { return v.index }

// Group returns the id of the owning group.
func (v *Voice) Group() int { return v.group }

// Channel returns the MIDI channel currently assigned, or ChannelNone.
func (v *Voice) Channel() int { return v.channel }

// State returns the queue state.
func (v *Voice) State() State { return v.state }

// NoteOns counts every allocation of the voice.
func (v *Voice) NoteOns() uint64 { return v.noteOns }

// Assign points the voice at a new note. It does not gate.
func (v *Voice) Assign(channel, note int, velocity float64) {
	v.channel = channel
	v.note = note
	v.pitch = NoteToFreq(note)
	v.velocity = velocity
	v.releaseVelocity = 0
	v.aftertouch = 0
	v.noteOns++
}

// Retune changes the note without counting a new allocation.
func (v *Voice) Retune(note int) {
	v.note = note
	v.pitch = NoteToFreq(note)
}

// SetChannel changes the assigned channel.
func (v *Voice) SetChannel(channel int) { v.channel = channel }

// SetBend sets the pitch bend multiplier.
func (v *Voice) SetBend(bend float64) { v.bend = bend }

// SetAftertouch sets the pressure in [0,1].
func (v *Voice) SetAftertouch(a float64) { v.aftertouch = a }

// SetReleaseVelocity sets the note-off velocity in [0,1].
func (v *Voice) SetReleaseVelocity(vel float64) { v.releaseVelocity = vel }

// Load rebuilds the graph from a patch.
func (v *Voice) Load(p *unit.Patch) error {
	g, err := unit.Load(p, v)
	if err != nil {
		return fmt.Errorf("voice %d: %w", v.index, err)
	}
	v.graph = g
	v.Reset()
	return nil
}

// Save produces the patch of the current graph.
func (v *Voice) Save() *unit.Patch {
	return unit.SaveGraph(v.graph)
}

// Nodes returns the registered nodes in evaluation order.
func (v *Voice) Nodes() []unit.Node { return v.graph.Nodes }

// Emits returns the partials of the designated emitter, or the silent set.
func (v *Voice) Emits() *unit.Partials {
	if v.graph.Emits == nil {
		return unit.Nil.AsUnit().Output(0)
	}
	return v.graph.Emits.AsUnit().Output(v.graph.Output)
}

// Emitter returns the designated emitter, which may be nil.
func (v *Voice) Emitter() unit.UnitNode { return v.graph.Emits }

// Go advances every node once, in registration order.
func (v *Voice) Go() {
	for _, n := range v.graph.Nodes {
		n.Go()
	}
}

// Gate starts a note on every node and requests a restart of the synthesis state.
func (v *Voice) Gate() {
	v.resetRequested = true
	for _, n := range v.graph.Nodes {
		n.Gate()
	}
}

// Release ends the note on every node.
func (v *Voice) Release() {
	for _, n := range v.graph.Nodes {
		n.Release()
	}
}

// Restart restarts free-running modulators.
func (v *Voice) Restart() {
	for _, n := range v.graph.Nodes {
		n.Restart()
	}
}

// Reset returns every node to its initial state.
func (v *Voice) Reset() {
	for _, n := range v.graph.Nodes {
		n.Reset()
	}
}

// TakeReset reports and clears a pending restart request.
func (v *Voice) TakeReset() bool {
	r := v.resetRequested
	v.resetRequested = false
	return r
}

// ----- Host ----- //

func (v *Voice) Pitch() float64           { return v.pitch }
func (v *Voice) Note() int                { return v.note }
func (v *Voice) Velocity() float64        { return v.velocity }
func (v *Voice) ReleaseVelocity() float64 { return v.releaseVelocity }
func (v *Voice) Aftertouch() float64      { return v.aftertouch }
func (v *Voice) Bend() float64            { return v.bend }
func (v *Voice) SyncTick() int64          { return v.pool.Transport.SyncTick }
func (v *Voice) ClockTick() float64       { return v.pool.Transport.ClockTick }
func (v *Voice) SampleRate() float64      { return v.pool.Transport.SampleRate }
func (v *Voice) TicksPerSecond() float64  { return v.pool.Transport.TicksPerSecond }
func (v *Voice) Rand() *rand.Rand         { return v.rand }

func (v *Voice) controllerChannel() int {
	if v.channel < 0 || v.channel > ChannelOmni {
		return ChannelOmni
	}
	return v.channel
}

func (v *Voice) CC(num int) float64 {
	if num < 0 || num > 127 {
		return 0
	}
	return v.pool.Controllers.CC[v.controllerChannel()][num]
}

func (v *Voice) NRPN(param int) float64 {
	return v.pool.Controllers.NRPN[v.controllerChannel()][param]
}
