package midi

import (
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jinjor/partials/src/sound"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// ----- Bend ----- //

// BendMultiplier converts a raw 14-bit bend (-8192..8191) into a frequency ratio
// across a range of octaves either way.
func BendMultiplier(raw int, octaves float64) float64 {
	return math.Pow(2, float64(raw)/8191*octaves)
}

// ----- Dispatcher ----- //

const (
	defaultBendRange    = 2.0 / 12  // octaves
	defaultMPEBendRange = 48.0 / 12 // octaves
	globalLower         = 0
	globalUpper         = 15
)

type message struct {
	tick int64
	data []byte
}

type heldKey struct {
	channel  int
	note     int
	velocity float64
}

// Dispatcher drains the MIDI messages queued by device callbacks once per tick and
// turns them into voice allocation, bend, pressure and controller updates. Everything
// except Receive runs under the scheduler lock.
type Dispatcher struct {
	pool      *sound.Pool
	clock     *Clock
	parser    *Parser
	now       atomic.Int64
	mu        sync.Mutex
	queue     []message
	draining  []message
	events    []Event
	mono      bool
	held      []heldKey
	sustain   bool
	bend      [ChannelCount]float64
	bendRange [16]float64
	mpeRange  float64
	lowerZone int
	upperZone int
}

// ChannelCount covers the 16 channels, omni and the two zone slots.
const ChannelCount = 19

// NewDispatcher returns a dispatcher feeding pool.
func NewDispatcher(pool *sound.Pool, clock *Clock) *Dispatcher {
	d := &Dispatcher{
		pool:     pool,
		clock:    clock,
		parser:   NewParser(),
		mpeRange: defaultMPEBendRange,
	}
	for i := range d.bend {
		d.bend[i] = 1
	}
	for i := range d.bendRange {
		d.bendRange[i] = defaultBendRange
	}
	return d
}

// Clock returns the clock follower.
func (d *Dispatcher) Clock() *Clock { return d.clock }

// Receive queues a raw message. It is safe to call from any goroutine.
func (d *Dispatcher) Receive(data []byte) {
	if len(data) == 0 {
		return
	}
	m := message{tick: d.now.Load(), data: append([]byte(nil), data...)}
	d.mu.Lock()
	d.queue = append(d.queue, m)
	d.mu.Unlock()
}

// Pending returns the number of queued messages.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Tick drains the queue, then advances the clock follower.
func (d *Dispatcher) Tick(now int64) {
	d.now.Store(now)
	d.mu.Lock()
	d.queue, d.draining = d.draining[:0], d.queue
	d.mu.Unlock()
	for _, m := range d.draining {
		d.handle(m)
	}
	d.pool.Transport.ClockTick = d.clock.Update(now)
}

// SetMono switches "only play first sound" mode of the primary group.
func (d *Dispatcher) SetMono(mono bool) {
	if d.mono == mono {
		return
	}
	d.mono = mono
	d.held = d.held[:0]
}

// Mono reports whether the primary group is monophonic.
func (d *Dispatcher) Mono() bool { return d.mono }

// SetBendRange sets the bend range in semitones of every channel.
func (d *Dispatcher) SetBendRange(semitones float64) {
	for i := range d.bendRange {
		d.bendRange[i] = semitones / 12
	}
}

// SetMPEBendRange sets the bend range in semitones of MPE member channels.
func (d *Dispatcher) SetMPEBendRange(semitones float64) {
	d.mpeRange = semitones / 12
}

// SetZones sets how many member channels the lower and upper MPE zones span.
func (d *Dispatcher) SetZones(lower, upper int) {
	d.lowerZone = clampZone(lower)
	d.upperZone = clampZone(upper)
}

// Zones returns the member counts of the lower and upper zones.
func (d *Dispatcher) Zones() (int, int) { return d.lowerZone, d.upperZone }

// Sustaining reports whether the pedal is down.
func (d *Dispatcher) Sustaining() bool { return d.sustain }

func clampZone(n int) int {
	if n < 0 {
		return 0
	}
	if n > 15 {
		return 15
	}
	return n
}

func (d *Dispatcher) handle(m message) {
	msg := gomidi.Message(m.data)
	var ch, key, vel, cc, val, pressure uint8
	var rel int16
	var abs uint16
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		d.clock.Pulse(m.tick)
	case msg.Is(gomidi.StartMsg):
		d.clock.Start()
	case msg.Is(gomidi.StopMsg):
		d.clock.Stop()
	case msg.Is(gomidi.ContinueMsg):
		d.clock.Continue()
	case msg.GetNoteStart(&ch, &key, &vel):
		d.NoteOn(int(ch), int(key), int(vel))
	case msg.GetNoteOff(&ch, &key, &vel):
		d.NoteOff(int(ch), int(key), int(vel))
	case msg.GetNoteEnd(&ch, &key):
		d.NoteOff(int(ch), int(key), 0)
	case msg.GetControlChange(&ch, &cc, &val):
		d.ControlChange(int(ch), int(cc), int(val))
	case msg.GetPitchBend(&ch, &rel, &abs):
		d.PitchBend(int(ch), int(rel))
	case msg.GetAfterTouch(&ch, &pressure):
		d.Aftertouch(int(ch), int(pressure))
	case msg.GetPolyAfterTouch(&ch, &key, &pressure):
		d.PolyAftertouch(int(ch), int(key), int(pressure))
	}
}

// ----- Channels and zones ----- //

func (d *Dispatcher) zoneOf(ch int) int {
	primary := d.pool.Groups[0].Channel
	switch primary {
	case sound.ChannelLowerZone:
		if d.lowerZone > 0 && ch >= globalLower && ch <= globalLower+d.lowerZone {
			return sound.ChannelLowerZone
		}
	case sound.ChannelUpperZone:
		if d.upperZone > 0 && ch <= globalUpper && ch >= globalUpper-d.upperZone {
			return sound.ChannelUpperZone
		}
	}
	return sound.ChannelNone
}

func zoneGlobal(zone int) int {
	if zone == sound.ChannelUpperZone {
		return globalUpper
	}
	return globalLower
}

// isMember reports whether ch is a per-note channel of an active MPE zone.
func (d *Dispatcher) isMember(ch int) bool {
	zone := d.zoneOf(ch)
	return zone != sound.ChannelNone && ch != zoneGlobal(zone)
}

// isGlobal reports whether ch is the global channel of an active MPE zone.
func (d *Dispatcher) isGlobal(ch int) bool {
	zone := d.zoneOf(ch)
	return zone != sound.ChannelNone && ch == zoneGlobal(zone)
}

func (d *Dispatcher) resolveGroup(ch, note int) int {
	groups := d.pool.Groups
	for i := 1; i < len(groups); i++ {
		if groups[i].Channel == ch && groups[i].InRange(note) {
			return i
		}
	}
	primary := groups[0]
	if !primary.InRange(note) {
		return -1
	}
	switch primary.Channel {
	case sound.ChannelOmni:
		return 0
	case sound.ChannelLowerZone, sound.ChannelUpperZone:
		if d.zoneOf(ch) == primary.Channel {
			return 0
		}
	default:
		if primary.Channel == ch {
			return 0
		}
	}
	return -1
}

func (d *Dispatcher) bendFor(ch int) float64 {
	if ch == sound.ChannelOmni {
		return d.bend[sound.ChannelOmni]
	}
	if ch < 0 || ch >= 16 {
		return 1
	}
	b := d.bend[ch]
	if d.isMember(ch) {
		b *= d.bend[zoneGlobal(d.zoneOf(ch))]
	}
	return b
}

// matches reports whether a voice on voiceCh is addressed by a message on ch.
func (d *Dispatcher) matches(voiceCh, ch int) bool {
	if voiceCh == ch || voiceCh == sound.ChannelOmni {
		return true
	}
	if d.isGlobal(ch) && voiceCh >= 0 && voiceCh < 16 {
		return d.zoneOf(voiceCh) == d.zoneOf(ch)
	}
	return false
}

// ----- Notes ----- //

// NoteOn allocates a voice for the note, or retunes the mono voice.
func (d *Dispatcher) NoteOn(ch, note, velocity int) {
	if velocity == 0 {
		d.NoteOff(ch, note, 0)
		return
	}
	group := d.resolveGroup(ch, note)
	if group < 0 {
		log.Printf("[WARN] note on %d on channel %d dropped: no group claims it", note, ch)
		return
	}
	vel := float64(velocity) / 127
	voiceCh := ch
	if d.pool.Groups[group].Channel == sound.ChannelOmni {
		voiceCh = sound.ChannelOmni
	}
	if group == 0 && d.mono {
		d.monoNoteOn(voiceCh, note, vel)
		return
	}
	v := d.pool.Allocate(group)
	if v == nil {
		return
	}
	wasSounding := v.State() != sound.Free
	oldPitch := v.Pitch()
	v.Assign(voiceCh, note, vel)
	v.SetBend(d.bendFor(voiceCh))
	d.pool.MarkOn(v)
	if !(wasSounding && oldPitch != v.Pitch()) {
		v.Gate()
	}
}

func (d *Dispatcher) monoVoice() *sound.Voice {
	for _, v := range d.pool.Voices {
		if v.Group() == 0 {
			return v
		}
	}
	return nil
}

func (d *Dispatcher) removeHeld(ch, note int) bool {
	for i, k := range d.held {
		if k.note == note && (k.channel == ch || k.channel == sound.ChannelOmni) {
			d.held = append(d.held[:i], d.held[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Dispatcher) monoNoteOn(ch, note int, vel float64) {
	v := d.monoVoice()
	if v == nil {
		return
	}
	d.removeHeld(ch, note)
	d.held = append(d.held, heldKey{channel: ch, note: note, velocity: vel})
	wasSounding := v.State() != sound.Free
	v.Assign(ch, note, vel)
	v.SetBend(d.bendFor(ch))
	d.pool.MarkOn(v)
	if !wasSounding {
		v.Gate()
	}
}

// NoteOff releases the most recent sounding voice playing the note.
func (d *Dispatcher) NoteOff(ch, note, velocity int) {
	if group := d.resolveGroup(ch, note); group == 0 && d.mono {
		d.monoNoteOff(ch, note, velocity)
		return
	}
	d.releaseNote(ch, note, velocity)
}

func (d *Dispatcher) releaseNote(ch, note, velocity int) {
	v := d.pool.Find(func(v *sound.Voice) bool {
		return v.Note() == note && (v.Channel() == ch || v.Channel() == sound.ChannelOmni)
	})
	if v == nil {
		return
	}
	d.release(v, velocity)
}

func (d *Dispatcher) release(v *sound.Voice, velocity int) {
	v.SetReleaseVelocity(float64(velocity) / 127)
	member := d.isMember(v.Channel())
	if d.sustain {
		d.pool.Sustain(v)
	} else {
		d.pool.MarkOff(v)
	}
	if member {
		v.SetChannel(sound.ChannelNone)
	}
}

func (d *Dispatcher) monoNoteOff(ch, note, velocity int) {
	voiceCh := ch
	if d.pool.Groups[0].Channel == sound.ChannelOmni {
		voiceCh = sound.ChannelOmni
	}
	if !d.removeHeld(voiceCh, note) {
		// started before mono was switched on
		d.releaseNote(ch, note, velocity)
		return
	}
	v := d.monoVoice()
	if v == nil || v.State() == sound.Free {
		return
	}
	if len(d.held) > 0 {
		top := d.held[len(d.held)-1]
		if v.Note() != top.note || v.Channel() != top.channel {
			v.SetChannel(top.channel)
			v.Retune(top.note)
			v.SetBend(d.bendFor(top.channel))
		}
		return
	}
	if v.Note() == note {
		d.release(v, velocity)
	}
}

// ----- Bend and pressure ----- //

// PitchBend updates the bend of the channel and of every voice it addresses.
func (d *Dispatcher) PitchBend(ch, raw int) {
	if ch < 0 || ch >= 16 {
		return
	}
	octaves := d.bendRange[ch]
	if d.isMember(ch) {
		octaves = d.mpeRange
	}
	mult := BendMultiplier(raw, octaves)
	d.bend[ch] = mult
	d.bend[sound.ChannelOmni] = mult
	if zone := d.zoneOf(ch); zone != sound.ChannelNone && ch == zoneGlobal(zone) {
		d.bend[zone] = mult
	}
	d.pool.Each(func(v *sound.Voice) {
		if d.matches(v.Channel(), ch) {
			v.SetBend(d.bendFor(v.Channel()))
		}
	})
}

// Aftertouch fans channel pressure out like bend.
func (d *Dispatcher) Aftertouch(ch, pressure int) {
	p := float64(clamp7(pressure)) / 127
	d.pool.Each(func(v *sound.Voice) {
		if d.matches(v.Channel(), ch) {
			v.SetAftertouch(p)
		}
	})
}

// PolyAftertouch sets the pressure of the voice playing note.
func (d *Dispatcher) PolyAftertouch(ch, note, pressure int) {
	p := float64(clamp7(pressure)) / 127
	d.pool.Each(func(v *sound.Voice) {
		if v.Note() == note && (v.Channel() == ch || v.Channel() == sound.ChannelOmni) {
			v.SetAftertouch(p)
		}
	})
}

// ----- Controllers ----- //

const (
	ccSustain     = 64
	ccAllSoundOff = 120
	ccAllNotesOff = 123
	rpnBendRange  = 0
	rpnMPEConfig  = 6
)

// ControlChange runs one control change through the parser and applies the events.
func (d *Dispatcher) ControlChange(ch, num, value int) {
	d.events = d.parser.Parse(d.events[:0], ch, num, value)
	for _, e := range d.events {
		switch e.Kind {
		case EventCC:
			d.controller(e.Channel, e.Param, e.Value)
		case EventNRPN:
			d.setNRPN(e.Channel, e.Param, float64(e.Value)/16383)
		case EventRPN:
			d.rpn(e)
		case EventIncrement, EventDecrement:
			d.step(e)
		}
	}
}

func (d *Dispatcher) controller(ch, num, value int) {
	ctl := &d.pool.Controllers
	v := float64(value) / 127
	ctl.CC[ch][num] = v
	ctl.CC[sound.ChannelOmni][num] = v
	if d.isGlobal(ch) {
		zone := d.zoneOf(ch)
		for m := 0; m < 16; m++ {
			if m != ch && d.zoneOf(m) == zone {
				ctl.CC[m][num] = v
			}
		}
	}
	switch num {
	case ccSustain:
		if value >= 64 {
			d.sustain = true
		} else {
			d.sustain = false
			d.pool.ReleaseSustained()
		}
	case ccAllSoundOff, ccAllNotesOff:
		d.allOff(ch, num == ccAllSoundOff)
	}
}

func (d *Dispatcher) allOff(ch int, reset bool) {
	var targets []*sound.Voice
	d.pool.Each(func(v *sound.Voice) {
		if d.matches(v.Channel(), ch) {
			targets = append(targets, v)
		}
	})
	for _, v := range targets {
		d.pool.MarkOff(v)
		if reset {
			v.Reset()
		}
	}
	d.held = d.held[:0]
}

func (d *Dispatcher) setNRPN(ch, param int, v float64) {
	ctl := &d.pool.Controllers
	v = math.Max(0, math.Min(1, v))
	ctl.NRPN[ch][param] = v
	ctl.NRPN[sound.ChannelOmni][param] = v
}

func (d *Dispatcher) rpn(e Event) {
	switch e.Param {
	case rpnBendRange:
		if e.Channel >= 16 {
			return
		}
		semis := float64(e.Value >> 7)
		cents := float64(e.Value & 0x7f)
		d.bendRange[e.Channel] = (semis + cents/100) / 12
	case rpnMPEConfig:
		if !e.ValidMSB {
			return
		}
		members := e.Value >> 7
		switch e.Channel {
		case globalLower:
			d.lowerZone = clampZone(members)
			log.Printf("MPE lower zone: %d member channels", d.lowerZone)
		case globalUpper:
			d.upperZone = clampZone(members)
			log.Printf("MPE upper zone: %d member channels", d.upperZone)
		}
	}
}

func (d *Dispatcher) step(e Event) {
	sign := 1.0
	if e.Kind == EventDecrement {
		sign = -1
	}
	if e.NRPN {
		cur := d.pool.Controllers.NRPN[e.Channel][e.Param]
		d.setNRPN(e.Channel, e.Param, cur+sign*float64(e.Value)/16383)
		return
	}
	if e.Param == rpnBendRange && e.Channel < 16 {
		semis := d.bendRange[e.Channel]*12 + sign*float64(e.Value)
		d.bendRange[e.Channel] = math.Max(0, math.Min(127, semis)) / 12
	}
}
