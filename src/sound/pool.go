package sound

import (
	"fmt"
	"log"

	"github.com/jinjor/partials/src/unit"
)

// ----- Transport ----- //

// Transport is the time base shared by every voice. The scheduler writes it once
// per tick before the voices advance.
type Transport struct {
	SyncTick       int64
	ClockTick      float64
	SampleRate     float64
	TicksPerSecond float64
}

// ----- Controllers ----- //

// Controllers keeps the last controller values per channel, normalized to [0,1].
// Slot 16 is the omni slot every value is mirrored into.
type Controllers struct {
	CC   [17][128]float64
	NRPN [17]map[int]float64
}

func (c *Controllers) init() {
	for i := range c.NRPN {
		c.NRPN[i] = make(map[int]float64)
	}
}

// ----- Pool ----- //

// Pool owns the voices, the groups and the queues the dispatcher moves voices
// between. The head of every queue (index 0) is the most recent entry.
type Pool struct {
	Voices      []*Voice
	Groups      []*Group
	Controllers Controllers
	Transport   Transport
	on          []*Voice
	off         []*Voice
	sustained   []*Voice
}

// NewPool creates n free voices owned by a primary group listening on omni.
func NewPool(n int, t Transport) *Pool {
	p := &Pool{Transport: t}
	p.Controllers.init()
	primary := NewGroup(ChannelOmni)
	p.Groups = []*Group{primary}
	p.Resize(n)
	return p
}

// Resize changes the number of voices. Every voice becomes free, groups are reassigned
// and group patches reloaded.
func (p *Pool) Resize(n int) error {
	for len(p.Voices) < n {
		p.Voices = append(p.Voices, newVoice(p, len(p.Voices)))
	}
	p.Voices = p.Voices[:n]
	p.on = p.on[:0]
	p.sustained = p.sustained[:0]
	p.off = p.off[:0]
	for i := len(p.Voices) - 1; i >= 0; i-- {
		v := p.Voices[i]
		v.state = Free
		v.channel = ChannelNone
		p.off = append(p.off, v)
	}
	p.Assign()
	return p.LoadPatches()
}

// Assign distributes voices to groups by requested count; the primary group takes the rest.
func (p *Pool) Assign() {
	next := len(p.Voices)
	for gi := len(p.Groups) - 1; gi >= 1; gi-- {
		for k := 0; k < p.Groups[gi].Voices && next > 0; k++ {
			next--
			p.Voices[next].group = gi
		}
	}
	for i := 0; i < next; i++ {
		p.Voices[i].group = 0
	}
	p.Groups[0].Voices = next
}

// SetGroups replaces the groups after validating them, then reassigns and reloads voices.
func (p *Pool) SetGroups(groups []*Group) error {
	if err := ValidateGroups(groups); err != nil {
		return err
	}
	p.Groups = groups
	p.Assign()
	return p.LoadPatches()
}

// AddGroup appends a group.
func (p *Pool) AddGroup(g *Group) error {
	return p.SetGroups(append(p.Groups[:len(p.Groups):len(p.Groups)], g))
}

// RemoveGroup deletes group i. The primary group cannot be removed.
func (p *Pool) RemoveGroup(i int) error {
	if i == 0 {
		return ErrPrimaryGroup
	}
	if i < 0 || i >= len(p.Groups) {
		return fmt.Errorf("no group %d", i)
	}
	groups := append(append([]*Group{}, p.Groups[:i]...), p.Groups[i+1:]...)
	return p.SetGroups(groups)
}

// LoadPatches rebuilds every voice graph from the patch of its group.
// Groups without a patch leave their voices untouched.
func (p *Pool) LoadPatches() error {
	patches := make([]*unit.Patch, len(p.Groups))
	for i, g := range p.Groups {
		if len(g.Patch) == 0 {
			continue
		}
		patch, err := unit.ParsePatch(g.Patch)
		if err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		patches[i] = patch
	}
	for _, v := range p.Voices {
		patch := patches[v.group]
		if patch == nil {
			continue
		}
		if err := v.Load(patch); err != nil {
			return err
		}
	}
	return nil
}

// SetPatch stores a patch on group i and loads it into the group's voices.
func (p *Pool) SetPatch(i int, patch *unit.Patch) error {
	if i < 0 || i >= len(p.Groups) {
		return fmt.Errorf("no group %d", i)
	}
	data, err := patch.JSON()
	if err != nil {
		return err
	}
	p.Groups[i].Patch = data
	for _, v := range p.Voices {
		if v.group != i {
			continue
		}
		if err := v.Load(patch); err != nil {
			return err
		}
	}
	return nil
}

// ----- Queues ----- //

// On returns the playing queue, most recent first.
func (p *Pool) On() []*Voice { return p.on }

// Off returns the not-playing queue, most recently freed first.
func (p *Pool) Off() []*Voice { return p.off }

// SustainedQueue returns the voices waiting for pedal up, most recent first.
func (p *Pool) SustainedQueue() []*Voice { return p.sustained }

func remove(q []*Voice, v *Voice) []*Voice {
	for i, w := range q {
		if w == v {
			return append(q[:i], q[i+1:]...)
		}
	}
	return q
}

func pushFront(q []*Voice, v *Voice) []*Voice {
	q = append(q, nil)
	copy(q[1:], q)
	q[0] = v
	return q
}

func (p *Pool) unlink(v *Voice) {
	switch v.state {
	case Sounding:
		p.on = remove(p.on, v)
	case Sustained:
		p.sustained = remove(p.sustained, v)
	default:
		p.off = remove(p.off, v)
	}
}

// MarkOn moves v to the head of the playing queue.
func (p *Pool) MarkOn(v *Voice) {
	p.unlink(v)
	v.state = Sounding
	p.on = pushFront(p.on, v)
}

// MarkOff releases v and moves it to the head of the not-playing queue.
func (p *Pool) MarkOff(v *Voice) {
	if v.state == Free {
		return
	}
	p.unlink(v)
	v.state = Free
	p.off = pushFront(p.off, v)
	v.Release()
}

// Sustain moves a sounding voice to the sustain queue; it keeps sounding.
func (p *Pool) Sustain(v *Voice) {
	if v.state != Sounding {
		return
	}
	p.unlink(v)
	v.state = Sustained
	p.sustained = pushFront(p.sustained, v)
}

// ReleaseSustained releases every voice waiting in the sustain queue.
func (p *Pool) ReleaseSustained() {
	for len(p.sustained) > 0 {
		p.MarkOff(p.sustained[len(p.sustained)-1])
	}
}

// Allocate picks a voice of group: the oldest free one, else the oldest sustained one,
// else the oldest sounding one. It returns nil when the group owns no voice.
func (p *Pool) Allocate(group int) *Voice {
	for _, q := range [][]*Voice{p.off, p.sustained, p.on} {
		for i := len(q) - 1; i >= 0; i-- {
			if q[i].group == group {
				return q[i]
			}
		}
	}
	if group < len(p.Groups) && p.Groups[group].Voices > 0 {
		log.Printf("[WARN] group %d has %d voices but none is queued", group, p.Groups[group].Voices)
	}
	return nil
}

// Find returns the most recent voice in the playing queue matching the predicate.
func (p *Pool) Find(match func(v *Voice) bool) *Voice {
	for _, v := range p.on {
		if match(v) {
			return v
		}
	}
	return nil
}

// Each calls f for every sounding or sustained voice.
func (p *Pool) Each(f func(v *Voice)) {
	for _, v := range p.on {
		f(v)
	}
	for _, v := range p.sustained {
		f(v)
	}
}
