package midi

import (
	"log"
	"math"
)

// ----- Clock ----- //

// ClockState is the synchronization state of the MIDI clock follower.
type ClockState int

const (
	WaitingForStart ClockState = iota
	WaitingForFirstPulse
	WaitingForSecondPulse
	Going
	Paused
	Unpaused
)

func (s ClockState) String() string {
	switch s {
	case WaitingForFirstPulse:
		return "waiting-for-first-pulse"
	case WaitingForSecondPulse:
		return "waiting-for-second-pulse"
	case Going:
		return "going"
	case Paused:
		return "paused"
	case Unpaused:
		return "unpaused"
	default:
		return "waiting-for-start"
	}
}

const (
	pulsesPerQuarter = 24
	nominalBPM       = 120
	deltaSmoothing   = 0.5
	tickSmoothing    = 0.1
	// a target this far below the smoothed position means the clock restarted
	resyncThreshold = 1500
)

// Clock follows MIDI clock pulses and publishes a smoothed virtual tick position.
// The position is measured in scheduler ticks at the nominal tempo, so a beat always
// spans the same number of virtual ticks whatever the incoming tempo is.
type Clock struct {
	state          ClockState
	ticksPerSecond float64
	ticksPerPulse  float64
	pulses         int64
	lastPulse      int64
	delta          float64
	tick           float64
}

// NewClock returns a clock waiting for START.
func NewClock(ticksPerSecond float64) *Clock {
	return &Clock{
		ticksPerSecond: ticksPerSecond,
		ticksPerPulse:  ticksPerSecond * 60 / nominalBPM / pulsesPerQuarter,
	}
}

// State returns the current state.
func (c *Clock) State() ClockState { return c.state }

// TicksPerPulse returns the virtual ticks one pulse advances.
func (c *Clock) TicksPerPulse() float64 { return c.ticksPerPulse }

// Pulses returns the pulses counted since the first pulse after START.
func (c *Clock) Pulses() int64 { return c.pulses }

// Tick returns the smoothed virtual tick position.
func (c *Clock) Tick() float64 { return c.tick }

// Start handles START.
func (c *Clock) Start() {
	c.pulses = 0
	c.state = WaitingForFirstPulse
}

// Stop handles STOP.
func (c *Clock) Stop() {
	if c.state == Going || c.state == Unpaused {
		c.state = Paused
	}
}

// Continue handles CONTINUE.
func (c *Clock) Continue() {
	if c.state == Paused {
		c.state = Unpaused
	}
}

// Pulse handles one timing clock message received at scheduler tick now.
func (c *Clock) Pulse(now int64) {
	switch c.state {
	case WaitingForFirstPulse:
		c.lastPulse = now
		c.state = WaitingForSecondPulse
	case WaitingForSecondPulse:
		c.delta = float64(now - c.lastPulse)
		c.lastPulse = now
		c.pulses++
		c.state = Going
	case Going:
		c.delta = deltaSmoothing*float64(now-c.lastPulse) + (1-deltaSmoothing)*c.delta
		c.lastPulse = now
		c.pulses++
	case Unpaused:
		c.lastPulse = now
		c.pulses++
		c.state = Going
	}
}

// Update moves the smoothed position toward the pulse-derived target. It runs once
// per scheduler tick and returns the new position.
func (c *Clock) Update(now int64) float64 {
	if c.state != Going {
		return c.tick
	}
	progress := 0.0
	if c.delta > 0 {
		progress = math.Min(1, float64(now-c.lastPulse)/c.delta)
	}
	target := (float64(c.pulses) + progress) * c.ticksPerPulse
	if target < c.tick-resyncThreshold {
		log.Printf("[WARN] MIDI clock jumped back from %.0f to %.0f, resyncing", c.tick, target)
		c.tick = target
		return c.tick
	}
	c.tick += tickSmoothing * (target - c.tick)
	return c.tick
}

// BPM estimates the incoming tempo, or returns 0 before two pulses arrived.
func (c *Clock) BPM() float64 {
	if c.delta <= 0 {
		return 0
	}
	return c.ticksPerSecond / c.delta * 60 / pulsesPerQuarter
}
