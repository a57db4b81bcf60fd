package sound

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ----- Group ----- //

// Group owns a share of the voices and claims a channel and note range for them.
// Group 0 is the primary group: it always exists and takes the voices the other
// groups did not request.
type Group struct {
	Channel int             `json:"channel" yaml:"channel"`
	Min     int             `json:"min" yaml:"min"`
	Max     int             `json:"max" yaml:"max"`
	Voices  int             `json:"voices" yaml:"voices"`
	Gain    float64         `json:"gain" yaml:"gain"`
	Patch   json.RawMessage `json:"patch,omitempty" yaml:"-"`
}

// NewGroup returns a group covering the whole keyboard on channel.
func NewGroup(channel int) *Group {
	return &Group{Channel: channel, Min: 0, Max: 127, Gain: 1}
}

// Validate checks the invariants of a group at position index.
func (g *Group) Validate(index int) error {
	if g.Min < 0 || g.Max > 127 {
		return fmt.Errorf("group %d: note range [%d,%d] out of [0,127]", index, g.Min, g.Max)
	}
	if g.Min > g.Max {
		return fmt.Errorf("group %d: min %d above max %d", index, g.Min, g.Max)
	}
	if g.Voices < 0 {
		return fmt.Errorf("group %d: negative voice count", index)
	}
	switch {
	case g.Channel == ChannelNone, g.Channel >= 0 && g.Channel < 16:
	case g.Channel == ChannelOmni || g.Channel == ChannelLowerZone || g.Channel == ChannelUpperZone:
		if index != 0 {
			return fmt.Errorf("group %d: only the primary group may use omni or an MPE zone", index)
		}
	default:
		return fmt.Errorf("group %d: invalid channel %d", index, g.Channel)
	}
	return nil
}

// InRange reports whether note falls inside the group's range.
func (g *Group) InRange(note int) bool {
	return note >= g.Min && note <= g.Max
}

// ErrPrimaryGroup is returned when removing group 0.
var ErrPrimaryGroup = errors.New("the primary group cannot be removed")

// ValidateGroups checks every group and that the primary group exists.
func ValidateGroups(groups []*Group) error {
	if len(groups) == 0 {
		return ErrPrimaryGroup
	}
	for i, g := range groups {
		if err := g.Validate(i); err != nil {
			return err
		}
	}
	return nil
}
