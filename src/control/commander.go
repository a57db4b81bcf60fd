package control

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/jinjor/partials/src/audio"
	"github.com/jinjor/partials/src/midi"
	"github.com/jinjor/partials/src/prefs"
	"github.com/jinjor/partials/src/sound"
)

// Commander executes text commands against a running synthesizer. Every surface
// (socket, MCP tools) goes through Execute.
type Commander struct {
	output  *audio.Output
	library *sound.Library
	prefs   *prefs.Store
}

// NewCommander returns a commander. prefs may be nil.
func NewCommander(output *audio.Output, library *sound.Library, prefs *prefs.Store) *Commander {
	return &Commander{output: output, library: library, prefs: prefs}
}

type command struct {
	args  string
	arity int
	run   func(c *Commander, args []string) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"note_on":  {"channel note velocity", 3, (*Commander).noteOn},
		"note_off": {"channel note", 2, (*Commander).noteOff},
		"cc":       {"channel number value", 3, (*Commander).controlChange},
		"bend":     {"channel value", 2, (*Commander).bend},
		"panic":    {"", 0, (*Commander).panic},
		"gain":     {"value", 1, (*Commander).gain},
		"voices":   {"count", 1, (*Commander).voices},
		"mono":     {"on|off", 1, (*Commander).mono},
		"solo":     {"voice|off", 1, (*Commander).solo},
		"velocity": {"on|off", 1, (*Commander).velocity},
		"patch":    {"name", 1, (*Commander).patch},
		"patches":  {"", 0, (*Commander).patches},
		"save":     {"name", 1, (*Commander).save},
		"groups":   {"", 0, (*Commander).groups},
		"status":   {"", 0, (*Commander).status},
		"help":     {"", 0, (*Commander).help},
	}
}

// Execute runs one command given as tokens.
func (c *Commander) Execute(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("empty command")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return "", fmt.Errorf("unknown command: %s", args[0])
	}
	if len(args)-1 != cmd.arity {
		return "", fmt.Errorf("usage: %s %s", args[0], cmd.args)
	}
	return cmd.run(c, args[1:])
}

func (c *Commander) remember(key string, value interface{}) {
	if c.prefs == nil {
		return
	}
	c.prefs.Set(key, value)
	if err := c.prefs.Save(); err != nil {
		log.Printf("[WARN] failed to save preferences: %v", err)
	}
}

func parseInt(s string, lo, hi int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < lo || i > hi {
		return 0, fmt.Errorf("%d out of range [%d,%d]", i, lo, hi)
	}
	return i, nil
}

func parseInts(args []string, ranges ...[2]int) ([]int, error) {
	values := make([]int, len(args))
	for i, arg := range args {
		v, err := parseInt(arg, ranges[i][0], ranges[i][1])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off: %s", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// ----- MIDI ----- //

var (
	channelRange = [2]int{0, 15}
	dataRange    = [2]int{0, 127}
)

func (c *Commander) noteOn(args []string) (string, error) {
	v, err := parseInts(args, channelRange, dataRange, dataRange)
	if err != nil {
		return "", err
	}
	c.output.Do(func(_ *sound.Pool, d *midi.Dispatcher) {
		d.NoteOn(v[0], v[1], v[2])
	})
	return "", nil
}

func (c *Commander) noteOff(args []string) (string, error) {
	v, err := parseInts(args, channelRange, dataRange)
	if err != nil {
		return "", err
	}
	c.output.Do(func(_ *sound.Pool, d *midi.Dispatcher) {
		d.NoteOff(v[0], v[1], 0)
	})
	return "", nil
}

func (c *Commander) controlChange(args []string) (string, error) {
	v, err := parseInts(args, channelRange, dataRange, dataRange)
	if err != nil {
		return "", err
	}
	c.output.Do(func(_ *sound.Pool, d *midi.Dispatcher) {
		d.ControlChange(v[0], v[1], v[2])
	})
	return "", nil
}

func (c *Commander) bend(args []string) (string, error) {
	v, err := parseInts(args, channelRange, [2]int{-8192, 8191})
	if err != nil {
		return "", err
	}
	c.output.Do(func(_ *sound.Pool, d *midi.Dispatcher) {
		d.PitchBend(v[0], v[1])
	})
	return "", nil
}

func (c *Commander) panic(args []string) (string, error) {
	c.output.Do(func(_ *sound.Pool, d *midi.Dispatcher) {
		for ch := 0; ch < 16; ch++ {
			d.ControlChange(ch, 64, 0)
			d.ControlChange(ch, 120, 0)
		}
	})
	return "", nil
}

// ----- Settings ----- //

func (c *Commander) gain(args []string) (string, error) {
	g, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "", err
	}
	if g < 0 || g > 4 {
		return "", fmt.Errorf("gain %v out of range [0,4]", g)
	}
	c.output.SetGain(g)
	c.remember(prefs.AudioGain, g)
	return strconv.FormatFloat(g, 'f', -1, 64), nil
}

func (c *Commander) voices(args []string) (string, error) {
	n, err := parseInt(args[0], 1, 256)
	if err != nil {
		return "", err
	}
	if err := c.output.SetVoices(n); err != nil {
		return "", err
	}
	c.remember(prefs.Voices, n)
	return strconv.Itoa(n), nil
}

func (c *Commander) mono(args []string) (string, error) {
	on, err := parseOnOff(args[0])
	if err != nil {
		return "", err
	}
	c.output.Do(func(_ *sound.Pool, d *midi.Dispatcher) {
		d.SetMono(on)
	})
	c.remember(prefs.Mono, on)
	return onOff(on), nil
}

func (c *Commander) solo(args []string) (string, error) {
	voice := -1
	if args[0] != "off" {
		v, err := parseInt(args[0], 0, 255)
		if err != nil {
			return "", err
		}
		voice = v
	}
	c.output.SetSolo(voice)
	c.remember(prefs.AudioSolo, voice)
	if voice < 0 {
		return "off", nil
	}
	return strconv.Itoa(voice), nil
}

func (c *Commander) velocity(args []string) (string, error) {
	on, err := parseOnOff(args[0])
	if err != nil {
		return "", err
	}
	c.output.SetVelocitySensitive(on)
	c.remember(prefs.AudioVelocity, on)
	return onOff(on), nil
}

// ----- Patches ----- //

func (c *Commander) patch(args []string) (string, error) {
	p, err := c.library.Load(args[0])
	if err != nil {
		return "", err
	}
	c.output.Do(func(pool *sound.Pool, _ *midi.Dispatcher) {
		err = pool.SetPatch(0, p)
	})
	if err != nil {
		return "", err
	}
	c.remember(prefs.Patch, args[0])
	return args[0], nil
}

func (c *Commander) patches(args []string) (string, error) {
	names, err := c.library.List()
	if err != nil {
		return "", err
	}
	return strings.Join(names, " "), nil
}

func (c *Commander) save(args []string) (string, error) {
	var err error
	c.output.Do(func(pool *sound.Pool, _ *midi.Dispatcher) {
		for _, v := range pool.Voices {
			if v.Group() == 0 {
				err = c.library.Save(args[0], v.Save())
				return
			}
		}
		err = fmt.Errorf("the primary group has no voice")
	})
	if err != nil {
		return "", err
	}
	return args[0], nil
}

// ----- Monitoring ----- //

func (c *Commander) groups(args []string) (string, error) {
	var data []byte
	var err error
	c.output.Do(func(pool *sound.Pool, _ *midi.Dispatcher) {
		data, err = json.Marshal(pool.Groups)
	})
	return string(data), err
}

func (c *Commander) status(args []string) (string, error) {
	data, err := json.Marshal(c.output.Status())
	return string(data), err
}

func (c *Commander) help(args []string) (string, error) {
	lines := make([]string, 0, len(commands))
	for name, cmd := range commands {
		lines = append(lines, strings.TrimSpace(name+" "+cmd.args))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}
