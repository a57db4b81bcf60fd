package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jinjor/partials/src/audio"
	"github.com/jinjor/partials/src/midi"
	"github.com/jinjor/partials/src/prefs"
	"github.com/jinjor/partials/src/sound"
	"github.com/mark3labs/mcp-go/mcp"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
}

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Errorf("expected an error")
	}
}

func newTestCommander(t *testing.T) (*Commander, *audio.Output, *prefs.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := audio.DefaultConfig()
	pool := sound.NewPool(2, sound.Transport{})
	d := midi.NewDispatcher(pool, midi.NewClock(cfg.TicksPerSecond()))
	o := audio.NewOutput(cfg, pool, d, audio.NewBufferLine(cfg.BufferSize))
	t.Cleanup(func() {
		o.Close()
	})
	store := prefs.New(filepath.Join(dir, "prefs.yaml"))
	return NewCommander(o, sound.NewLibrary(filepath.Join(dir, "patches")), store), o, store
}

func status(t *testing.T, c *Commander) audio.Status {
	t.Helper()
	out, err := c.Execute([]string{"status"})
	expectNoError(t, err)
	var s audio.Status
	expectNoError(t, json.Unmarshal([]byte(out), &s))
	return s
}

func TestExecuteErrors(t *testing.T) {
	c, _, _ := newTestCommander(t)
	_, err := c.Execute(nil)
	expectError(t, err)
	_, err = c.Execute([]string{"explode"})
	expectError(t, err)
	_, err = c.Execute([]string{"note_on", "0", "60"})
	expectError(t, err)
	_, err = c.Execute([]string{"note_on", "16", "60", "100"})
	expectError(t, err)
	_, err = c.Execute([]string{"gain", "loud"})
	expectError(t, err)
	_, err = c.Execute([]string{"mono", "maybe"})
	expectError(t, err)
}

func TestNoteCommands(t *testing.T) {
	c, _, _ := newTestCommander(t)
	_, err := c.Execute([]string{"note_on", "0", "60", "100"})
	expectNoError(t, err)
	expectEqual(t, status(t, c).Sounding, 1)

	_, err = c.Execute([]string{"cc", "0", "64", "127"})
	expectNoError(t, err)
	_, err = c.Execute([]string{"note_off", "0", "60"})
	expectNoError(t, err)
	s := status(t, c)
	expectEqual(t, s.Sounding, 0)
	expectEqual(t, s.Sustained, 1)

	_, err = c.Execute([]string{"panic"})
	expectNoError(t, err)
	expectEqual(t, status(t, c).Sustained, 0)

	_, err = c.Execute([]string{"bend", "0", "-8192"})
	expectNoError(t, err)
}

func TestSettingsArePersisted(t *testing.T) {
	c, o, store := newTestCommander(t)
	out, err := c.Execute([]string{"gain", "0.5"})
	expectNoError(t, err)
	expectEqual(t, out, "0.5")
	expectEqual(t, o.Gain(), 0.5)

	_, err = c.Execute([]string{"voices", "4"})
	expectNoError(t, err)
	expectEqual(t, status(t, c).Voices, 4)

	out, err = c.Execute([]string{"mono", "on"})
	expectNoError(t, err)
	expectEqual(t, out, "on")
	expectEqual(t, status(t, c).Mono, true)

	_, err = c.Execute([]string{"solo", "1"})
	expectNoError(t, err)
	expectEqual(t, o.Solo(), 1)
	out, err = c.Execute([]string{"solo", "off"})
	expectNoError(t, err)
	expectEqual(t, out, "off")
	expectEqual(t, o.Solo(), -1)

	_, err = c.Execute([]string{"velocity", "off"})
	expectNoError(t, err)
	expectEqual(t, o.VelocitySensitive(), false)

	loaded, err := prefs.Load(store.Path())
	expectNoError(t, err)
	expectEqual(t, loaded.Float(prefs.AudioGain, 0), 0.5)
	expectEqual(t, loaded.Int(prefs.Voices, 0), 4)
	expectEqual(t, loaded.Bool(prefs.Mono, false), true)
	expectEqual(t, loaded.Int(prefs.AudioSolo, 0), -1)
	expectEqual(t, loaded.Bool(prefs.AudioVelocity, true), false)
}

func TestPatchCommands(t *testing.T) {
	c, _, store := newTestCommander(t)
	out, err := c.Execute([]string{"patches"})
	expectNoError(t, err)
	if !strings.Contains(out, "bell") {
		t.Errorf("expected bell in %q", out)
	}
	_, err = c.Execute([]string{"patch", "bell"})
	expectNoError(t, err)
	expectEqual(t, store.String(prefs.Patch, ""), "bell")

	_, err = c.Execute([]string{"save", "mine"})
	expectNoError(t, err)
	out, err = c.Execute([]string{"patches"})
	expectNoError(t, err)
	if !strings.Contains(out, "mine") {
		t.Errorf("expected mine in %q", out)
	}
	_, err = c.Execute([]string{"patch", "missing"})
	expectError(t, err)

	out, err = c.Execute([]string{"groups"})
	expectNoError(t, err)
	if !strings.HasPrefix(out, "[") {
		t.Errorf("expected a JSON array, got %q", out)
	}
}

func TestParseCommand(t *testing.T) {
	tokens, err := parseCommand("patch my%20pad")
	expectNoError(t, err)
	expectEqual(t, len(tokens), 2)
	expectEqual(t, tokens[1], "my pad")
	_, err = parseCommand("patch %zz")
	expectError(t, err)
}

func TestServe(t *testing.T) {
	c, o, _ := newTestCommander(t)
	server, client := net.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- Serve(context.Background(), server, c, 0)
	}()
	reader := bufio.NewReader(client)
	roundTrip := func(line string) string {
		_, err := client.Write([]byte(line + "\n"))
		expectNoError(t, err)
		reply, err := reader.ReadString('\n')
		expectNoError(t, err)
		return strings.TrimSuffix(reply, "\n")
	}
	expectEqual(t, roundTrip("gain 0.25"), "ok 0.25")
	expectEqual(t, o.Gain(), 0.25)
	if reply := roundTrip("bogus"); !strings.HasPrefix(reply, "error ") {
		t.Errorf("expected an error reply, got %q", reply)
	}
	expectEqual(t, roundTrip("note_on 0 60 100"), "ok ")
	client.Close()
	expectNoError(t, <-done)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestToolHandlers(t *testing.T) {
	c, o, _ := newTestCommander(t)
	expectEqual(t, NewMCPServer(c, "test") != nil, true)

	req := mcp.CallToolRequest{}
	req.Params.Name = "partials_set-gain"
	req.Params.Arguments = map[string]any{"gain": 0.75}
	res, err := toolHandler(c, "gain", floatArg("gain"))(context.Background(), req)
	expectNoError(t, err)
	expectEqual(t, res.IsError, false)
	expectEqual(t, resultText(t, res), "0.75")
	expectEqual(t, o.Gain(), 0.75)

	req.Params.Arguments = map[string]any{"channel": 0.0, "note": 64.0, "velocity": 90.0}
	res, err = toolHandler(c, "note_on", intArgs("channel", "note", "velocity"))(context.Background(), req)
	expectNoError(t, err)
	expectEqual(t, resultText(t, res), "done")
	expectEqual(t, status(t, c).Sounding, 1)

	req.Params.Arguments = map[string]any{}
	res, err = toolHandler(c, "mono", stringArg("mode"))(context.Background(), req)
	expectNoError(t, err)
	expectEqual(t, res.IsError, true)
}
