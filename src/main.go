package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/jinjor/partials/src/audio"
	"github.com/jinjor/partials/src/control"
	"github.com/jinjor/partials/src/midi"
	"github.com/jinjor/partials/src/prefs"
	"github.com/jinjor/partials/src/sound"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "partials")
}

func main() {
	prefsPath := flag.String("prefs", filepath.Join(defaultDir(), "prefs.yaml"), "preferences file")
	patchDir := flag.String("patches", filepath.Join(defaultDir(), "patches"), "patch library directory")
	sockPath := flag.String("sock", control.SockFileName, "command socket")
	useMCP := flag.Bool("mcp", false, "serve commands as MCP tools over stdio instead of the socket")
	listMidi := flag.Bool("list-midi", false, "list MIDI inputs and exit")
	voices := flag.Int("voices", 0, "number of voices (0: last used)")
	buffer := flag.Int("buffer", 0, "audio buffer size in bytes (0: last used)")
	midiIn := flag.String("midi", "", "primary MIDI input name (empty: last used)")
	midiIn2 := flag.String("midi2", "", "secondary MIDI input name (empty: last used)")
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	if *listMidi {
		names, err := midi.Names()
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	store, err := prefs.Load(*prefsPath)
	if err != nil {
		log.Printf("[WARN] %v, starting with defaults", err)
		store = prefs.New(*prefsPath)
	}
	if *voices > 0 {
		store.Set(prefs.Voices, *voices)
	}
	if *buffer > 0 {
		store.Set(prefs.AudioBuffer, *buffer)
	}
	if *midiIn != "" {
		store.Set(prefs.MidiIn, *midiIn)
	}
	if *midiIn2 != "" {
		store.Set(prefs.MidiIn2, *midiIn2)
	}

	cfg := audio.DefaultConfig()
	cfg.BufferSize = store.Int(prefs.AudioBuffer, cfg.BufferSize)
	line, err := audio.NewOtoLine(cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}

	n := store.Int(prefs.Voices, 16)
	if n < 1 || n > 256 {
		log.Printf("[WARN] invalid voice count %d, using 16", n)
		n = 16
	}
	pool := sound.NewPool(n, sound.Transport{})
	primary := sound.NewGroup(store.Int(prefs.MidiChannel, sound.ChannelOmni))
	if err := pool.SetGroups([]*sound.Group{primary}); err != nil {
		log.Printf("[WARN] %v, listening on every channel", err)
	}
	dispatcher := midi.NewDispatcher(pool, midi.NewClock(cfg.TicksPerSecond()))
	dispatcher.SetBendRange(store.Float(prefs.MidiBend, 2))
	dispatcher.SetMPEBendRange(store.Float(prefs.MidiMPEBend, 48))
	dispatcher.SetMono(store.Bool(prefs.Mono, false))

	output := audio.NewOutput(cfg, pool, dispatcher, line)
	defer output.Close()
	output.SetGain(store.Float(prefs.AudioGain, 0.25))
	output.SetVelocitySensitive(store.Bool(prefs.AudioVelocity, true))
	output.SetSolo(store.Int(prefs.AudioSolo, -1))

	library := sound.NewLibrary(*patchDir)
	commander := control.NewCommander(output, library, store)
	if _, err := commander.Execute([]string{"patch", store.String(prefs.Patch, "init")}); err != nil {
		log.Printf("[WARN] failed to load patch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return output.RunEmission(ctx)
	})
	g.Go(func() error {
		return output.RunVoices(ctx)
	})
	g.Go(func() error {
		return midi.Listen(ctx, store.String(prefs.MidiIn, ""), dispatcher.Receive)
	})
	if name := store.String(prefs.MidiIn2, ""); name != "" {
		g.Go(func() error {
			return midi.Listen(ctx, name, dispatcher.Receive)
		})
	}
	if *useMCP {
		g.Go(func() error {
			defer cancel()
			return control.ServeMCP(commander, version)
		})
	} else {
		g.Go(func() error {
			return control.ServeIPC(ctx, *sockPath, commander)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	if err := store.Save(); err != nil {
		log.Printf("[WARN] failed to save preferences: %v", err)
	}
	log.Println("main() ended.")
}
