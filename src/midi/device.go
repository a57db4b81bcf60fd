package midi

import (
	"context"
	"log"
	"strings"

	gomidi "gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"
)

// Names returns the names of the available MIDI inputs.
func Names() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// pickIn finds the input whose name contains hint, falling back to the first one.
func pickIn(ins []gomidi.In, hint string) gomidi.In {
	if len(ins) == 0 {
		return nil
	}
	if hint != "" {
		lower := strings.ToLower(hint)
		for _, in := range ins {
			if strings.Contains(strings.ToLower(in.String()), lower) {
				return in
			}
		}
		log.Printf("[WARN] MIDI IN %q not found, using %s", hint, ins[0].String())
	}
	return ins[0]
}

// Listen opens the input matching name and hands every message to receive until
// ctx is done. A missing device is logged, not returned: the synthesizer keeps
// running on the other binding and the control surface.
func Listen(ctx context.Context, name string, receive func([]byte)) error {
	drv, err := rtmididrv.New()
	if err != nil {
		log.Printf("failed to initialize MIDI driver: %v\n", err)
		return nil
	}
	defer func() {
		err := drv.Close()
		if err != nil {
			log.Printf("failed to close MIDI driver: %v\n", err)
		}
	}()
	ins, err := drv.Ins()
	if err != nil {
		log.Printf("failed to get MIDI IN: %v\n", err)
		return nil
	}
	in := pickIn(ins, name)
	if in == nil {
		log.Println("[WARN] MIDI IN not found")
		return nil
	}
	if err := in.Open(); err != nil {
		log.Printf("failed to open MIDI IN: %v\n", err)
		return nil
	}
	log.Println("opened " + in.String())
	defer func() {
		err := in.Close()
		if err != nil {
			log.Printf("failed to close MIDI IN: %v\n", err)
		}
	}()
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		receive(data)
	}); err != nil {
		log.Println("failed to set listener: " + err.Error())
		return nil
	}
	defer func() {
		log.Printf("stop listening %s...\n", in.String())
		err := in.StopListening()
		if err != nil {
			log.Printf("failed to stop listening: %v\n", err)
		}
	}()
	<-ctx.Done()
	return nil
}
