package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/jinjor/partials/src/sound"
	"golang.org/x/sync/errgroup"
)

func main() {
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		panic("dir is not passed")
	}
	log.SetFlags(log.Lshortfile)

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	names := sound.BuiltinNames()
	g, _ := errgroup.WithContext(context.Background())
	for _, name := range names {
		name := name
		g.Go(func() error {
			data, err := sound.Builtin(name).JSON()
			if err != nil {
				return err
			}
			err = os.WriteFile(filepath.Join(dir, name+".json"), data, 0644)
			log.Printf("saved %s\n", name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	if err := sound.WriteList(dir, names); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully generated patches.")
}
