package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Keys used by the synthesizer.
const (
	AudioBuffer   = "audio.buffer"
	AudioGain     = "audio.gain"
	AudioVelocity = "audio.velocity"
	AudioSolo     = "audio.solo"
	Voices        = "voices"
	MidiIn        = "midi.in"
	MidiIn2       = "midi.in2"
	MidiChannel   = "midi.channel"
	MidiBend      = "midi.bend"
	MidiMPEBend   = "midi.mpebend"
	Mono          = "mono"
	Patch         = "patch"
)

// Store is a string key/value store persisted as YAML. Typed getters fall back to the
// default the caller supplies when a key is absent or unparsable.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// New returns an empty store saved to path.
func New(path string) *Store {
	return &Store{path: path, values: make(map[string]string)}
}

// Load reads path. A missing file gives an empty store.
func Load(path string) (*Store, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse preferences %s: %w", path, err)
	}
	for k, v := range raw {
		str, err := cast.ToStringE(v)
		if err != nil {
			log.Printf("[WARN] preference %s ignored: %v", k, err)
			continue
		}
		s.values[k] = str
	}
	return s, nil
}

// Save writes the store to its path.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := yaml.Marshal(s.values)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0644)
}

// Path returns the file the store is saved to.
func (s *Store) Path() string { return s.path }

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the raw value of key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores any value as its string form.
func (s *Store) Set(key string, value interface{}) {
	str := cast.ToString(value)
	s.mu.Lock()
	s.values[key] = str
	s.mu.Unlock()
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// String returns the value of key or def.
func (s *Store) String(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// Int returns the value of key as an int or def.
func (s *Store) Int(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		log.Printf("[WARN] preference %s=%q is not an integer", key, v)
		return def
	}
	return i
}

// Float returns the value of key as a float64 or def.
func (s *Store) Float(key string, def float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		log.Printf("[WARN] preference %s=%q is not a number", key, v)
		return def
	}
	return f
}

// Bool returns the value of key as a bool or def.
func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		log.Printf("[WARN] preference %s=%q is not a boolean", key, v)
		return def
	}
	return b
}
