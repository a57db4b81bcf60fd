package sound

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinjor/partials/src/unit"
)

// ----- Library ----- //

type patchMetaJSON struct {
	Name string `json:"name"`
}
type patchMetaListJSON struct {
	Items []patchMetaJSON `json:"items"`
}

// ListFile is the index written next to the patches of a library directory.
const ListFile = "_list.json"

// Library reads named patches from a directory, falling back to the built-in ones.
type Library struct {
	dir  string
	list []string
}

// NewLibrary returns a library reading dir. An empty dir only serves built-ins.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// List returns the patch names of the directory index followed by missing built-ins.
func (l *Library) List() ([]string, error) {
	if l.list == nil {
		if err := l.loadList(); err != nil {
			return nil, err
		}
	}
	return l.list, nil
}

func (l *Library) loadList() error {
	names := make([]string, 0, len(builtins))
	seen := map[string]bool{}
	if l.dir != "" {
		bytes, err := os.ReadFile(filepath.Join(l.dir, ListFile))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if err == nil {
			metaList := &patchMetaListJSON{}
			if err := json.Unmarshal(bytes, metaList); err != nil {
				return fmt.Errorf("failed to read %s: %w", ListFile, err)
			}
			for _, item := range metaList.Items {
				names = append(names, item.Name)
				seen[item.Name] = true
			}
		}
	}
	for _, name := range BuiltinNames() {
		if !seen[name] {
			names = append(names, name)
		}
	}
	l.list = names
	return nil
}

// Load returns the named patch from the directory, or the built-in of that name.
func (l *Library) Load(name string) (*unit.Patch, error) {
	if l.dir != "" {
		bytes, err := os.ReadFile(filepath.Join(l.dir, name+".json"))
		if err == nil {
			return unit.ParsePatch(bytes)
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if p := Builtin(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("patch %q not found", name)
}

// Save writes a patch into the directory and adds it to the index.
func (l *Library) Save(name string, p *unit.Patch) error {
	if l.dir == "" {
		return fmt.Errorf("library has no directory")
	}
	data, err := p.JSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(l.dir, name+".json"), data, 0644); err != nil {
		return err
	}
	if _, err := l.List(); err != nil {
		return err
	}
	for _, n := range l.list {
		if n == name {
			return nil
		}
	}
	l.list = append([]string{name}, l.list...)
	return WriteList(l.dir, l.list)
}

// WriteList writes the directory index.
func WriteList(dir string, names []string) error {
	meta := patchMetaListJSON{Items: make([]patchMetaJSON, len(names))}
	for i, name := range names {
		meta.Items[i] = patchMetaJSON{Name: name}
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ListFile), data, 0644)
}
