// Package functions is the table of user defined functions: name to raw
// body text. It outlives script runs (whole interactive session).
package functions

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"fortio.org/log"
	"fortio.org/sets"
	"github.com/shamaton/msgpack/v2"
)

// Body is the source of a function and the script line it starts on
// (for error messages).
type Body struct {
	Text string
	Line int
}

// Table is safe for concurrent use: the REPL menu reads it while a run
// defines functions.
type Table struct {
	mu    sync.RWMutex
	funcs map[string]Body
}

func New() *Table {
	return &Table{funcs: make(map[string]Body)}
}

// Default is the process wide table used by the CLI and REPL.
var Default = New()

// Define overwrites unconditionally.
func (t *Table) Define(name string, body Body) {
	t.mu.Lock()
	defer t.mu.Unlock()
	log.LogVf("fundef %s (%d bytes)", name, len(body.Text))
	t.funcs[name] = body
}

// Delete is a no-op for unknown names.
func (t *Table) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.funcs, name)
}

func (t *Table) Lookup(name string) (Body, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.funcs[name]
	return b, ok
}

// Names returns the set of defined names.
func (t *Table) Names() sets.Set[string] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := sets.New[string]()
	for k := range t.funcs {
		res.Add(k)
	}
	return res
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.funcs)
}

// persisted is the msgpack file layout.
type persisted struct {
	Version int
	Funcs   map[string]Body
}

const formatVersion = 1

var ErrVersion = errors.New("unsupported functions file version")

// Save writes the table in msgpack.
func (t *Table) Save(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return msgpack.MarshalWrite(w, persisted{Version: formatVersion, Funcs: t.funcs})
}

// Load merges the saved functions into the table, overwriting same names.
// Returns the number of functions read.
func (t *Table) Load(r io.Reader) (int, error) {
	var p persisted
	if err := msgpack.UnmarshalRead(r, &p); err != nil {
		return 0, err
	}
	if p.Version != formatVersion {
		return 0, fmt.Errorf("%w: %d", ErrVersion, p.Version)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range p.Funcs {
		t.funcs[k] = v
	}
	return len(p.Funcs), nil
}

// SaveFile saves to a file, an empty name is a no-op.
func (t *Table) SaveFile(name string) error {
	if name == "" {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = t.Save(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		log.Infof("Saved %d functions to %s", t.Len(), name)
	}
	return err
}

// LoadFile loads from a file. A missing file (or empty name) isn't an error.
func (t *Table) LoadFile(name string) error {
	if name == "" {
		return nil
	}
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		log.LogVf("No functions file %s", name)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := t.Load(f)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Infof("Loaded %d functions from %s", n, name)
	return nil
}
