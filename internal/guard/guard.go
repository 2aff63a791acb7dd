// Package guard implements the redirect-once flag: set when the client first
// navigates into a workspace, consulted and cleared when the same joined
// session is observed again without an intervening disconnect.
package guard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Memory holds the flag for the lifetime of the process only.
type Memory struct {
	mu  sync.Mutex
	set bool
}

func NewMemory() *Memory { return &Memory{} }

func (g *Memory) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set
}

func (g *Memory) Set() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.set = true
	return nil
}

func (g *Memory) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.set = false
	return nil
}

const flagFile = "redirect"

// File persists the flag as a marker file under a state directory, so it
// survives a restart of the shell process the way a browsing session survives
// a page reload. Wiping the state directory is the tab-close analogue. A file
// lock keeps a re-spawned process sharing the directory from racing the flag.
type File struct {
	path string
	lock *flock.Flock
}

func NewFile(stateDir string) (*File, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &File{
		path: filepath.Join(stateDir, flagFile),
		lock: flock.New(filepath.Join(stateDir, flagFile+".lock")),
	}, nil
}

func (g *File) IsSet() bool {
	if err := g.lock.RLock(); err != nil {
		return false
	}
	defer g.lock.Unlock()
	_, err := os.Stat(g.path)
	return err == nil
}

func (g *File) Set() error {
	if err := g.lock.Lock(); err != nil {
		return fmt.Errorf("lock redirect flag: %w", err)
	}
	defer g.lock.Unlock()
	if err := os.WriteFile(g.path, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("set redirect flag: %w", err)
	}
	return nil
}

func (g *File) Clear() error {
	if err := g.lock.Lock(); err != nil {
		return fmt.Errorf("lock redirect flag: %w", err)
	}
	defer g.lock.Unlock()
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear redirect flag: %w", err)
	}
	return nil
}
