package render

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Target is a place a widget is drawn into.
type Target interface {
	Write(content []byte) error
	Clear() error
}

// Targets maps widget ids to their targets. Missing ids are not an error.
type Targets map[string]Target

// Lookup returns the target for id.
func (t Targets) Lookup(id string) (Target, bool) {
	if t == nil {
		return nil, false
	}
	target, ok := t[id]
	return target, ok && target != nil
}

// FileTarget writes widgets into a file, replacing it atomically.
type FileTarget struct {
	Path string
}

// Write implements Target.
func (f FileTarget) Write(content []byte) error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("render: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("render: write %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("render: close %s: %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("render: replace %s: %w", f.Path, err)
	}
	return nil
}

// Clear implements Target.
func (f FileTarget) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("render: clear %s: %w", f.Path, err)
	}
	return nil
}

// FileTargets creates one file target per id inside dir, named after the id and ext.
func FileTargets(dir, ext string, ids ...string) Targets {
	out := make(Targets, len(ids))
	for _, id := range ids {
		out[id] = FileTarget{Path: filepath.Join(dir, id+ext)}
	}
	return out
}

// MemoryTarget keeps the last content in memory.
type MemoryTarget struct {
	mu      sync.Mutex
	content []byte
	writes  int
	clears  int
}

// Write implements Target.
func (m *MemoryTarget) Write(content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = append(m.content[:0], content...)
	m.writes++
	return nil
}

// Clear implements Target.
func (m *MemoryTarget) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = nil
	m.clears++
	return nil
}

// String returns the current content.
func (m *MemoryTarget) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.content)
}

// Writes counts successful writes.
func (m *MemoryTarget) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Clears counts clears.
func (m *MemoryTarget) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Chart owns a drawn widget. Every redraw replaces the previous drawing
// whole; only Dispose leaves the target empty.
type Chart struct {
	id     string
	target Target
	live   bool
}

// NewChart binds a chart to its target.
func NewChart(id string, target Target) *Chart {
	return &Chart{id: id, target: target}
}

// ID returns the widget id.
func (c *Chart) ID() string { return c.id }

// Live reports whether the chart currently holds a drawing.
func (c *Chart) Live() bool { return c.live }

// Recreate replaces the drawing with content. A failed write keeps the
// previous drawing in place.
func (c *Chart) Recreate(content template.HTML) error {
	if err := c.target.Write([]byte(content)); err != nil {
		return err
	}
	c.live = true
	return nil
}

// Dispose removes the drawing. Disposing an empty chart is a no-op.
func (c *Chart) Dispose() error {
	if !c.live {
		return nil
	}
	c.live = false
	return c.target.Clear()
}
