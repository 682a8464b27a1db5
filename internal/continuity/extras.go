package continuity

import (
	"strings"
	"sync"
)

// Extras is the per-session map of named text blocks appended to the prompt.
// Slots keep their insertion order. The zero value is ready to use. A nil
// *Extras reads as empty and ignores Delete and Clear; Set and SetOnce need a
// non-nil value.
type Extras struct {
	mu    sync.RWMutex
	order []string
	slots map[string]string
}

// NewExtras returns an empty Extras.
func NewExtras() *Extras {
	return &Extras{}
}

func (e *Extras) Get(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.slots[name]
	return v, ok
}

func (e *Extras) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Set writes a slot, replacing any previous value in place.
func (e *Extras) Set(name, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setLocked(name, text)
}

// SetOnce writes a slot only if it is absent and reports whether it did.
func (e *Extras) SetOnce(name, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.slots[name]; ok {
		return false
	}
	e.setLocked(name, text)
	return true
}

func (e *Extras) setLocked(name, text string) {
	if e.slots == nil {
		e.slots = make(map[string]string)
	}
	if _, ok := e.slots[name]; !ok {
		e.order = append(e.order, name)
	}
	e.slots[name] = text
}

func (e *Extras) Delete(name string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.slots[name]; !ok {
		return
	}
	delete(e.slots, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Extras) Clear() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = nil
	e.slots = nil
}

// Snapshot returns a copy of all slots.
func (e *Extras) Snapshot() map[string]string {
	out := map[string]string{}
	if e == nil {
		return out
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for k, v := range e.slots {
		out[k] = v
	}
	return out
}

// Render joins slot values in insertion order, separated by blank lines.
func (e *Extras) Render() string {
	if e == nil {
		return ""
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	parts := make([]string, 0, len(e.order))
	for _, name := range e.order {
		parts = append(parts, e.slots[name])
	}
	return strings.Join(parts, "\n\n")
}
