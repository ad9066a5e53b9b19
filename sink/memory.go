package sink

import (
	"sync"

	"github.com/swipesensor/fpdrv/internal/reassembly"
)

// Memory is an in-memory recording Sink: every callback appends to a log
// instead of touching hardware or a UI, grounded on the teacher's Memory
// backend (backend/mem.go) — there, a RAM-based stand-in for a block
// device; here, a RAM-based stand-in for whatever would otherwise consume
// the driver's callbacks (a UI, a matcher pipeline). Used by tests;
// cmd/fpscan has its own file-writing sink.
type Memory struct {
	mu sync.Mutex

	activations   []error
	fingerStatus  []bool
	images        []reassembly.Image
	sessionErrors []error
}

// NewMemory creates an empty recording Sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) OnActivateComplete(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activations = append(m.activations, err)
}

func (m *Memory) OnFingerStatus(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerStatus = append(m.fingerStatus, present)
}

func (m *Memory) OnImageCaptured(img reassembly.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = append(m.images, img)
}

func (m *Memory) OnSessionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionErrors = append(m.sessionErrors, err)
}

// Activations returns every error passed to OnActivateComplete, in order
// (nil entries mark a successful activation).
func (m *Memory) Activations() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]error, len(m.activations))
	copy(out, m.activations)
	return out
}

// FingerStatusEvents returns every value passed to OnFingerStatus, in
// order.
func (m *Memory) FingerStatusEvents() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(m.fingerStatus))
	copy(out, m.fingerStatus)
	return out
}

// Images returns every image passed to OnImageCaptured, in order.
func (m *Memory) Images() []reassembly.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]reassembly.Image, len(m.images))
	copy(out, m.images)
	return out
}

// SessionErrors returns every error passed to OnSessionError, in order.
func (m *Memory) SessionErrors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]error, len(m.sessionErrors))
	copy(out, m.sessionErrors)
	return out
}

// Compile-time interface check.
var _ Sink = (*Memory)(nil)
