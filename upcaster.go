package elfaes

import (
	"sync"

	"github.com/elfaes-go/elfaes/metrics"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Upcaster is a pure schema-migration function applied at read time.
// CanUpcast reports whether this upcaster claims the given event;
// UpCast produces the replacement event(s). A single stored event may
// fan out into multiple logical events — order is preserved.
type Upcaster interface {
	CanUpcast(e Event) bool
	UpCast(e Event) ([]Event, error)
}

// UpcasterFunc adapts a pair of functions to the Upcaster interface.
type UpcasterFunc struct {
	Can func(e Event) bool
	Up  func(e Event) ([]Event, error)
}

func (f UpcasterFunc) CanUpcast(e Event) bool          { return f.Can(e) }
func (f UpcasterFunc) UpCast(e Event) ([]Event, error) { return f.Up(e) }

// Pipeline applies registered upcasters to events read from a stream
// until no upcaster claims the result (fixed point), per spec §4.2.
type Pipeline struct {
	mu        sync.RWMutex
	upcasters []Upcaster
	metrics   metrics.Recorder
}

// NewPipeline returns an empty Pipeline with no-op metrics.
func NewPipeline() *Pipeline {
	return &Pipeline{metrics: metrics.Noop()}
}

// WithMetrics sets the Recorder used to emit upcasts.performed.
func (p *Pipeline) WithMetrics(r metrics.Recorder) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = r
	return p
}

// Register appends u to the pipeline in registration order; the first
// upcaster (by registration order) whose CanUpcast matches is applied.
func (p *Pipeline) Register(u Upcaster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.upcasters = append(p.upcasters, u)
}

type visitKey struct {
	eventType     string
	schemaVersion int
}

// Apply runs every event in events through the pipeline to a fixed
// point and returns the fully-upcast sequence, preserving order.
func (p *Pipeline) Apply(events []Event) ([]Event, error) {
	p.mu.RLock()
	upcasters := append([]Upcaster(nil), p.upcasters...)
	p.mu.RUnlock()

	if len(upcasters) == 0 {
		return events, nil
	}

	out := make([]Event, 0, len(events))
	for _, e := range events {
		expanded, err := p.applyOne(upcasters, e, make(map[visitKey]bool))
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// applyOne repeatedly applies the first matching upcaster to e (and
// recursively to each event it produces) until nothing claims the
// result. visited holds the chain of (eventType, schemaVersion) pairs
// upcast so far *on this path from the original event*: it is never
// mutated in place, only read and then cloned-plus-extended before a
// deeper call, so sibling branches of a fan-out each get their own
// copy and cannot falsely collide with one another. A genuine cycle
// (an upcast chain revisiting a key on its own path) is still caught.
func (p *Pipeline) applyOne(upcasters []Upcaster, e Event, visited map[visitKey]bool) ([]Event, error) {
	key := visitKey{e.EventType, e.normalizedSchemaVersion()}

	var matched Upcaster
	for _, u := range upcasters {
		if u.CanUpcast(e) {
			matched = u
			break
		}
	}
	if matched == nil {
		return []Event{e}, nil
	}

	if visited[key] {
		return nil, elfaeserr.New(elfaeserr.CodeUpcasterCycle, elfaeserr.KindUpcasterCycle,
			"upcaster cycle detected for event type "+e.EventType)
	}

	pathVisited := make(map[visitKey]bool, len(visited)+1)
	for k := range visited {
		pathVisited[k] = true
	}
	pathVisited[key] = true

	produced, err := matched.UpCast(e)
	if err != nil {
		return nil, err
	}

	fromVersion := e.normalizedSchemaVersion()
	out := make([]Event, 0, len(produced))
	for _, p2 := range produced {
		toVersion := p2.normalizedSchemaVersion()
		expanded, err := p.applyOne(upcasters, p2, pathVisited)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
		p.metrics.UpcastPerformed(e.EventType, fromVersion, toVersion)
	}
	return out, nil
}
