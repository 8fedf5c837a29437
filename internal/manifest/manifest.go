package manifest

import (
	"sync"
	"time"
)

// Version of the manifest file format.
const Version = 1

// Manifest records what a provisioning run created: resource IDs in
// creation order, plus the stack outputs. It is not a diffable state
// file; it exists so destroy and output have something to work from.
type Manifest struct {
	Version   int               `json:"version"`
	Stack     string            `json:"stack"`
	Region    string            `json:"region"`
	CreatedAt time.Time         `json:"createdAt"`
	Resources []*Resource       `json:"resources"`
	Outputs   map[string]string `json:"outputs"`

	mu sync.Mutex
}

// Resource is one created resource. Attrs carries whatever the destroy
// path needs beyond the ID (e.g. the role name an instance profile must
// detach first).
type Resource struct {
	Type  string            `json:"type"`
	Name  string            `json:"name"`
	ID    string            `json:"id"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// New returns an empty manifest for a stack in a region.
func New(stack, region string) *Manifest {
	return &Manifest{
		Version:   Version,
		Stack:     stack,
		Region:    region,
		CreatedAt: time.Now().UTC(),
		Outputs:   map[string]string{},
	}
}

// Record appends a created resource. Safe for concurrent use: steps
// record as they complete, possibly in parallel.
func (m *Manifest) Record(res *Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resources = append(m.Resources, res)
}

// Lookup returns the first recorded resource of the given type and
// name, or nil.
func (m *Manifest) Lookup(typ, name string) *Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Resources {
		if r.Type == typ && r.Name == name {
			return r
		}
	}
	return nil
}

// ByType returns all recorded resources of the given type, in creation
// order.
func (m *Manifest) ByType(typ string) []*Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Resource
	for _, r := range m.Resources {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// SetOutput records a stack output value.
func (m *Manifest) SetOutput(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs[name] = value
}

// InReverse returns the resources in reverse creation order, the safe
// order for deletion.
func (m *Manifest) InReverse() []*Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Resource, len(m.Resources))
	for i, r := range m.Resources {
		out[len(m.Resources)-1-i] = r
	}
	return out
}
