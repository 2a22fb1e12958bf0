// Package registry holds the in-memory activity registry: a fixed set of
// activities, each with a mutable participant roster.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"activity-signups/internal/models"
	"activity-signups/pkg/catalog"
)

var (
	ErrActivityNotFound = errors.New("ACTIVITY_NOT_FOUND")
	ErrAlreadySignedUp  = errors.New("ALREADY_SIGNED_UP")
	ErrNotSignedUp      = errors.New("NOT_SIGNED_UP")
	ErrActivityFull     = errors.New("ACTIVITY_FULL")
)

// Options tunes registry rules.
type Options struct {
	// EnforceCapacity rejects signups once max_participants is reached.
	EnforceCapacity bool
}

type entry struct {
	description     string
	schedule        string
	maxParticipants int
	participants    []string
}

func (e *entry) indexOf(email string) int {
	for i, p := range e.participants {
		if p == email {
			return i
		}
	}
	return -1
}

func (e *entry) snapshot() models.Activity {
	participants := make([]string, len(e.participants))
	copy(participants, e.participants)
	return models.Activity{
		Description:     e.description,
		Schedule:        e.schedule,
		MaxParticipants: e.maxParticipants,
		Participants:    participants,
	}
}

// Registry is safe for concurrent use. One mutex covers every activity, so a
// membership check and the mutation that follows it are a single step.
type Registry struct {
	mu              sync.Mutex
	activities      map[string]*entry
	enforceCapacity bool
}

// New seeds a registry from cat. The key set is fixed from here on.
func New(cat *catalog.Catalog, opts Options) (*Registry, error) {
	if cat == nil {
		return nil, fmt.Errorf("registry: nil catalog")
	}
	if err := catalog.Validate(cat); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	activities := make(map[string]*entry, len(cat.Activities))
	for _, a := range cat.Activities {
		participants := make([]string, len(a.Participants))
		copy(participants, a.Participants)
		activities[a.Name] = &entry{
			description:     a.Description,
			schedule:        a.Schedule,
			maxParticipants: a.MaxParticipants,
			participants:    participants,
		}
	}

	return &Registry{
		activities:      activities,
		enforceCapacity: opts.EnforceCapacity,
	}, nil
}

// List returns a deep copy of every activity.
func (r *Registry) List() models.Activities {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(models.Activities, len(r.activities))
	for name, e := range r.activities {
		out[name] = e.snapshot()
	}
	return out
}

// Get returns a copy of one activity.
func (r *Registry) Get(name string) (models.Activity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.activities[name]
	if !ok {
		return models.Activity{}, false
	}
	return e.snapshot(), true
}

// Names returns the activity names in lexical order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.activities))
	for name := range r.activities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signup appends email to the activity's roster and returns the updated activity.
func (r *Registry) Signup(name, email string) (models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.activities[name]
	if !ok {
		return models.Activity{}, ErrActivityNotFound
	}
	if e.indexOf(email) >= 0 {
		return models.Activity{}, ErrAlreadySignedUp
	}
	if r.enforceCapacity && len(e.participants) >= e.maxParticipants {
		return models.Activity{}, ErrActivityFull
	}

	e.participants = append(e.participants, email)
	return e.snapshot(), nil
}

// Unregister removes email from the activity's roster, keeping the order of
// the remaining participants.
func (r *Registry) Unregister(name, email string) (models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.activities[name]
	if !ok {
		return models.Activity{}, ErrActivityNotFound
	}
	idx := e.indexOf(email)
	if idx < 0 {
		return models.Activity{}, ErrNotSignedUp
	}

	e.participants = append(e.participants[:idx], e.participants[idx+1:]...)
	return e.snapshot(), nil
}
