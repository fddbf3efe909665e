// Package sim is the simulation engine: an entity/component store with a
// declared borrow discipline, plugin composition, a staged and
// barrier-synchronized dispatcher, and the tick loop that commits deferred
// entity mutations at a single point per tick.
package sim

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"
)

// Entity is an opaque handle to a simulated particle. It pairs a slot index
// with a generation; handles to a recycled slot are stale and rejected.
type Entity = ecs.Entity

// Store holds every component of every entity.
//
// Reads and writes of component values go through Columns and may happen from
// many goroutines during a tick, as arbitrated by the systems' declared Access.
// Structural changes (entities or components appearing and disappearing) are
// only applied outside a tick, either immediately during setup or through the
// deferred queue committed by Maintain.
type Store struct {
	world *ecs.World

	columns   map[reflect.Type]any
	resources map[reflect.Type]struct{}
	alive     int

	inTick atomic.Bool

	// queryMu serializes opening ark queries, which lock the world.
	queryMu sync.Mutex

	mu      sync.Mutex
	pending []Entity
	queued  map[Entity]struct{}

	commands *Commands
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		world:     ecs.NewWorld(),
		columns:   make(map[reflect.Type]any),
		resources: make(map[reflect.Type]struct{}),
		queued:    make(map[Entity]struct{}),
	}
	s.commands = &Commands{store: s}
	return s
}

// World exposes the underlying ark world so systems can build filters during
// Setup. Queries on it must be opened inside Store.Query.
func (s *Store) World() *ecs.World {
	return s.world
}

// Commands returns the deferred command queue.
func (s *Store) Commands() *Commands {
	return s.commands
}

// NewEntity creates an entity without components. A recycled slot comes back
// with a new generation.
func (s *Store) NewEntity() (Entity, error) {
	if s.inTick.Load() {
		return Entity{}, ErrStructuralChangeInTick
	}
	s.alive++
	return s.world.NewEntity(), nil
}

// Alive reports whether e refers to a live entity of the current generation.
func (s *Store) Alive(e Entity) bool {
	if e.IsZero() {
		return false
	}
	return s.world.Alive(e)
}

// Len returns the number of live entities, including those queued for deletion.
func (s *Store) Len() int {
	return s.alive
}

// Delete queues e for removal at the next Maintain. Until then every component
// of e stays readable. Queuing the same entity twice is a no-op.
func (s *Store) Delete(e Entity) error {
	if !s.Alive(e) {
		return fmt.Errorf("delete %v: %w", e, ErrStaleEntity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queued[e]; ok {
		return nil
	}
	s.queued[e] = struct{}{}
	s.pending = append(s.pending, e)
	return nil
}

// PendingDeletions returns the number of entities queued for removal.
func (s *Store) PendingDeletions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Query runs fn while holding the store's query lock. Systems open ark
// queries only inside fn, snapshot what they need, and process it after.
func (s *Store) Query(fn func()) {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()
	fn()
}

// Maintain is the end-of-tick synchronization point. It applies deferred
// commands in submission order and then removes every queued entity, which
// invalidates all outstanding handles to it.
func (s *Store) Maintain() error {
	if s.inTick.Load() {
		return ErrStructuralChangeInTick
	}

	var errs []error
	for _, cmd := range s.commands.drain() {
		if err := cmd(s); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	clear(s.queued)
	s.mu.Unlock()

	for _, e := range pending {
		if !s.world.Alive(e) {
			continue
		}
		s.world.RemoveEntity(e)
		s.alive--
	}

	return errors.Join(errs...)
}

func (s *Store) beginTick() {
	s.inTick.Store(true)
}

func (s *Store) endTick() {
	s.inTick.Store(false)
}

func (s *Store) registered(t reflect.Type) bool {
	_, ok := s.columns[t]
	return ok
}

func (s *Store) hasResource(t reflect.Type) bool {
	_, ok := s.resources[t]
	return ok
}

// InsertResource stores a process-wide value of type T. Inserting a type that
// already exists replaces the stored value.
func InsertResource[T any](s *Store, res *T) {
	t := reflect.TypeFor[T]()
	if s.hasResource(t) {
		*ecs.GetResource[T](s.world) = *res
		return
	}
	ecs.AddResource(s.world, res)
	s.resources[t] = struct{}{}
}

// Resource returns the resource of type T.
func Resource[T any](s *Store) (*T, error) {
	if !s.hasResource(reflect.TypeFor[T]()) {
		return nil, fmt.Errorf("%v: %w", reflect.TypeFor[T](), ErrResourceNotFound)
	}
	return ecs.GetResource[T](s.world), nil
}
