package sim

import (
	"fmt"
	"reflect"

	"github.com/mlange-42/ark/ecs"
)

// Column is the storage of one component type.
type Column[T any] struct {
	store *Store
	m     *ecs.Map[T]
}

// Register makes T a known component type and returns its column. Registering
// a type again returns the existing column. Register is a setup operation and
// must not be called while a tick is running.
func Register[T any](s *Store) *Column[T] {
	t := reflect.TypeFor[T]()
	if c, ok := s.columns[t]; ok {
		return c.(*Column[T])
	}
	c := &Column[T]{store: s, m: ecs.NewMap[T](s.world)}
	s.columns[t] = c
	return c
}

// ColumnOf returns the column of a registered component type.
func ColumnOf[T any](s *Store) (*Column[T], error) {
	c, ok := s.columns[reflect.TypeFor[T]()]
	if !ok {
		return nil, fmt.Errorf("%v: %w", reflect.TypeFor[T](), ErrComponentNotRegistered)
	}
	return c.(*Column[T]), nil
}

// Get returns the component of e. It reports false for stale handles and for
// entities without the component.
func (c *Column[T]) Get(e Entity) (*T, bool) {
	if !c.store.Alive(e) || !c.m.Has(e) {
		return nil, false
	}
	return c.m.Get(e), true
}

// Has reports whether live entity e carries the component.
func (c *Column[T]) Has(e Entity) bool {
	return c.store.Alive(e) && c.m.Has(e)
}

// Insert attaches v to e, replacing an existing value.
func (c *Column[T]) Insert(e Entity, v T) error {
	if c.store.inTick.Load() {
		return ErrStructuralChangeInTick
	}
	if !c.store.Alive(e) {
		return fmt.Errorf("insert %v: %w", reflect.TypeFor[T](), ErrStaleEntity)
	}
	if c.m.Has(e) {
		*c.m.Get(e) = v
		return nil
	}
	c.m.Add(e, &v)
	return nil
}

// Remove detaches the component from e if present.
func (c *Column[T]) Remove(e Entity) error {
	if c.store.inTick.Load() {
		return ErrStructuralChangeInTick
	}
	if !c.store.Alive(e) {
		return fmt.Errorf("remove %v: %w", reflect.TypeFor[T](), ErrStaleEntity)
	}
	if c.m.Has(e) {
		c.m.Remove(e)
	}
	return nil
}

// Insert attaches v to e using the registered column for T.
func Insert[T any](s *Store, e Entity, v T) error {
	c, err := ColumnOf[T](s)
	if err != nil {
		return err
	}
	return c.Insert(e, v)
}

// Get returns the T component of e.
func Get[T any](s *Store, e Entity) (*T, bool) {
	c, err := ColumnOf[T](s)
	if err != nil {
		return nil, false
	}
	return c.Get(e)
}
