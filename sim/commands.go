package sim

import (
	"sync"
)

// Command is a structural change applied at the end-of-tick commit.
type Command func(s *Store) error

// Commands queues structural changes requested by systems during a tick.
// It is safe for concurrent use.
type Commands struct {
	store *Store

	mu    sync.Mutex
	queue []Command
}

// Push queues an arbitrary command.
func (c *Commands) Push(cmd Command) {
	c.mu.Lock()
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()
}

// Spawn queues the creation of an entity. build runs at commit time with the
// new handle and attaches its components.
func (c *Commands) Spawn(build func(s *Store, e Entity) error) {
	c.Push(func(s *Store) error {
		e, err := s.NewEntity()
		if err != nil {
			return err
		}
		return build(s, e)
	})
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Commands) drain() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	return q
}

// InsertLater queues attaching v to e. Entities that are gone by commit time
// are skipped.
func InsertLater[T any](c *Commands, e Entity, v T) {
	c.Push(func(s *Store) error {
		if !s.Alive(e) {
			return nil
		}
		return Insert(s, e, v)
	})
}

// RemoveLater queues detaching T from e. Entities that are gone by commit
// time are skipped.
func RemoveLater[T any](c *Commands, e Entity) {
	c.Push(func(s *Store) error {
		if !s.Alive(e) {
			return nil
		}
		col, err := ColumnOf[T](s)
		if err != nil {
			return err
		}
		return col.Remove(e)
	})
}
