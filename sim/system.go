package sim

import (
	"log/slog"
)

// System is one per-tick computation over the store.
type System interface {
	// Access declares the component types and resources the system borrows.
	Access() Access
	// Run executes the system once. Returning an error aborts the tick.
	Run(ctx *Context) error
}

// SetupSystem is implemented by systems that need to prepare filters or
// columns once the store is complete. Setup runs during Builder.Build.
type SetupSystem interface {
	Setup(s *Store) error
}

// SystemFunc adapts a function and an access declaration into a System.
type SystemFunc struct {
	Borrows Access
	Fn      func(ctx *Context) error
}

// Access implements System.
func (f SystemFunc) Access() Access { return f.Borrows }

// Run implements System.
func (f SystemFunc) Run(ctx *Context) error { return f.Fn(ctx) }

// Context is handed to a system for one run.
type Context struct {
	store *Store
	pool  *workerPool
	node  *node
	step  uint64
}

// Store returns the component store.
func (c *Context) Store() *Store { return c.store }

// Commands returns the deferred command queue.
func (c *Context) Commands() *Commands { return c.store.commands }

// Step returns the index of the tick being run (completed ticks so far).
func (c *Context) Step() uint64 { return c.step }

// Name returns the name the system was registered under.
func (c *Context) Name() string { return c.node.name }

// Logger returns a logger tagged with the system name.
func (c *Context) Logger() *slog.Logger { return c.node.logger }

// ParallelFor splits [0,n) into contiguous chunks and runs fn on the worker
// pool, returning once every chunk is done. Small inputs run inline.
func (c *Context) ParallelFor(n int, fn func(start, end int)) {
	c.pool.parallelFor(n, fn)
}
