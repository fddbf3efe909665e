package sim

import (
	"fmt"
	"reflect"
)

// TypeOf returns the type key used in Access declarations.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Types is a convenience for building Access lists.
func Types(ts ...reflect.Type) []reflect.Type {
	return ts
}

// Access declares what a system borrows from the store: shared reads and
// exclusive writes of component types and of resources. The dispatcher uses
// it to decide which systems may run concurrently.
type Access struct {
	Reads          []reflect.Type
	Writes         []reflect.Type
	ResourceReads  []reflect.Type
	ResourceWrites []reflect.Type
}

// ConflictsWith reports whether a and b may not run at the same time: one of
// them writes a component type or resource the other reads or writes.
func (a Access) ConflictsWith(b Access) bool {
	return overlaps(a.Writes, b.Writes) ||
		overlaps(a.Writes, b.Reads) ||
		overlaps(a.Reads, b.Writes) ||
		overlaps(a.ResourceWrites, b.ResourceWrites) ||
		overlaps(a.ResourceWrites, b.ResourceReads) ||
		overlaps(a.ResourceReads, b.ResourceWrites)
}

func (a Access) validate(system string) error {
	if err := validateSet(system, "component", a.Reads, a.Writes); err != nil {
		return err
	}
	return validateSet(system, "resource", a.ResourceReads, a.ResourceWrites)
}

func validateSet(system, kind string, reads, writes []reflect.Type) error {
	seen := make(map[reflect.Type]struct{}, len(writes))
	for _, t := range writes {
		if _, ok := seen[t]; ok {
			return fmt.Errorf("%w: %s writes %s %v multiple times", ErrDuplicateWriteAccess, system, kind, t)
		}
		seen[t] = struct{}{}
	}
	for _, t := range reads {
		if _, ok := seen[t]; ok {
			return fmt.Errorf("%w: %s both reads and writes %s %v", ErrDuplicateWriteAccess, system, kind, t)
		}
	}
	return nil
}

func overlaps(a, b []reflect.Type) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
