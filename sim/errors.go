package sim

import "errors"

var (
	// ErrComponentNotRegistered signals use of a component type the store does not know.
	ErrComponentNotRegistered = errors.New("sim: component not registered")
	// ErrStaleEntity indicates a handle whose generation no longer matches its slot.
	ErrStaleEntity = errors.New("sim: stale or dead entity")
	// ErrStructuralChangeInTick indicates an immediate entity or component
	// add/remove while a tick is running. Use Commands or Store.Delete instead.
	ErrStructuralChangeInTick = errors.New("sim: structural change during tick")
	// ErrMissingDependency indicates a plugin was added before a plugin it depends on.
	ErrMissingDependency = errors.New("sim: missing plugin dependency")
	// ErrDuplicatePlugin indicates a plugin name was added twice.
	ErrDuplicatePlugin = errors.New("sim: plugin already added")
	// ErrBuilderFrozen indicates the builder was modified after Build.
	ErrBuilderFrozen = errors.New("sim: builder already built")
	// ErrUnknownSystem indicates a predecessor name that was never added.
	ErrUnknownSystem = errors.New("sim: unknown system")
	// ErrDuplicateSystem indicates two systems registered under one name.
	ErrDuplicateSystem = errors.New("sim: system already registered")
	// ErrDuplicateWriteAccess indicates a system declares the same type twice in conflicting ways.
	ErrDuplicateWriteAccess = errors.New("sim: duplicate access to component")
	// ErrResourceNotFound indicates a resource lookup for a type never inserted.
	ErrResourceNotFound = errors.New("sim: resource not found")
	// ErrSimulationAborted is returned by every step after a tick failed.
	ErrSimulationAborted = errors.New("sim: simulation aborted")
)
