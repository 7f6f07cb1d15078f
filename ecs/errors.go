package ecs

import "github.com/rotisserie/eris"

var (
	// ErrEntityNotFound is raised when operating on an entity that was never created, has been
	// destroyed, or whose handle is stale.
	ErrEntityNotFound = eris.New("entity does not exist")

	// ErrComponentExists is raised when adding a component the entity already owns.
	ErrComponentExists = eris.New("component already present")

	// ErrComponentMissing is raised when removing a component the entity does not own.
	ErrComponentMissing = eris.New("component not present")

	// ErrComponentNotRegistered is raised when a component type was never registered.
	ErrComponentNotRegistered = eris.New("component type not registered")

	// ErrSystemNotAttached is raised when a system is driven before it was added to a world.
	ErrSystemNotAttached = eris.New("system not attached to a world")

	// ErrSystemAttached is returned when adding a system instance that already belongs to a world.
	ErrSystemAttached = eris.New("system already attached to a world")

	// ErrDuplicateSystem is returned when two systems are registered under the same name.
	ErrDuplicateSystem = eris.New("duplicate system name")

	// ErrUnknownSystem is returned when a factory has no constructor for a name.
	ErrUnknownSystem = eris.New("unknown system")

	// ErrInvalidFamily is returned when a family declaration cannot be resolved.
	ErrInvalidFamily = eris.New("invalid family declaration")

	// ErrReconcileDuringPass is raised when reconciliation is requested while systems run.
	ErrReconcileDuringPass = eris.New("reconcile requested during a system pass")

	// ErrParallelMutation is raised when a system mutates the world directly during a parallel pass.
	ErrParallelMutation = eris.New("direct world mutation during a parallel pass, use Commands")
)
