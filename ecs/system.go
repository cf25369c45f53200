package ecs

// System represents a behavior that operates on entities with specific components.
// Systems keep their own state between frames, typically the QueryDescriptions
// they iterate, and request structural changes through frame.Commands.
type System interface {
	Execute(frame *UpdateFrame)
}

// Initializer is implemented by systems that need the world before their first
// frame, usually to build queries.
type Initializer interface {
	Init(w *World)
}
