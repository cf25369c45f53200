package ecs

import "github.com/rotisserie/eris"

// Contract violations are raised as panics wrapping one of these errors, so a
// recovered value can be matched with errors.Is.
var (
	ErrEntityNotFound          = eris.New("entity does not exist")
	ErrEntityNotAlive          = eris.New("entity is a phantom")
	ErrEntityOfOtherWorld      = eris.New("entity belongs to a different world")
	ErrComponentNotRegistered  = eris.New("component type not registered")
	ErrComponentNotInArchetype = eris.New("component not in archetype")
	ErrComponentTypeMismatch   = eris.New("component value does not match column type")
	ErrDuplicateComponent      = eris.New("duplicate component in archetype declaration")
	ErrHashMismatch            = eris.New("archetype hash does not match signature")
	ErrComponentAlreadySet     = eris.New("component already set on buffered entity")
	ErrPhantomMarker           = eris.New("phantom marker cannot be set or removed directly")
	ErrBufferedEntityExpired   = eris.New("buffered entity belongs to a buffer that was already played back")
	ErrResolverMismatch        = eris.New("resolver does not belong to the latest playback of this buffer")
	ErrResolverReleased        = eris.New("resolver has been released")
	ErrPlaybackInProgress      = eris.New("playback started while another playback is running")
	ErrQueryRoleConflict       = eris.New("component used in more than one query role")
	ErrDisposalDepthExceeded   = eris.New("disposal cascade exceeded maximum depth")
	ErrInvalidConfig           = eris.New("invalid engine configuration")
)
