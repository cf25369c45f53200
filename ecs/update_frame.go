package ecs

// UpdateFrame is passed to every system of one Scheduler.Once call. Commands is
// shared by all systems of the frame and played back after the last one ran.
type UpdateFrame struct {
	DeltaTime float64
	Commands  *CommandBuffer
	World     *World
}

func newUpdateFrame(dt float64, w *World, commands *CommandBuffer) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  commands,
		World:     w,
	}
}
