package main

import "github.com/plus3/entitydb/ecs"

// The five numeric components. Every entity carries a non-empty random subset.
type Int32 struct{ V int32 }
type Int64 struct{ V int64 }
type Uint16 struct{ V uint16 }
type Float32 struct{ V float32 }
type Float64 struct{ V float64 }

type components struct {
	i32 ecs.ComponentType[Int32]
	i64 ecs.ComponentType[Int64]
	u16 ecs.ComponentType[Uint16]
	f32 ecs.ComponentType[Float32]
	f64 ecs.ComponentType[Float64]
}

func registerComponents(r *ecs.ComponentRegistry) components {
	return components{
		i32: ecs.RegisterComponent[Int32](r),
		i64: ecs.RegisterComponent[Int64](r),
		u16: ecs.RegisterComponent[Uint16](r),
		f32: ecs.RegisterComponent[Float32](r),
		f64: ecs.RegisterComponent[Float64](r),
	}
}

// Seeded values of the components the increment pass must leave alone.
func seedInt64(i int) int64     { return int64(i) * 3 }
func seedUint16(i int) uint16   { return uint16(i) }
func seedFloat32(i int) float32 { return float32(i) / 4 }
func seedFloat64(i int) float64 { return float64(i) / 8 }

// incrementSystem adds one to every Int32 in parallel, chunk by chunk.
type incrementSystem struct {
	c     components
	query *ecs.QueryDescription
}

func (s *incrementSystem) Init(w *ecs.World) {
	s.query = ecs.NewQuery().Include(s.c.i32.ID()).Build(w)
}

func (s *incrementSystem) Execute(frame *ecs.UpdateFrame) {
	s.query.Parallel(frame.World.Pool(), func(chunk *ecs.Chunk) {
		values := s.c.i32.Column(chunk)
		for i := range values {
			values[i].V++
		}
	})
}
