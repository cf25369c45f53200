package ecs

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs n independent work items and returns once all of them finished.
// Implementations may run items concurrently and in any order.
type Pool interface {
	Run(n int, work func(i int))
}

type groupPool struct {
	workers int
}

// NewPool returns a Pool running at most workers items at a time.
// workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &groupPool{workers: workers}
}

// workPanic carries a recovered panic back to the goroutine that called Run.
type workPanic struct {
	value any
}

func (p workPanic) Error() string {
	return fmt.Sprintf("panic in pool work item: %v", p.value)
}

// Run executes work(0..n-1). A panic in any item is re-raised on the calling
// goroutine after the remaining items have finished.
func (p *groupPool) Run(n int, work func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || p.workers == 1 {
		for i := range n {
			work(i)
		}
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i := range n {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = workPanic{value: r}
				}
			}()
			work(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err.(workPanic).value)
	}
}

// Parallel calls fn once per non-empty matching chunk, spread over pool. fn
// may write the chunk's component data but must not make structural changes
// other than through a CommandBuffer it synchronizes itself.
func (q *QueryDescription) Parallel(pool Pool, fn func(*Chunk)) {
	chunks := q.chunks()
	pool.Run(len(chunks), func(i int) {
		fn(chunks[i])
	})
}

type chunkRange struct {
	chunk      *Chunk
	start, end int
}

// ParallelRanges splits every matching chunk into row ranges of at most width
// rows and calls fn for each range, spread over pool. Use it when chunks are
// few but large.
func (q *QueryDescription) ParallelRanges(pool Pool, width int, fn func(c *Chunk, start, end int)) {
	if width <= 0 {
		width = q.world.config.ChunkCapacity
	}
	var ranges []chunkRange
	for c := range q.Chunks() {
		for start := 0; start < c.count; start += width {
			ranges = append(ranges, chunkRange{chunk: c, start: start, end: min(start+width, c.count)})
		}
	}
	pool.Run(len(ranges), func(i int) {
		r := ranges[i]
		fn(r.chunk, r.start, r.end)
	})
}
