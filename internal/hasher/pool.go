package hasher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/marco/mediaVault/internal/media"
)

// Result holds the outcome of a hashing batch. Hashed and Failed are each
// sorted by path.
type Result struct {
	Hashed []*media.File
	Failed []*media.HashError
}

// collector is the only state shared between workers.
type collector struct {
	mu     sync.Mutex
	result Result
}

func (c *collector) add(f *media.File, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		var herr *media.HashError
		if !errors.As(err, &herr) {
			herr = &media.HashError{Path: f.Path, Err: err}
		}
		c.result.Failed = append(c.result.Failed, herr)
		return
	}
	c.result.Hashed = append(c.result.Hashed, f)
}

// Pool fans hashing out across a fixed number of workers.
type Pool struct {
	hasher  *Hasher
	workers int
}

// NewPool creates a pool. workers <= 0 means one worker.
func NewPool(h *Hasher, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{hasher: h, workers: workers}
}

// HashAll digests every file and waits for all workers before returning.
// The queue holds at most twice the worker count so the producer blocks
// when hashing falls behind. processed, if non-nil, is incremented after
// each file. Read failures land in Result.Failed; the only error returned
// is the context's, in which case every file that was not hashed is in
// Result.Failed with the context error.
func (p *Pool) HashAll(ctx context.Context, files []*media.File, processed *int64) (Result, error) {
	jobs := make(chan *media.File, 2*p.workers)
	col := &collector{}

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				if err := ctx.Err(); err != nil {
					col.add(file, err)
					continue
				}
				_, err := p.hasher.Ensure(file)
				col.add(file, err)
				if processed != nil {
					atomic.AddInt64(processed, 1)
				}
			}
		}()
	}

	fed := 0
feed:
	for ; fed < len(files); fed++ {
		select {
		case jobs <- files[fed]:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	for _, file := range files[fed:] {
		col.add(file, ctx.Err())
	}
	wg.Wait()

	res := col.result
	sort.Slice(res.Hashed, func(i, j int) bool { return res.Hashed[i].Path < res.Hashed[j].Path })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Path < res.Failed[j].Path })
	return res, ctx.Err()
}
