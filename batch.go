package espc

import (
	"context"
	"runtime"
	"sync"
)

// CompileBatch compiles the given files in parallel with a bounded worker
// pool. Each worker owns its own pipeline state; results come back in the
// input order. workers <= 0 uses the CPU count.
//
// File discovery belongs to the caller; this function takes explicit paths.
func CompileBatch(ctx context.Context, paths []string, cfg *Config, workers int) ([]Result, error) {
	if len(paths) == 0 {
		return nil, ErrNoSource
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]Result, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = Compile(ctx, paths[i], cfg)
			}
		}()
	}

	for i := range paths {
		select {
		case <-ctx.Done():
			// Stop feeding; in-flight files finish on their own.
			close(jobs)
			wg.Wait()
			return results, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results, nil
}
