package workerpool

import "sync"

// Run executes fn for every item on a bounded pool of workers and returns
// the results in item order: results[i] holds fn(items[i]) regardless of
// which worker ran it or when it finished. Each task writes only its own
// slot, so the hot path takes no locks. Run blocks until every task has
// completed; per-task failures belong in the result type, a worker never
// aborts its siblings.
func Run[T, R any](items []T, workers int, fn func(T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	indexes := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()

			for i := range indexes {
				results[i] = fn(items[i])
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)

	wg.Wait()

	return results
}
