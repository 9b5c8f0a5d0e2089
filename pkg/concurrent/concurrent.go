package concurrent

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// All runs each non-nil fn in its own goroutine and waits for all of them.
// It returns the first error encountered.
func All(fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		if fn != nil {
			g.Go(fn)
		}
	}
	return g.Wait()
}

// Each runs each non-nil fn in its own goroutine and waits for all of them.
func Each(fns ...func()) {
	var wg sync.WaitGroup
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}
