package pipeline

import "context"

// tokenBucket is a channel-based counting semaphore bounding the number of
// concurrent OCR/LLM calls across every worker and every chunk those
// workers spawn, regardless of how many DocumentPipeline instances are
// running. A plain channel-based pattern (sem := make(chan struct{}, n);
// acquire via send, release via receive) rather than
// golang.org/x/sync/semaphore, which nothing else in this module imports.
type tokenBucket struct {
	ch chan struct{}
}

// newTokenBucket creates a bucket with n permits.
func newTokenBucket(n int) *tokenBucket {
	if n < 1 {
		n = 1
	}
	return &tokenBucket{ch: make(chan struct{}, n)}
}

// NewSharedTokenBucket is the exported constructor the wiring layer uses to
// build the one OCR/LLM concurrency bucket a process shares across every
// DocumentPipeline and Scheduler it constructs. The wiring layer sizes it
// worker_pool_size * inner-chunk-concurrency permits.
func NewSharedTokenBucket(n int) *tokenBucket {
	return newTokenBucket(n)
}

// acquire blocks until a permit is available or ctx is done.
func (t *tokenBucket) acquire(ctx context.Context) error {
	select {
	case t.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release returns a permit to the bucket.
func (t *tokenBucket) release() {
	<-t.ch
}
