package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_LimitsConcurrency(t *testing.T) {
	bucket := newTokenBucket(2)
	ctx := context.Background()

	require := func(err error) {
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
	}

	require(bucket.acquire(ctx))
	require(bucket.acquire(ctx))

	acquired := make(chan struct{})
	go func() {
		bucket.acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should have blocked while two permits are held")
	case <-time.After(20 * time.Millisecond):
	}

	bucket.release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third acquire never unblocked after release")
	}
}

func TestTokenBucket_AcquireRespectsContextCancellation(t *testing.T) {
	bucket := newTokenBucket(1)
	require2 := func(err error) {
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
	}
	require2(bucket.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bucket.acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
