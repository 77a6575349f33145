package controller

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	t.Run("submission never blocks while workers are busy", func(t *testing.T) {
		p := newPool(1)
		release := make(chan struct{})
		p.submit(func() { <-release })

		// The single worker is parked; every further submission must
		// still return immediately.
		var ran atomic.Int32
		submitted := make(chan struct{})
		go func() {
			for i := 0; i < 500; i++ {
				p.submit(func() { ran.Add(1) })
			}
			close(submitted)
		}()

		select {
		case <-submitted:
		case <-time.After(5 * time.Second):
			t.Fatal("submit blocked with a busy worker")
		}

		close(release)
		p.stop()
		assert.Equal(t, int32(500), ran.Load())
	})

	t.Run("stop drains queued jobs", func(t *testing.T) {
		p := newPool(2)
		var ran atomic.Int32
		for i := 0; i < 50; i++ {
			p.submit(func() { ran.Add(1) })
		}
		p.stop()
		assert.Equal(t, int32(50), ran.Load())
	})

	t.Run("submit after stop still runs the job", func(t *testing.T) {
		p := newPool(1)
		p.stop()

		done := make(chan struct{})
		require.NotPanics(t, func() {
			p.submit(func() { close(done) })
		})
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("job submitted after stop never ran")
		}
	})

	t.Run("jobs run concurrently up to the worker count", func(t *testing.T) {
		p := newPool(4)
		var wg sync.WaitGroup
		var parked atomic.Int32
		barrier := make(chan struct{})
		for i := 0; i < 4; i++ {
			wg.Add(1)
			p.submit(func() {
				defer wg.Done()
				parked.Add(1)
				<-barrier
			})
		}

		// All four jobs must be parked at once before the barrier opens.
		deadline := time.After(5 * time.Second)
		for parked.Load() < 4 {
			select {
			case <-deadline:
				t.Fatalf("only %d of 4 jobs running concurrently", parked.Load())
			case <-time.After(time.Millisecond):
			}
		}
		close(barrier)
		wg.Wait()
		p.stop()
	})
}
