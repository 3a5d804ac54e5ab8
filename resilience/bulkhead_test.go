package resilience

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBulkhead_TryAcquireIsExclusive(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "submit", MaxConcurrent: 1})

	var wins int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if b.TryAcquire() {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, 1, b.InUse())

	b.Release()
	assert.Equal(t, 0, b.InUse())
	assert.True(t, b.TryAcquire())
}

func TestBulkhead_ReleaseEmptyIsNoop(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	b.Release()
	assert.Equal(t, 2, b.Available())
	assert.True(t, b.TryAcquire())
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())
}

func TestBulkhead_RejectCallback(t *testing.T) {
	var rejected []string
	b := NewBulkhead(BulkheadConfig{Name: "submit", MaxConcurrent: 1, OnReject: func(name string) {
		rejected = append(rejected, name)
	}})
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())
	assert.Equal(t, []string{"submit"}, rejected)
}
