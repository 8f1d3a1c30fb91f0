package reward

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_TryRegister(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.TryRegister("alice"))
	assert.False(t, r.TryRegister("alice"))
	assert.True(t, r.TryRegister("bob"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConcurrentSameID(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	var wins atomic.Int32
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryRegister("alice") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, r.Len())
}
