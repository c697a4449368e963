package credits

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	store := NewStore()

	balance, known := store.Get()
	assert.False(t, known, "no authoritative value seen yet")
	assert.Zero(t, balance)

	store.Set(10)
	balance, known = store.Get()
	assert.True(t, known)
	assert.Equal(t, 10, balance)

	// a later authoritative value replaces the old one wholesale
	store.Set(3)
	balance, _ = store.Get()
	assert.Equal(t, 3, balance)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Set(i)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Get()
		}()
	}
	wg.Wait()

	_, known := store.Get()
	assert.True(t, known)
}
