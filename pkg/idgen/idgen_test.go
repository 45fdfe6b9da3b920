package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonyflake_UniqueAndIncreasing(t *testing.T) {
	g, err := NewSonyflake(&Config{MachineID: 7})
	require.NoError(t, err)

	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id, err := g.NextID()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestSonyflake_Concurrent(t *testing.T) {
	g, err := NewSonyflake(nil)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id, err := g.NextID()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}
