package store

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialAllocator_Next(t *testing.T) {
	db := newTestDB(t)
	allocator := NewSerialAllocator(db, zerolog.Nop())
	ctx := context.Background()

	first, err := allocator.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), first)

	second, err := allocator.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), second)

	// The new value must be durably visible, not just returned.
	var stored int64
	require.NoError(t, db.Get(&stored, `SELECT counter FROM serial_counter WHERE id = 1`))
	assert.Equal(t, second, stored)
}

func TestSerialAllocator_ConcurrentAllocationsAreDistinct(t *testing.T) {
	db := newTestDB(t)
	allocator := NewSerialAllocator(db, zerolog.Nop())
	ctx := context.Background()

	const n = 25
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serial, err := allocator.Next(ctx)
			assert.NoError(t, err)
			results <- serial
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, n)
	for serial := range results {
		assert.False(t, seen[serial], "serial %d allocated twice", serial)
		seen[serial] = true
	}
	require.Len(t, seen, n)

	// N allocations yield exactly the consecutive range starting at
	// initial counter + 1.
	for serial := int64(1001); serial <= int64(1000+n); serial++ {
		assert.True(t, seen[serial], "missing serial %d", serial)
	}
}

func TestSerialAllocator_SyncRaisesCounterToCatalogMax(t *testing.T) {
	db := newTestDB(t)
	allocator := NewSerialAllocator(db, zerolog.Nop())
	ctx := context.Background()

	// Simulate an externally inserted row far ahead of the counter.
	mustAddProduct(t, db, testProduct(5000, "Externally Imported", 9.99, 3))

	require.NoError(t, allocator.Sync(ctx))

	next, err := allocator.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), next)
}

func TestSerialAllocator_SyncIsNoOpWhenCounterAhead(t *testing.T) {
	db := newTestDB(t)
	allocator := NewSerialAllocator(db, zerolog.Nop())
	ctx := context.Background()

	mustAddProduct(t, db, testProduct(42, "Old Stock", 5, 1))

	require.NoError(t, allocator.Sync(ctx))

	next, err := allocator.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), next)
}
