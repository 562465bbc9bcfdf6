package visits

import (
	"context"
	"sync"
	"testing"

	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCounter(t *testing.T, counter Counter) {
	t.Helper()
	ctx := context.Background()

	count, err := counter.Read(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = counter.Increment(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = counter.Increment(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = counter.Increment(ctx, "visitor-b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = counter.Read(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore(t *testing.T) {
	t.Parallel()
	testCounter(t, NewStore(testutils.NewDB(t)))
}

func TestMemoryCounter(t *testing.T) {
	t.Parallel()
	testCounter(t, NewMemoryCounter())
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	t.Parallel()
	counter := NewMemoryCounter()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = counter.Increment(ctx, "visitor")
		}()
	}
	wg.Wait()

	count, err := counter.Read(ctx, "visitor")
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}
