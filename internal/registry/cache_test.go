package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheDoMemoizesSuccess(t *testing.T) {
	var c Cache[string, int]
	calls := 0
	thunk := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.Do(context.Background(), "key", thunk)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.Do(context.Background(), "key", thunk)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "thunk should only run once per key")
}

func TestCacheDoMemoizesError(t *testing.T) {
	var c Cache[string, int]
	wantErr := errors.New("boom")
	calls := 0
	thunk := func() (int, error) {
		calls++
		return 0, wantErr
	}

	_, err := c.Do(context.Background(), "key", thunk)
	assert.ErrorIs(t, err, wantErr)

	_, err = c.Do(context.Background(), "key", thunk)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls, "errors are cached too, not retried")
}

func TestCacheDoDistinctKeysDontShareEntries(t *testing.T) {
	var c Cache[string, int]
	calls := 0
	makeThunk := func(v int) func() (int, error) {
		return func() (int, error) {
			calls++
			return v, nil
		}
	}

	a, err := c.Do(context.Background(), "a", makeThunk(1))
	require.NoError(t, err)
	b, err := c.Do(context.Background(), "b", makeThunk(2))
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, calls)
}
