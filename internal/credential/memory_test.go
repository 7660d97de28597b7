package credential

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/clock"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryStore_IssueValidate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(DefaultTTL, clock.NewFake(epoch))

	id, err := s.Issue(ctx, 42)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "qr_"))

	v, err := s.Validate(ctx, id)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, uint(42), v.ActivationID)
	assert.Equal(t, epoch, v.IssuedAt)

	other, err := s.Issue(ctx, 42)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestMemoryStore_Validate_Unknown(t *testing.T) {
	s := NewMemoryStore(DefaultTTL, clock.NewFake(epoch))

	v, err := s.Validate(context.Background(), "qr_missing")
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestMemoryStore_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name  string
		age   time.Duration
		valid bool
	}{
		{name: "fresh", age: 0, valid: true},
		{name: "299s", age: 299 * time.Second, valid: true},
		{name: "exactly ttl", age: 300 * time.Second, valid: true},
		{name: "one ms past", age: 300*time.Second + time.Millisecond, valid: false},
		{name: "301s", age: 301 * time.Second, valid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c := clock.NewFake(epoch)
			s := NewMemoryStore(DefaultTTL, c)

			id, err := s.Issue(ctx, 1)
			require.NoError(t, err)

			// Repeated validations must not change the outcome.
			c.Advance(tc.age)
			for i := 0; i < 3; i++ {
				v, err := s.Validate(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, tc.valid, v.Valid)
			}
		})
	}
}

func TestMemoryStore_ExpiredLookupEvicts(t *testing.T) {
	ctx := context.Background()
	c := clock.NewFake(epoch)
	s := NewMemoryStore(DefaultTTL, c)

	id, err := s.Issue(ctx, 1)
	require.NoError(t, err)
	c.Advance(301 * time.Second)

	v, err := s.Validate(ctx, id)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, 0, s.Len())

	// Rewinding is impossible for a real clock, but the entry must be gone anyway.
	c.Advance(-301 * time.Second)
	v, err = s.Validate(ctx, id)
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestMemoryStore_IssueSweeps(t *testing.T) {
	ctx := context.Background()
	c := clock.NewFake(epoch)
	s := NewMemoryStore(DefaultTTL, c)

	for i := 0; i < 5; i++ {
		_, err := s.Issue(ctx, uint(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, s.Len())

	c.Advance(6 * time.Minute)
	_, err := s.Issue(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	c.Advance(6 * time.Minute)
	require.NoError(t, s.Sweep(ctx))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(DefaultTTL, clock.NewFake(epoch))

	id, err := s.Issue(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, s.Invalidate(ctx, id))
	require.NoError(t, s.Invalidate(ctx, id))

	v, err := s.Validate(ctx, id)
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(DefaultTTL, clock.Real{})

	var wg sync.WaitGroup
	ids := make(chan string, 200)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Issue(ctx, uint(i))
			assert.NoError(t, err)
			ids <- id

			v, err := s.Validate(ctx, id)
			assert.NoError(t, err)
			assert.True(t, v.Valid)
			assert.Equal(t, uint(i), v.ActivationID)

			if i%2 == 0 {
				assert.NoError(t, s.Invalidate(ctx, id))
			}
			assert.NoError(t, s.Sweep(ctx))
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate token id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 50, s.Len())
}
