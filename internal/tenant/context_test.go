package tenant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_Empty(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.False(t, Has(context.Background()))
}

func TestWithContext_RoundTrip(t *testing.T) {
	tc := Context{ID: uuid.New(), Slug: "acme", Plan: "starter"}
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, tc, got)
	assert.True(t, Has(ctx))
}

func TestID_NoContext(t *testing.T) {
	id, err := ID(context.Background())
	assert.ErrorIs(t, err, ErrNoTenantContext)
	assert.Equal(t, uuid.Nil, id)
}

func TestID_WithContext(t *testing.T) {
	want := uuid.New()
	ctx := WithContext(context.Background(), Context{ID: want})

	got, err := ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWithContext_NestingShadowsInner(t *testing.T) {
	outer := Context{ID: uuid.New(), Slug: "outer"}
	inner := Context{ID: uuid.New(), Slug: "inner"}

	ctx := WithContext(context.Background(), outer)
	nested := WithContext(ctx, inner)

	// The derived context sees the inner tenant, the original context is
	// untouched.
	got, ok := FromContext(nested)
	require.True(t, ok)
	assert.Equal(t, inner, got)

	got, ok = FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, outer, got)
}

func TestRunWith_EstablishesAndRestores(t *testing.T) {
	base := context.Background()
	tc := Context{ID: uuid.New(), Slug: "acme"}

	err := RunWith(base, tc, func(ctx context.Context) error {
		got, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, tc, got)
		return nil
	})
	require.NoError(t, err)

	// The caller's context never picks up the tenant.
	assert.False(t, Has(base))
}

func TestRunWith_ConcurrentTenantsDoNotBleed(t *testing.T) {
	// Many goroutines each run under their own tenant with interleaved
	// yields; every observation inside must match that goroutine's tenant.
	const goroutines = 32

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tc := Context{ID: uuid.New()}
			err := RunWith(context.Background(), tc, func(ctx context.Context) error {
				for j := 0; j < 10; j++ {
					time.Sleep(time.Millisecond)
					got, err := ID(ctx)
					if err != nil {
						return err
					}
					if got != tc.ID {
						t.Errorf("tenant bled across goroutines: want %s got %s", tc.ID, got)
					}
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
