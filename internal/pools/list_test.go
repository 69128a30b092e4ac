package pools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

func TestListFillingPaginates(t *testing.T) {
	f := newPoolFixture(t)

	base := time.Now().Add(-time.Hour)
	var seeded []*models.Pool
	for i := 0; i < 3; i++ {
		pool := f.seedPool(t, 10)
		pool.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.db.Save(pool).Error)
		seeded = append(seeded, pool)
	}
	closed := f.seedPool(t, 10)
	closed.Status = enums.PoolStatusClosed
	require.NoError(t, f.db.Save(closed).Error)

	first, err := f.svc.ListFilling(context.Background(), ListInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Pools, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, seeded[2].ID, first.Pools[0].ID)
	assert.Equal(t, seeded[1].ID, first.Pools[1].ID)

	second, err := f.svc.ListFilling(context.Background(), ListInput{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Pools, 1)
	assert.Equal(t, seeded[0].ID, second.Pools[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestListFillingRejectsBadCursor(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.svc.ListFilling(context.Background(), ListInput{Cursor: "%%%not-base64%%%"})
	require.Error(t, err)
}
