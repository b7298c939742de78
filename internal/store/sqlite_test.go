package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-report/internal/config"
	"github.com/sells-group/property-report/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testIdentity() *model.PropertyIdentity {
	return &model.PropertyIdentity{
		ProviderID:     "Z1",
		Address:        "123 Main St, Anytown, CA 90210",
		ZipCode:        "90210",
		Bedrooms:       3,
		Bathrooms:      2.5,
		LivingArea:     1600,
		EstimatedValue: 850000,
	}
}

func TestSQLite_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutIdentity(ctx, "123 main st, anytown, ca", testIdentity(), time.Hour))

	got, err := st.GetIdentity(ctx, "123 main st, anytown, ca")
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), got)
}

func TestSQLite_Miss(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetIdentity(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_PutOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutIdentity(ctx, "k", testIdentity(), time.Hour))
	updated := testIdentity()
	updated.EstimatedValue = 900000
	require.NoError(t, st.PutIdentity(ctx, "k", updated, time.Hour))

	got, err := st.GetIdentity(ctx, "k")
	require.NoError(t, err)
	assert.InDelta(t, 900000, got.EstimatedValue, 0.1)
}

func TestSQLite_ExpiryAndDeleteExpired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()
	st.nowFunc = func() time.Time { return now }

	require.NoError(t, st.PutIdentity(ctx, "short", testIdentity(), time.Minute))
	require.NoError(t, st.PutIdentity(ctx, "long", testIdentity(), 48*time.Hour))

	now = now.Add(2 * time.Minute)

	got, err := st.GetIdentity(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := st.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = st.GetIdentity(ctx, "long")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSQLite_PutNil(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.Error(t, st.PutIdentity(context.Background(), "k", nil, time.Hour))
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.PutIdentity(ctx, "k", testIdentity(), time.Hour))

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
