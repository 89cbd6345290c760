package gormdb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/storetest"
	"github.com/warp/attendance-engine/store/gormdb"
	"gorm.io/driver/sqlite"
)

// newTestStore opens a private in-memory SQLite database through GORM.
func newTestStore(t *testing.T) *gormdb.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", attendance.NewID())
	store, err := gormdb.Open(sqlite.Open(dsn), nil)
	require.NoError(t, err)

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { store.Close() })
	return store
}

func TestGormStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) attendance.Store {
		return newTestStore(t)
	})
}

func TestGormStore_SaveShiftKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := attendance.EnsureDefaultShift(ctx, store)
	require.NoError(t, err)

	edited := attendance.DefaultShift()
	edited.GraceMinutes = 15
	saved, err := store.SaveShift(ctx, edited)
	require.NoError(t, err)

	assert.Equal(t, first.ID, saved.ID)
	assert.Equal(t, 15, saved.GraceMinutes)
	assert.True(t, first.CreatedAt.Equal(saved.CreatedAt))
}

func TestGormStore_Ping(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, store.Ping(ctx))
}
