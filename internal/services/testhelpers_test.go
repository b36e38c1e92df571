package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"studiorent/internal/database"
	"studiorent/internal/models"
)

func newTestDB(t *testing.T, equipment ...models.Equipment) *database.JSONDatabase {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "data.json"), zaptest.NewLogger(t))
	require.NoError(t, err)
	for i := range equipment {
		e := equipment[i]
		require.NoError(t, db.UpsertEquipment(&e))
	}
	return db
}

func mustRange(t *testing.T, from, to string) models.DateRange {
	t.Helper()
	r, err := models.ParseDateRange(from, to)
	require.NoError(t, err)
	return r
}
