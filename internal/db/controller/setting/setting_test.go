package setting

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestGuards(t *testing.T) {
	db := setupTestDB(t)

	_, err := Get(nil, "x")
	require.ErrorIs(t, err, ErrDBNil)

	_, err = Set(nil, "x", nil)
	require.ErrorIs(t, err, ErrDBNil)

	require.ErrorIs(t, DeleteByName(nil, "x"), ErrDBNil)

	_, err = Get(db, "")
	require.ErrorIs(t, err, ErrSettingNameEmpty)

	_, err = Set(db, "", []byte("v"))
	require.ErrorIs(t, err, ErrSettingNameEmpty)

	require.ErrorIs(t, DeleteByName(db, ""), ErrSettingNameEmpty)
}

func TestSetGetDelete(t *testing.T) {
	db := setupTestDB(t)

	_, err := Get(db, "seed")
	require.ErrorIs(t, err, ErrSettingNotFound)

	s, err := Set(db, "seed", []byte(`{"version":1}`))
	require.NoError(t, err)
	assert.Equal(t, "seed", s.Name)
	assert.Equal(t, []byte(`{"version":1}`), s.Value)

	// upsert keeps a single row
	_, err = Set(db, "seed", []byte(`{"version":2}`))
	require.NoError(t, err)

	s, err = Get(db, "seed")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":2}`), s.Value)

	var count int64
	require.NoError(t, db.Model(&models.Setting{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, DeleteByName(db, "seed"))
	require.ErrorIs(t, DeleteByName(db, "seed"), ErrSettingNotFound)
}
