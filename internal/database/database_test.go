package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"blogicum/internal/config"
	"blogicum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = configurePool(db, &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5, DBConnMaxLifetimeMinutes: 15})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"hybrid dev postgres", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "hybrid"}, true, true, false},
		{"hybrid prod postgres", config.Config{Env: "production", DBDriver: "postgres", DBSchemaMode: "hybrid"}, true, false, false},
		{"empty mode is hybrid", config.Config{Env: "staging", DBDriver: "postgres"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"auto refused in prod", config.Config{Env: "prod", DBDriver: "postgres", DBSchemaMode: "auto"}, false, false, true},
		{"auto allowed in prod with override", config.Config{Env: "prod", DBDriver: "postgres", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"sqlite always auto", config.Config{Env: "production", DBDriver: "sqlite", DBSchemaMode: "sql"}, false, true, false},
		{"unknown mode", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, runSQL)
			assert.Equal(t, tt.runAuto, runAuto)
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"m/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	got, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, 2, got[1].Version)
	assert.Equal(t, "SELECT -2;", got[1].DownScript)

	delete(fsys, "m/000001_first.down.sql")
	_, err = LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "blog.db?_fk=1", sqliteDSN("blog.db"))
	assert.Equal(t, "file:x?mode=memory&_fk=1", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "file:x?_fk=1", sqliteDSN("file:x?_fk=1"))
}

func TestCheckKnownVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, checkKnownVersions(nil, registered))
	assert.NoError(t, checkKnownVersions([]int{1, 2}, registered))
	assert.ErrorContains(t, checkKnownVersions([]int{9, 1, 7}, registered), "000007, 000009")
}

func sqliteMigrations() []Migration {
	return []Migration{
		{Version: 2, Name: "tags", UpScript: "CREATE TABLE tags (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE tags"},
		{Version: 1, Name: "notes", UpScript: "CREATE TABLE notes (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE notes"},
	}
}

func TestMigrator_UpAndDown(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()
	m := NewMigratorFor(db, sqliteMigrations())

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied, "missing log table reads as nothing applied")

	ran, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
	assert.True(t, db.Migrator().HasTable("notes"))
	assert.True(t, db.Migrator().HasTable("tags"))

	ran, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, ran)

	applied, err = m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("tags"))
	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "000002_tags", pending[0].String())

	assert.ErrorContains(t, m.Down(ctx, 2), "has not been applied")
	assert.ErrorContains(t, m.Down(ctx, 42), "not found")
}

func TestMigrator_FailedScriptLeavesNoLogRow(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()
	m := NewMigratorFor(db, []Migration{{Version: 1, Name: "broken", UpScript: "CREATE TABLE (", DownScript: ""}})

	_, err = m.Up(ctx)
	require.Error(t, err)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrator_RefusesUnknownVersions(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	require.NoError(t, db.Create(&MigrationLog{Version: 5, Name: "future"}).Error)

	_, err = NewMigratorFor(db, sqliteMigrations()).Up(ctx)
	assert.ErrorContains(t, err, "000005")
	assert.False(t, db.Migrator().HasTable("notes"))
}

func TestConnect_SQLiteAutoMigrates(t *testing.T) {
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "blog.db"),
		DBSchemaMode: "hybrid",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}

	u := models.User{Username: "utc", Email: "utc@example.com", Password: "x"}
	require.NoError(t, db.Create(&u).Error)
	assert.Equal(t, time.UTC, u.CreatedAt.Location())

	status, err := GetSchemaStatus(t.Context(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}
