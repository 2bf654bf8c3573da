package database

import (
	"context"
	"testing"
	"testing/fstest"

	"medfeed/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	err := configurePool(db, &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "medfeed"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=medfeed sslmode=disable", dsn)
}

func TestAutoMigrate_CreatesEveryTable(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{
		"doctors", "push_tokens", "groups", "group_members", "posts", "hashtags", "post_hashtags",
		"polls", "poll_options", "poll_votes", "comments", "likes", "saves", "comment_likes", "app_notifications",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.False(t, db.Migrator().HasColumn("posts", "likes_count"), "computed columns must not be migrated")
	assert.True(t, db.Migrator().HasIndex("likes", "idx_like_post_doctor"))
}

func TestEmbeddedMigrations(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "000001_feed_schema", all[0].String())
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Version, all[i].Version)
		assert.NotEmpty(t, all[i].DownScript)
	}
}

func TestLoadMigrations_RejectsMissingDownScript(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_init.up.sql": {Data: []byte("CREATE TABLE t (id INTEGER)")},
	}
	_, err := LoadMigrations(fsys)
	assert.Error(t, err)
}

func TestApply_IsIdempotent(t *testing.T) {
	db := openSQLite(t)
	fsys := fstest.MapFS{
		"migrations/000001_init.up.sql":    {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY)")},
		"migrations/000001_init.down.sql":  {Data: []byte("DROP TABLE widgets")},
		"migrations/000002_extra.up.sql":   {Data: []byte("CREATE INDEX idx_widgets_id ON widgets (id)")},
		"migrations/000002_extra.down.sql": {Data: []byte("DROP INDEX idx_widgets_id")},
		"migrations/README.md":             {Data: []byte("ignored")},
	}
	all, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, all, 2)

	ctx := context.Background()
	require.NoError(t, apply(ctx, db, all))
	require.NoError(t, apply(ctx, db, all))

	var count int64
	require.NoError(t, db.Model(&MigrationLog{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.True(t, db.Migrator().HasTable("widgets"))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestMigrationStatus_FreshDatabase(t *testing.T) {
	db := openSQLite(t)
	all, err := Migrations()
	require.NoError(t, err)

	applied, pending, err := MigrationStatus(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Len(t, pending, len(all))
}

func TestMigrationStatus_AfterPartialApply(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	require.NoError(t, db.Create(&MigrationLog{Version: 1, Name: "feed_schema"}).Error)

	applied, pending, err := MigrationStatus(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
	for _, m := range pending {
		assert.NotEqual(t, 1, m.Version)
	}
}
