// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"medfeed/internal/database"
	"medfeed/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database migrated with the production model list.
// A single connection keeps every statement on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := open(t, ":memory:?_foreign_keys=on")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewConcurrentTestDB opens a file-backed SQLite database that several
// connections share, for tests that race goroutines against each other.
// Transactions begin IMMEDIATE so writers queue on the busy timeout.
func NewConcurrentTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate",
		filepath.Join(t.TempDir(), "medfeed.db"))
	db := open(t, dsn)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateDoctor inserts a doctor row.
func CreateDoctor(t *testing.T, db *gorm.DB, name string, verified bool) *models.Doctor {
	t.Helper()
	d := &models.Doctor{Name: name, Specialty: "Internal Medicine", IsVerified: verified}
	require.NoError(t, db.Create(d).Error)
	return d
}

// CreatePushToken registers a device token for a doctor.
func CreatePushToken(t *testing.T, db *gorm.DB, doctorID uint, token string) {
	t.Helper()
	require.NoError(t, db.Create(&models.PushToken{DoctorID: doctorID, Token: token, Platform: "ios"}).Error)
}

// CreateGroup inserts a group with the given privacy and members.
func CreateGroup(t *testing.T, db *gorm.DB, privacy models.GroupPrivacy, members ...uint) *models.Group {
	t.Helper()
	g := &models.Group{Name: "Nephrology Club", Privacy: privacy}
	require.NoError(t, db.Create(g).Error)
	for _, id := range members {
		require.NoError(t, db.Create(&models.GroupMember{GroupID: g.ID, DoctorID: id}).Error)
	}
	return g
}

// CreatePost inserts a bare public post without hashtags or poll.
func CreatePost(t *testing.T, db *gorm.DB, authorID uint, content string) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID:   authorID,
		Content:    content,
		MediaKind:  models.MediaKindNone,
		Visibility: models.VisibilityPublic,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment inserts a comment, optionally as a reply.
func CreateComment(t *testing.T, db *gorm.DB, postID, authorID uint, body string, parentID *uint) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, AuthorID: authorID, Body: body, ParentID: parentID}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Count returns the number of rows of model matching the optional condition.
func Count(t *testing.T, db *gorm.DB, model interface{}, query ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
