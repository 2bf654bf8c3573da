package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"medfeed/internal/models"
	"medfeed/internal/repository"
	"medfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type pushCall struct {
	Title  string
	Body   string
	Tokens []string
}

// recordingGateway captures everything the engine asks the gateway to deliver.
type recordingGateway struct {
	mu         sync.Mutex
	records    []models.AppNotification
	pushes     []pushCall
	persistErr error
	pushErr    error
}

func (g *recordingGateway) SendPush(_ context.Context, title, body string, tokens []string) (models.PushResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pushErr != nil {
		return models.PushResult{}, g.pushErr
	}
	g.pushes = append(g.pushes, pushCall{Title: title, Body: body, Tokens: append([]string(nil), tokens...)})
	return models.PushResult{Delivered: true, Count: len(tokens)}, nil
}

func (g *recordingGateway) PersistInApp(_ context.Context, records []models.AppNotification) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.persistErr != nil {
		return 0, g.persistErr
	}
	g.records = append(g.records, records...)
	return len(records), nil
}

func (g *recordingGateway) ofType(typ models.NotificationType) []models.AppNotification {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.AppNotification
	for _, r := range g.records {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func (g *recordingGateway) pushCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pushes)
}

// repoGateway persists in-app records for real so purge behaviour can be observed.
type repoGateway struct {
	recordingGateway
	repo repository.NotificationRepository
}

func (g *repoGateway) PersistInApp(ctx context.Context, records []models.AppNotification) (int, error) {
	if _, err := g.recordingGateway.PersistInApp(ctx, records); err != nil {
		return 0, err
	}
	return g.repo.CreateBatch(ctx, records)
}

type engine struct {
	db         *gorm.DB
	repos      *repository.Repositories
	gateway    *recordingGateway
	hashtags   *HashtagLedger
	polls      *PollEngine
	feed       *FeedService
	posts      *PostService
	comments   *CommentService
	engagement *EngagementService
}

func newEngineWithGateway(t *testing.T, gateway NotificationGateway, recorder *recordingGateway) *engine {
	t.Helper()
	return newEngineOn(t, testutil.NewTestDB(t), gateway, recorder)
}

func newEngineOn(t *testing.T, db *gorm.DB, gateway NotificationGateway, recorder *recordingGateway) *engine {
	t.Helper()
	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)

	hashtags := NewHashtagLedger()
	polls := NewPollEngine(uow, repos.Polls)
	feed := NewFeedService(repos, polls, repos.Groups)
	return &engine{
		db:         db,
		repos:      repos,
		gateway:    recorder,
		hashtags:   hashtags,
		polls:      polls,
		feed:       feed,
		posts:      NewPostService(uow, repos, repos.Groups, hashtags, polls, feed, gateway),
		comments:   NewCommentService(uow, repos, gateway),
		engagement: NewEngagementService(repos, gateway),
	}
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	gw := &recordingGateway{}
	return newEngineWithGateway(t, gw, gw)
}

// newPersistingEngine wires a gateway that also writes in-app rows to the database.
func newPersistingEngine(t *testing.T) *engine {
	t.Helper()
	gw := &repoGateway{}
	e := newEngineWithGateway(t, gw, &gw.recordingGateway)
	gw.repo = e.repos.Notifications
	return e
}

// newConcurrentEngine runs on a file database that several goroutines can write at once.
func newConcurrentEngine(t *testing.T, conns int) *engine {
	t.Helper()
	gw := &recordingGateway{}
	return newEngineOn(t, testutil.NewConcurrentTestDB(t, conns), gw, gw)
}

// concurrently runs fn n times in parallel and returns each call's error.
func concurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func errCode(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func doctor(id uint, roles ...string) models.Actor {
	return models.Actor{ID: id, Roles: roles}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func hashtagCount(t *testing.T, db *gorm.DB, tag string) (int64, bool) {
	t.Helper()
	var h models.Hashtag
	err := db.Where("tag = ?", tag).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false
	}
	require.NoError(t, err)
	return h.UsageCount, true
}
