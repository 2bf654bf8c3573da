package service

import (
	"context"
	"testing"

	"medfeed/internal/models"
	"medfeed/internal/repository"
	"medfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPrivateGroupPostsRequireMembership(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	author := testutil.CreateDoctor(t, e.db, "Dr. Author", true)
	member := testutil.CreateDoctor(t, e.db, "Dr. Member", true)
	outsider := testutil.CreateDoctor(t, e.db, "Dr. Outsider", true)
	group := testutil.CreateGroup(t, e.db, models.GroupPrivacyPrivate, author.ID, member.ID)

	post, err := e.posts.Create(ctx, doctor(author.ID), CreatePostInput{
		Content: "ward round #icu",
		GroupID: &group.ID,
		Poll:    &PollSpec{Question: "Extubate?", Options: []string{"yes", "no"}, AllowAddOptions: true},
	})
	require.NoError(t, err)
	comment, err := e.comments.AddComment(ctx, doctor(author.ID), AddCommentInput{PostID: post.ID, Body: "context"})
	require.NoError(t, err)
	option := post.Poll.Options[0].ID

	t.Run("outsider", func(t *testing.T) {
		assertCode(t, e.engagement.TogglePostLike(ctx, post.ID, doctor(outsider.ID), models.IntentOn), models.CodeNotAccessible)
		assertCode(t, e.engagement.TogglePostSave(ctx, post.ID, doctor(outsider.ID), models.IntentOn), models.CodeNotAccessible)
		_, err := e.comments.AddComment(ctx, doctor(outsider.ID), AddCommentInput{PostID: post.ID, Body: "hi"})
		assertCode(t, err, models.CodeNotAccessible)
		_, err = e.comments.ListTopLevel(ctx, post.ID, outsider.ID, 1)
		assertCode(t, err, models.CodeNotAccessible)
		assertCode(t, e.comments.ToggleCommentLike(ctx, comment.ID, doctor(outsider.ID), models.IntentOn), models.CodeNotAccessible)
		_, err = e.polls.Vote(ctx, option, outsider.ID)
		assertCode(t, err, models.CodeNotAccessible)
		_, err = e.polls.AddOption(ctx, post.Poll.ID, doctor(outsider.ID), "maybe")
		assertCode(t, err, models.CodeNotAccessible)

		assert.Zero(t, testutil.Count(t, e.db, &models.Like{}))
		assert.Zero(t, testutil.Count(t, e.db, &models.Save{}))
		assert.Zero(t, testutil.Count(t, e.db, &models.CommentLike{}))
		assert.Zero(t, testutil.Count(t, e.db, &models.PollVote{}))
		assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.Comment{}))
		assert.Equal(t, int64(2), testutil.Count(t, e.db, &models.PollOption{}))
	})

	t.Run("member", func(t *testing.T) {
		require.NoError(t, e.engagement.TogglePostLike(ctx, post.ID, doctor(member.ID), models.IntentOn))
		require.NoError(t, e.engagement.TogglePostSave(ctx, post.ID, doctor(member.ID), models.IntentOn))
		_, err := e.comments.AddComment(ctx, doctor(member.ID), AddCommentInput{PostID: post.ID, Body: "agree"})
		require.NoError(t, err)
		page, err := e.comments.ListTopLevel(ctx, post.ID, member.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		require.NoError(t, e.comments.ToggleCommentLike(ctx, comment.ID, doctor(member.ID), models.IntentOn))
		_, err = e.polls.Vote(ctx, option, member.ID)
		require.NoError(t, err)
		tally, err := e.polls.AddOption(ctx, post.Poll.ID, doctor(member.ID), "maybe")
		require.NoError(t, err)
		assert.Len(t, tally.Options, 3)
	})
}

func TestPrivateGroupPostIsAnnouncedToMembersOnly(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	author := testutil.CreateDoctor(t, e.db, "Dr. Author", true)
	member := testutil.CreateDoctor(t, e.db, "Dr. Member", true)
	pending := testutil.CreateDoctor(t, e.db, "Dr. Pending", false)
	outsider := testutil.CreateDoctor(t, e.db, "Dr. Outsider", true)
	private := testutil.CreateGroup(t, e.db, models.GroupPrivacyPrivate, author.ID, member.ID, pending.ID)
	open := testutil.CreateGroup(t, e.db, models.GroupPrivacyPublic, author.ID)

	grouped, err := e.posts.Create(ctx, doctor(author.ID), CreatePostInput{Content: "members only", GroupID: &private.ID})
	require.NoError(t, err)
	_, err = e.posts.Create(ctx, doctor(author.ID), CreatePostInput{Content: "open group", GroupID: &open.ID})
	require.NoError(t, err)

	recipients := map[uint][]uint{}
	for _, n := range e.gateway.ofType(models.NotificationNewPost) {
		recipients[n.SubjectID] = append(recipients[n.SubjectID], n.RecipientID)
	}
	assert.Equal(t, []uint{member.ID}, recipients[grouped.ID])
	assert.Len(t, recipients, 2)
	for subject, ids := range recipients {
		if subject != grouped.ID {
			assert.ElementsMatch(t, []uint{member.ID, outsider.ID}, ids)
		}
	}
}

// vanishingPosts deletes each post right after loading it, the way a
// concurrent delete landing between the load and the write would.
type vanishingPosts struct {
	repository.PostRepository
	db *gorm.DB
}

func (p *vanishingPosts) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	post, err := p.PostRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func TestEngagementService_PostDeletedMidLike(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "case")

	svc := NewEngagementService(e.repos, e.gateway)
	svc.posts = &vanishingPosts{PostRepository: e.repos.Posts, db: e.db}

	assertCode(t, svc.TogglePostLike(ctx, post.ID, doctor(2), models.IntentOn), models.CodeNotFound)
	assert.Zero(t, testutil.Count(t, e.db, &models.Like{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.AppNotification{}))
	assert.Empty(t, e.gateway.records)

	other := testutil.CreatePost(t, e.db, 1, "reference")
	assertCode(t, svc.TogglePostSave(ctx, other.ID, doctor(2), models.IntentOn), models.CodeNotFound)
	assert.Zero(t, testutil.Count(t, e.db, &models.Save{}))
}

func TestCommentService_PostDeletedMidWrite(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	repos := *e.repos
	repos.Posts = &vanishingPosts{PostRepository: e.repos.Posts, db: e.db}
	svc := NewCommentService(repository.NewUnitOfWork(e.db), &repos, e.gateway)

	post := testutil.CreatePost(t, e.db, 1, "case")
	_, err := svc.AddComment(ctx, doctor(2), AddCommentInput{PostID: post.ID, Body: "too late"})
	assertCode(t, err, models.CodeNotFound)
	assert.Zero(t, testutil.Count(t, e.db, &models.Comment{}))

	post = testutil.CreatePost(t, e.db, 1, "case")
	comment := testutil.CreateComment(t, e.db, post.ID, 3, "first", nil)
	assertCode(t, svc.ToggleCommentLike(ctx, comment.ID, doctor(2), models.IntentOn), models.CodeNotFound)
	assert.Zero(t, testutil.Count(t, e.db, &models.CommentLike{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.Comment{}))

	assert.Zero(t, testutil.Count(t, e.db, &models.AppNotification{}))
	assert.Empty(t, e.gateway.records)
}

func TestCommentService_ParentDeletedMidReply(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "case")
	parent := testutil.CreateComment(t, e.db, post.ID, 3, "first", nil)

	repos := *e.repos
	repos.Comments = &vanishingComments{CommentRepository: e.repos.Comments, db: e.db}
	svc := NewCommentService(repository.NewUnitOfWork(e.db), &repos, e.gateway)

	_, err := svc.AddComment(ctx, doctor(2), AddCommentInput{PostID: post.ID, ParentID: &parent.ID, Body: "reply"})
	assertCode(t, err, models.CodeParentNotFound)
	assert.Zero(t, testutil.Count(t, e.db, &models.Comment{}))
	assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.Post{}))
}

type vanishingComments struct {
	repository.CommentRepository
	db *gorm.DB
}

func (c *vanishingComments) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := c.CommentRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).Delete(&models.Comment{}, id).Error; err != nil {
		return nil, err
	}
	return comment, nil
}
