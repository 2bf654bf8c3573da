package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"medfeed/internal/models"
	"medfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authors(comments []*models.Comment) []uint {
	out := make([]uint, len(comments))
	for i, c := range comments {
		out[i] = c.AuthorID
	}
	return out
}

func TestRankComments_Tiers(t *testing.T) {
	t.Parallel()
	const owner, viewer = 1, 2
	in := []*models.Comment{
		{ID: 1, AuthorID: 30},
		{ID: 2, AuthorID: viewer},
		{ID: 3, AuthorID: 10},
		{ID: 4, AuthorID: owner},
		{ID: 5, AuthorID: 20},
		{ID: 6, AuthorID: owner},
	}

	ranked := RankComments(in, owner, viewer)
	var ids []uint
	for _, c := range ranked {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []uint{4, 6, 2, 1, 3, 5}, ids)
	assert.Equal(t, uint(1), in[0].ID, "input must not be reordered")

	t.Run("viewer is owner", func(t *testing.T) {
		ranked := RankComments(in, owner, owner)
		assert.Equal(t, []uint{owner, owner, 30, viewer, 10, 20}, authors(ranked))
	})
	t.Run("anonymous viewer", func(t *testing.T) {
		ranked := RankComments(in, owner, 0)
		assert.Equal(t, []uint{owner, owner, 30, viewer, 10, 20}, authors(ranked))
	})
}

func TestPageBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		total, page, start, end int
	}{
		{25, 1, 0, 10},
		{25, 3, 20, 25},
		{25, 4, 25, 25},
		{5, 0, 0, 5},
		{0, 1, 0, 0},
	}
	for _, tt := range tests {
		start, end := pageBounds(tt.total, tt.page, CommentPageSize)
		assert.Equal(t, tt.start, start, "total=%d page=%d", tt.total, tt.page)
		assert.Equal(t, tt.end, end, "total=%d page=%d", tt.total, tt.page)
	}
}

func TestCommentService_AddCommentValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "case")
	other := testutil.CreatePost(t, e.db, 1, "other")
	foreign := testutil.CreateComment(t, e.db, other.ID, 3, "elsewhere", nil)
	missing := uint(9999)

	tests := []struct {
		name string
		in   AddCommentInput
		code string
	}{
		{"empty body", AddCommentInput{PostID: post.ID, Body: "  "}, models.CodeValidation},
		{"body too long", AddCommentInput{PostID: post.ID, Body: strings.Repeat("x", 10001)}, models.CodeValidation},
		{"missing post", AddCommentInput{PostID: 4242, Body: "hi"}, models.CodeNotFound},
		{"missing parent", AddCommentInput{PostID: post.ID, Body: "hi", ParentID: &missing}, models.CodeParentNotFound},
		{"parent on another post", AddCommentInput{PostID: post.ID, Body: "hi", ParentID: &foreign.ID}, models.CodeParentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.comments.AddComment(ctx, doctor(2), tt.in)
			assertCode(t, err, tt.code)
		})
	}
	assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.Comment{}))
}

func TestCommentService_AddCommentNotifies(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	owner := testutil.CreateDoctor(t, e.db, "Dr. Owner", true)
	alice := testutil.CreateDoctor(t, e.db, "Dr. Alice", true)
	bob := testutil.CreateDoctor(t, e.db, "Dr. Bob", true)
	testutil.CreatePushToken(t, e.db, owner.ID, "owner-phone")
	post := testutil.CreatePost(t, e.db, owner.ID, "case")

	// Owner commenting on their own post notifies nobody.
	ownComment, err := e.comments.AddComment(ctx, doctor(owner.ID), AddCommentInput{PostID: post.ID, Body: "context"})
	require.NoError(t, err)
	assert.Empty(t, e.gateway.ofType(models.NotificationPostComment))

	top, err := e.comments.AddComment(ctx, doctor(alice.ID), AddCommentInput{PostID: post.ID, Body: "interesting"})
	require.NoError(t, err)
	notes := e.gateway.ofType(models.NotificationPostComment)
	require.Len(t, notes, 1)
	assert.Equal(t, owner.ID, notes[0].RecipientID)
	assert.Equal(t, post.ID, notes[0].SubjectID)
	assert.Equal(t, "Dr. Alice commented on your post", notes[0].Content)
	assert.Equal(t, 1, e.gateway.pushCount())

	// Bob replies to Alice: owner gets post_comment, Alice gets comment_reply.
	reply, err := e.comments.AddComment(ctx, doctor(bob.ID), AddCommentInput{PostID: post.ID, Body: "agree", ParentID: &top.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	replies := e.gateway.ofType(models.NotificationCommentReply)
	require.Len(t, replies, 1)
	assert.Equal(t, alice.ID, replies[0].RecipientID)
	require.NotNil(t, replies[0].CommentID)
	assert.Equal(t, reply.ID, *replies[0].CommentID)

	// A reply to the owner's comment only produces the post_comment notice.
	_, err = e.comments.AddComment(ctx, doctor(bob.ID), AddCommentInput{PostID: post.ID, Body: "thanks", ParentID: &ownComment.ID})
	require.NoError(t, err)
	assert.Len(t, e.gateway.ofType(models.NotificationCommentReply), 1)
	assert.Len(t, e.gateway.ofType(models.NotificationPostComment), 3)
}

func TestCommentService_GatewayFailureDoesNotFailComment(t *testing.T) {
	gw := &recordingGateway{persistErr: fmt.Errorf("db down"), pushErr: fmt.Errorf("provider down")}
	e := newEngineWithGateway(t, gw, gw)
	post := testutil.CreatePost(t, e.db, 1, "case")

	c, err := e.comments.AddComment(context.Background(), doctor(2), AddCommentInput{PostID: post.ID, Body: "still saved"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
}

func TestCommentService_ListTopLevelRanksAndPaginates(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	const owner, viewer = 1, 2
	post := testutil.CreatePost(t, e.db, owner, "case")

	// Creation order: A, V, B, O, C.
	a := testutil.CreateComment(t, e.db, post.ID, 10, "A", nil)
	v := testutil.CreateComment(t, e.db, post.ID, viewer, "V", nil)
	b := testutil.CreateComment(t, e.db, post.ID, 11, "B", nil)
	o := testutil.CreateComment(t, e.db, post.ID, owner, "O", nil)
	c := testutil.CreateComment(t, e.db, post.ID, 12, "C", nil)

	page, err := e.comments.ListTopLevel(ctx, post.ID, viewer, 1)
	require.NoError(t, err)
	var ids []uint
	for _, cm := range page.Comments {
		ids = append(ids, cm.ID)
	}
	assert.Equal(t, []uint{o.ID, v.ID, a.ID, b.ID, c.ID}, ids)
	assert.Equal(t, 5, page.Total)
	assert.False(t, page.HasMore)

	for i := 0; i < CommentPageSize; i++ {
		testutil.CreateComment(t, e.db, post.ID, 13, fmt.Sprintf("filler %d", i), nil)
	}
	page, err = e.comments.ListTopLevel(ctx, post.ID, viewer, 1)
	require.NoError(t, err)
	assert.Len(t, page.Comments, CommentPageSize)
	assert.True(t, page.HasMore)

	page, err = e.comments.ListTopLevel(ctx, post.ID, viewer, 2)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 5)
	assert.False(t, page.HasMore)

	page, err = e.comments.ListTopLevel(ctx, post.ID, viewer, 9)
	require.NoError(t, err)
	assert.Empty(t, page.Comments)
}

func TestCommentService_ListTopLevelMaterializesTwoReplyLevels(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "case")

	root := testutil.CreateComment(t, e.db, post.ID, 2, "root", nil)
	reply := testutil.CreateComment(t, e.db, post.ID, 3, "reply", &root.ID)
	nested := testutil.CreateComment(t, e.db, post.ID, 4, "nested", &reply.ID)
	deep := testutil.CreateComment(t, e.db, post.ID, 5, "deep", &nested.ID)
	_ = deep

	_, err := e.repos.Engagement.LikeComment(ctx, root.ID, 9)
	require.NoError(t, err)
	_, err = e.repos.Engagement.LikeComment(ctx, nested.ID, 9)
	require.NoError(t, err)
	_, err = e.repos.Engagement.LikeComment(ctx, nested.ID, 8)
	require.NoError(t, err)

	page, err := e.comments.ListTopLevel(ctx, post.ID, 9, 1)
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)

	got := page.Comments[0]
	assert.True(t, got.IsLiked)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, 1, got.ReplyCount)
	require.Len(t, got.Replies, 1)

	gotReply := got.Replies[0]
	assert.Equal(t, reply.ID, gotReply.ID)
	assert.False(t, gotReply.IsLiked)
	require.Len(t, gotReply.Replies, 1)

	gotNested := gotReply.Replies[0]
	assert.Equal(t, nested.ID, gotNested.ID)
	assert.True(t, gotNested.IsLiked)
	assert.Equal(t, 2, gotNested.LikeCount)
	assert.Equal(t, 1, gotNested.ReplyCount)
	assert.Empty(t, gotNested.Replies, "levels below the nested reply are only counted")
}

func TestCommentService_DeleteComment(t *testing.T) {
	e := newPersistingEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "case")
	keep := testutil.CreateComment(t, e.db, post.ID, 2, "keep", nil)
	root := testutil.CreateComment(t, e.db, post.ID, 2, "root", nil)
	reply, err := e.comments.AddComment(ctx, doctor(3), AddCommentInput{PostID: post.ID, Body: "reply", ParentID: &root.ID})
	require.NoError(t, err)
	nested := testutil.CreateComment(t, e.db, post.ID, 4, "nested", &reply.ID)
	require.NoError(t, e.comments.ToggleCommentLike(ctx, nested.ID, doctor(5), models.IntentOn))
	require.NoError(t, e.comments.ToggleCommentLike(ctx, keep.ID, doctor(5), models.IntentOn))

	err = e.comments.DeleteComment(ctx, root.ID, doctor(3))
	assertCode(t, err, models.CodeUnauthorized)

	err = e.comments.DeleteComment(ctx, 4242, doctor(2))
	assertCode(t, err, models.CodeNotFound)

	require.NoError(t, e.comments.DeleteComment(ctx, root.ID, doctor(2)))

	assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.Comment{}))
	assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.CommentLike{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.AppNotification{}, "comment_id IN ?", []uint{root.ID, reply.ID, nested.ID}))
}

func TestCommentService_ModeratorMayDelete(t *testing.T) {
	e := newEngine(t)
	post := testutil.CreatePost(t, e.db, 1, "case")
	c := testutil.CreateComment(t, e.db, post.ID, 2, "spam", nil)

	require.NoError(t, e.comments.DeleteComment(context.Background(), c.ID, doctor(99, models.RoleModerator)))
	assert.Zero(t, testutil.Count(t, e.db, &models.Comment{}))
}

func TestCommentService_ToggleCommentLike(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "case")
	c := testutil.CreateComment(t, e.db, post.ID, 2, "insight", nil)

	require.NoError(t, e.comments.ToggleCommentLike(ctx, c.ID, doctor(3), models.IntentOn))
	assertCode(t, e.comments.ToggleCommentLike(ctx, c.ID, doctor(3), models.IntentOn), models.CodeAlreadyLiked)
	assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.CommentLike{}))

	likes := e.gateway.ofType(models.NotificationCommentLike)
	require.Len(t, likes, 1)
	assert.Equal(t, uint(2), likes[0].RecipientID)
	assert.Equal(t, post.ID, likes[0].SubjectID)

	require.NoError(t, e.comments.ToggleCommentLike(ctx, c.ID, doctor(3), models.IntentOff))
	assertCode(t, e.comments.ToggleCommentLike(ctx, c.ID, doctor(3), models.IntentOff), models.CodeNotLiked)
	assert.Zero(t, testutil.Count(t, e.db, &models.CommentLike{}))

	// Self-likes are allowed but silent.
	require.NoError(t, e.comments.ToggleCommentLike(ctx, c.ID, doctor(2), models.IntentOn))
	assert.Len(t, e.gateway.ofType(models.NotificationCommentLike), 1)

	assertCode(t, e.comments.ToggleCommentLike(ctx, c.ID, doctor(3), "flip"), models.CodeValidation)
	assertCode(t, e.comments.ToggleCommentLike(ctx, 4242, doctor(3), models.IntentOn), models.CodeNotFound)
}
