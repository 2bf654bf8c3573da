package service

import (
	"context"
	"strings"
	"testing"

	"medfeed/internal/models"
	"medfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPostService_CreateValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	private := testutil.CreateGroup(t, e.db, models.GroupPrivacyPrivate, 7)
	missingGroup := uint(4242)

	tests := []struct {
		name string
		in   CreatePostInput
		code string
	}{
		{"empty post", CreatePostInput{Content: "   "}, models.CodeValidation},
		{"content too long", CreatePostInput{Content: strings.Repeat("x", 50001)}, models.CodeValidation},
		{"unknown visibility", CreatePostInput{Content: "hi", Visibility: "secret"}, models.CodeValidation},
		{"unknown media kind", CreatePostInput{Content: "hi", MediaKind: "audio", MediaRefs: []string{"a"}}, models.CodeValidation},
		{"two videos", CreatePostInput{MediaKind: models.MediaKindVideo, MediaRefs: []string{"a", "b"}}, models.CodeValidation},
		{"image without refs", CreatePostInput{Content: "hi", MediaKind: models.MediaKindImage}, models.CodeValidation},
		{"refs without kind", CreatePostInput{Content: "hi", MediaRefs: []string{"a"}}, models.CodeValidation},
		{"poll with one option", CreatePostInput{Content: "hi", Poll: &PollSpec{Question: "q", Options: []string{"a"}}}, models.CodeInvalidPollSpec},
		{"missing group", CreatePostInput{Content: "hi", GroupID: &missingGroup}, models.CodeNotFound},
		{"private group outsider", CreatePostInput{Content: "hi", GroupID: &private.ID}, models.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.posts.Create(ctx, doctor(1), tt.in)
			assertCode(t, err, tt.code)
		})
	}
	assert.Zero(t, testutil.Count(t, e.db, &models.Post{}))
	assert.Empty(t, e.gateway.records)
}

func TestPostService_CreateAttachmentOnlyPosts(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	img, err := e.posts.Create(ctx, doctor(1), CreatePostInput{
		MediaKind: models.MediaKindImage,
		MediaRefs: []string{"s3://scans/1.png", "s3://scans/2.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://scans/1.png", "s3://scans/2.png"}, []string(img.MediaRefs))

	poll, err := e.posts.Create(ctx, doctor(1), CreatePostInput{
		Poll: &PollSpec{Question: "Dialysis now?", Options: []string{"Yes", "No"}},
	})
	require.NoError(t, err)
	require.NotNil(t, poll.Poll)
	assert.Len(t, poll.Poll.Options, 2)
}

func TestPostService_CreateAnnouncesToVerifiedDoctors(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	author := testutil.CreateDoctor(t, e.db, "Dr. Author", true)
	b := testutil.CreateDoctor(t, e.db, "Dr. B", true)
	c := testutil.CreateDoctor(t, e.db, "Dr. C", true)
	unverified := testutil.CreateDoctor(t, e.db, "Dr. Pending", false)
	testutil.CreatePushToken(t, e.db, author.ID, "author-phone")
	testutil.CreatePushToken(t, e.db, b.ID, "b-phone")
	testutil.CreatePushToken(t, e.db, c.ID, "c-phone")
	testutil.CreatePushToken(t, e.db, c.ID, "c-tablet")
	testutil.CreatePushToken(t, e.db, unverified.ID, "pending-phone")

	post, err := e.posts.Create(ctx, doctor(author.ID), CreatePostInput{Content: "Great case #nephrology #AKI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nephrology", "AKI"}, post.Hashtags)
	assert.Equal(t, models.VisibilityPublic, post.Visibility)
	assert.Equal(t, models.MediaKindNone, post.MediaKind)

	notes := e.gateway.ofType(models.NotificationNewPost)
	require.Len(t, notes, 2)
	var recipients []uint
	for _, n := range notes {
		recipients = append(recipients, n.RecipientID)
		assert.Equal(t, post.ID, n.SubjectID)
		assert.Equal(t, author.ID, n.ActorID)
		assert.Equal(t, "Dr. Author shared a new post", n.Content)
	}
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, recipients)

	require.Equal(t, 1, e.gateway.pushCount(), "one push carries the union of tokens")
	assert.ElementsMatch(t, []string{"b-phone", "c-phone", "c-tablet"}, e.gateway.pushes[0].Tokens)
	assert.Equal(t, "New post", e.gateway.pushes[0].Title)
}

func TestPostService_OwnerOnlyPostIsNotAnnounced(t *testing.T) {
	e := newEngine(t)
	testutil.CreateDoctor(t, e.db, "Dr. Author", true)
	testutil.CreateDoctor(t, e.db, "Dr. Other", true)

	_, err := e.posts.Create(context.Background(), doctor(1), CreatePostInput{
		Content:    "note to self",
		Visibility: models.VisibilityOwnerOnly,
	})
	require.NoError(t, err)
	assert.Empty(t, e.gateway.records)
}

func TestPostService_CreateInGroup(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	private := testutil.CreateGroup(t, e.db, models.GroupPrivacyPrivate, 1)
	open := testutil.CreateGroup(t, e.db, models.GroupPrivacyPublic)

	p, err := e.posts.Create(ctx, doctor(1), CreatePostInput{Content: "members only", GroupID: &private.ID})
	require.NoError(t, err)
	require.NotNil(t, p.GroupID)
	assert.Equal(t, private.ID, *p.GroupID)

	_, err = e.posts.Create(ctx, doctor(2), CreatePostInput{Content: "anyone", GroupID: &open.ID})
	require.NoError(t, err)
}

func TestPostService_UpdateAuthorization(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "original")

	_, err := e.posts.Update(ctx, doctor(2), post.ID, UpdatePostInput{Content: strPtr("hijacked")})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = e.posts.Update(ctx, doctor(2), 4242, UpdatePostInput{Content: strPtr("x")})
	assertCode(t, err, models.CodeNotFound)

	updated, err := e.posts.Update(ctx, doctor(3, models.RoleAdmin), post.ID, UpdatePostInput{Content: strPtr("moderated")})
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Content)
}

func TestPostService_UpdateRecomputesHashtags(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post, err := e.posts.Create(ctx, doctor(1), CreatePostInput{Content: "#sepsis #icu"})
	require.NoError(t, err)
	_, err = e.posts.Create(ctx, doctor(2), CreatePostInput{Content: "also #icu"})
	require.NoError(t, err)

	updated, err := e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{Content: strPtr("#icu #ventilation")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"icu", "ventilation"}, updated.Hashtags)

	_, ok := hashtagCount(t, e.db, "sepsis")
	assert.False(t, ok, "unused tag is pruned")
	n, ok := hashtagCount(t, e.db, "icu")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
	n, ok = hashtagCount(t, e.db, "ventilation")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)

	// Visibility-only edits leave the ledger alone.
	vis := models.VisibilityFriends
	_, err = e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{Visibility: &vis})
	require.NoError(t, err)
	n, _ = hashtagCount(t, e.db, "icu")
	assert.Equal(t, int64(2), n)
}

func TestPostService_UpdateMedia(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post, err := e.posts.Create(ctx, doctor(1), CreatePostInput{
		Content:   "x-ray",
		MediaKind: models.MediaKindImage,
		MediaRefs: []string{"s3://xray.png"},
	})
	require.NoError(t, err)

	none := models.MediaKindNone
	updated, err := e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{MediaKind: &none})
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindNone, updated.MediaKind)
	assert.Empty(t, updated.MediaRefs)

	video := models.MediaKindVideo
	_, err = e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{MediaKind: &video})
	assertCode(t, err, models.CodeValidation)

	// References without an image or video kind are rejected, not dropped.
	_, err = e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{MediaRefs: []string{"s3://ct.png"}})
	assertCode(t, err, models.CodeValidation)
	_, err = e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{MediaKind: &none, MediaRefs: []string{"s3://ct.png"}})
	assertCode(t, err, models.CodeValidation)
	stored, err := e.repos.Posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.MediaRefs)

	_, err = e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{Content: strPtr(" ")})
	assertCode(t, err, models.CodeValidation)

	stored, err = e.repos.Posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "x-ray", stored.Content, "failed update rolls back")
}

func TestPostService_UpdateKeepsPollWhenContentCleared(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post, _ := createPollPost(t, e, 1, PollSpec{Question: "q", Options: []string{"a", "b"}})

	updated, err := e.posts.Update(ctx, doctor(1), post.ID, UpdatePostInput{Content: strPtr("")})
	require.NoError(t, err, "a poll counts as an attachment")
	assert.NotNil(t, updated.Poll)
}

func TestPostService_DeleteAuthorization(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, e.db, 1, "keep me")

	assertCode(t, e.posts.Delete(ctx, doctor(2), post.ID), models.CodeUnauthorized)
	assertCode(t, e.posts.Delete(ctx, doctor(1), 4242), models.CodeNotFound)
	assert.Equal(t, int64(1), testutil.Count(t, e.db, &models.Post{}))

	require.NoError(t, e.posts.Delete(ctx, doctor(9, models.RoleModerator), post.ID))
	assert.Zero(t, testutil.Count(t, e.db, &models.Post{}))
}

func TestPostService_LifecycleEndToEnd(t *testing.T) {
	e := newPersistingEngine(t)
	ctx := context.Background()
	author := testutil.CreateDoctor(t, e.db, "Dr. Author", true)
	reader := testutil.CreateDoctor(t, e.db, "Dr. Reader", true)
	other := testutil.CreateDoctor(t, e.db, "Dr. Other", true)

	post, err := e.posts.Create(ctx, doctor(author.ID), CreatePostInput{
		Content: "Great case #nephrology #AKI",
		Poll:    &PollSpec{Question: "Start dialysis?", Options: []string{"Now", "Wait"}},
	})
	require.NoError(t, err)
	survivor, err := e.posts.Create(ctx, doctor(other.ID), CreatePostInput{Content: "Unrelated #nephrology"})
	require.NoError(t, err)

	require.NoError(t, e.engagement.TogglePostLike(ctx, post.ID, doctor(reader.ID), models.IntentOn))
	require.NoError(t, e.engagement.TogglePostSave(ctx, post.ID, doctor(reader.ID), models.IntentOn))
	top, err := e.comments.AddComment(ctx, doctor(reader.ID), AddCommentInput{PostID: post.ID, Body: "Check potassium"})
	require.NoError(t, err)
	reply, err := e.comments.AddComment(ctx, doctor(other.ID), AddCommentInput{PostID: post.ID, Body: "Agreed", ParentID: &top.ID})
	require.NoError(t, err)
	require.NoError(t, e.comments.ToggleCommentLike(ctx, reply.ID, doctor(author.ID), models.IntentOn))
	_, err = e.polls.Vote(ctx, optionByText(t, post.Poll, "Now").ID, reader.ID)
	require.NoError(t, err)

	assert.Positive(t, testutil.Count(t, e.db, &models.AppNotification{}, "subject_id = ?", post.ID))
	n, ok := hashtagCount(t, e.db, "nephrology")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)

	require.NoError(t, e.posts.Delete(ctx, doctor(author.ID), post.ID))

	assert.Zero(t, testutil.Count(t, e.db, &models.Post{}, "id = ?", post.ID))
	assert.Zero(t, testutil.Count(t, e.db, &models.Comment{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.CommentLike{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.Like{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.Save{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.Poll{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.PollOption{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.PollVote{}))
	assert.Zero(t, testutil.Count(t, e.db, &models.PostHashtag{}, "post_id = ?", post.ID))
	assert.Zero(t, testutil.Count(t, e.db, &models.AppNotification{}, "subject_id = ?", post.ID))
	assert.Positive(t, testutil.Count(t, e.db, &models.AppNotification{}, "subject_id = ?", survivor.ID))

	n, ok = hashtagCount(t, e.db, "nephrology")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
	_, ok = hashtagCount(t, e.db, "AKI")
	assert.False(t, ok)

	got, err := e.feed.GetPost(ctx, survivor.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"nephrology"}, got.Hashtags)
}
