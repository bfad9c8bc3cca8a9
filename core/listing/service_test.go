package listing_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	"github.com/hien-pd-dac/tutorfinder/tests"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	level := testutil.CreateEntry(t, env.RefRepo, refdata.KindClassLevel, "9")
	subject := testutil.CreateEntry(t, env.RefRepo, refdata.KindSubject, "Math")

	_, err := env.ListingSvc.Create(ctx, kid, listing.NewPost{Title: "x", SalaryHour: intPtr(-1)})
	assert.IsType(t, validator.ValidationErrors{}, err)

	// a class level id is not a valid subject
	_, err = env.ListingSvc.Create(ctx, kid, listing.NewPost{Title: "x", SubjectID: level.ID})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []core.FieldError{{Field: "subject_id", Error: "select a valid choice"}}, verr.Fields)

	p, err := env.ListingSvc.Create(ctx, kid, listing.NewPost{
		Title:        " Grade 9 math ",
		SubjectID:    subject.ID,
		ClassLevelID: level.ID,
		SalaryHour:   intPtr(0),
		TimesWeek:    intPtr(3),
		Text:         " twice on weekends ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Grade 9 math", p.Title)
	assert.Equal(t, "twice on weekends", p.Text)
	assert.Zero(t, p.SalaryHour)
	assert.Equal(t, 3, p.TimesWeek)
	assert.False(t, p.IsApproved)
	assert.Equal(t, "kid", p.AuthorUsername)

	// pending posts are hidden from the feed
	feed, err := env.ListingSvc.Feed(ctx, nil, user.AudienceAll, "")
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
	assert.Equal(t, 1, feed.Page.NumPages)
}

func TestService_Get(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	other := testutil.CreateUser(t, env.UsrRepo, "other", "other@test.test", "", user.RoleTutor, true)
	admin := testutil.CreateUser(t, env.UsrRepo, "admin", "admin@test.test", "", user.RoleAdmin, true)
	pending := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: author.ID})

	for name, viewer := range map[string]*user.User{"anonymous": nil, "other": &other} {
		t.Run(name, func(t *testing.T) {
			_, err := env.ListingSvc.Get(ctx, viewer, pending.ID)
			assert.Equal(t, listing.ErrPostNotFound, errors.Cause(err))
		})
	}
	for name, viewer := range map[string]*user.User{"author": &author, "admin": &admin} {
		t.Run(name, func(t *testing.T) {
			p, err := env.ListingSvc.Get(ctx, viewer, pending.ID)
			require.NoError(t, err)
			assert.Equal(t, pending.ID, p.ID)
		})
	}
}

func TestService_Edit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	district := testutil.CreateEntry(t, env.RefRepo, refdata.KindDistrict, "Ba Dinh")
	p := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: author.ID, IsApproved: true, Title: "old"})

	edited, err := env.ListingSvc.Edit(ctx, author, p.ID, listing.UpdatePost{DistrictID: strPtr(district.ID), Text: strPtr("hi")})
	require.NoError(t, err)
	assert.Equal(t, "old", edited.Title)
	assert.Equal(t, district.ID, edited.DistrictID.String)
	assert.Equal(t, "hi", edited.Text)

	edited, err = env.ListingSvc.Edit(ctx, author, p.ID, listing.UpdatePost{DistrictID: strPtr(""), TimesWeek: intPtr(5)})
	require.NoError(t, err)
	assert.False(t, edited.DistrictID.Valid)
	assert.Equal(t, 5, edited.TimesWeek)
	assert.Equal(t, "hi", edited.Text)

	_, err = env.ListingSvc.Edit(ctx, author, p.ID, listing.UpdatePost{TimesWeek: intPtr(0)})
	assert.Error(t, err)
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	p := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: author.ID, IsApproved: true})

	_, err := env.ListingSvc.ToggleLike(ctx, kid, p.ID)
	require.NoError(t, err)
	c, err := env.ListingSvc.AddComment(ctx, kid, p.ID, listing.CommentText{Text: "hello"})
	require.NoError(t, err)

	assert.True(t, core.IsPermissionDenied(env.ListingSvc.Delete(ctx, kid, p.ID)))
	require.NoError(t, env.ListingSvc.Delete(ctx, author, p.ID))

	_, err = env.ListingRepo.GetPost(ctx, p.ID)
	assert.Equal(t, listing.ErrPostNotFound, errors.Cause(err))
	_, err = env.ListingRepo.GetComment(ctx, c.ID)
	assert.Equal(t, listing.ErrCommentNotFound, errors.Cause(err))

	n, err := env.NotifySvc.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_ToggleLike(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	pending := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: author.ID})

	_, err := env.ListingSvc.ToggleLike(ctx, kid, pending.ID)
	assert.Equal(t, listing.ErrPostNotFound, errors.Cause(err))

	res, err := env.ListingSvc.ToggleLike(ctx, author, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.LikeResult{IsLiked: true, NumLiked: 1}, res)

	res, err = env.ListingSvc.ToggleLike(ctx, author, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.LikeResult{IsLiked: false, NumLiked: 0}, res)
}

func TestService_feeds(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	tutor := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	admin := testutil.CreateUser(t, env.UsrRepo, "admin", "admin@test.test", "", user.RoleAdmin, true)

	var tutorPosts []listing.Post
	for i := 0; i < 3; i++ {
		tutorPosts = append(tutorPosts, testutil.CreatePost(t, env.ListingRepo, listing.Post{
			AuthorID: tutor.ID, IsApproved: true, CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	kidPost := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: kid.ID, IsApproved: true, CreatedAt: now.Add(time.Hour)})
	testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: kid.ID, CreatedAt: now.Add(2 * time.Hour)})

	feed, err := env.ListingSvc.Feed(ctx, nil, user.AudienceStudent, "")
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, kidPost.ID, feed.Posts[0].ID)

	// profile pages show 2 posts per page
	feed, err = env.ListingSvc.ByAuthor(ctx, &kid, tutor.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, core.Page{Number: 2, NumPages: 2, Count: 3, PerPage: 2, HasPrev: true}, feed.Page)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, tutorPosts[0].ID, feed.Posts[0].ID)

	_, err = env.ListingSvc.Pending(ctx, kid, user.AudienceAll, "")
	assert.True(t, core.IsPermissionDenied(err))
	_, err = env.ListingSvc.PendingCount(ctx, tutor)
	assert.True(t, core.IsPermissionDenied(err))

	n, err := env.ListingSvc.PendingCount(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	feed, err = env.ListingSvc.Pending(ctx, admin, user.AudienceTutor, "")
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
}

func TestService_LikeDict(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	tutor := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	p1 := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: tutor.ID, IsApproved: true})
	p2 := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: tutor.ID, IsApproved: true})

	_, err := env.ListingSvc.ToggleLike(ctx, kid, p2.ID)
	require.NoError(t, err)

	likes, err := env.ListingSvc.LikeDict(ctx, nil, []listing.Post{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{p1.ID: false, p2.ID: false}, likes)

	likes, err = env.ListingSvc.LikeDict(ctx, &kid, []listing.Post{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{p1.ID: false, p2.ID: true}, likes)

	likes, err = env.ListingSvc.LikeDict(ctx, &kid, nil)
	require.NoError(t, err)
	assert.Empty(t, likes)
}
