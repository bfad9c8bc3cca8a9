package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/hien-pd-dac/tutorfinder/apps/api/echo"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	"github.com/hien-pd-dac/tutorfinder/tests"
)

func Test_notifyApi(t *testing.T) {
	app, env := setup(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	p := testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: author.ID, IsApproved: true, Title: "Physics"})

	_, err := env.ListingSvc.ToggleLike(ctx, kid, p.ID)
	require.NoError(t, err)
	_, err = env.ListingSvc.AddComment(ctx, kid, p.ID, listing.CommentText{Text: "hi"})
	require.NoError(t, err)
	_, err = env.RatingSvc.Rate(ctx, kid, author, 4)
	require.NoError(t, err)

	token := getToken(t, env, author)

	runHTTPTests(t, app, []httpTest{
		{name: "feed, auth required", path: "/notifications", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unread, auth required", path: "/notifications/unread", wantCode: http.StatusUnauthorized},
		{name: "unread", path: "/notifications/unread", token: token, wantData: marchallObj(t, echoapi.UnreadResponse{Unread: 3})},
		{name: "nothing for kid", path: "/notifications/unread", token: getToken(t, env, kid), wantData: marchallObj(t, echoapi.UnreadResponse{})},
	})

	req, rec := newAuthRequest(http.MethodGet, "/notifications", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var feed notify.Feed
	unmarshallObj(t, rec.Body.Bytes(), &feed)
	assert.Equal(t, 3, feed.Unread)
	texts := make([]string, 0, len(feed.Items))
	for _, it := range feed.Items {
		texts = append(texts, it.Text)
		assert.Equal(t, kid.ID, it.FromUserID)
	}
	assert.ElementsMatch(t, []string{
		"kid likes your post: Physics.",
		"kid also commented to post: Physics.",
		"kid rate you 4 stars.",
	}, texts)

	runHTTPTests(t, app, []httpTest{
		{name: "seen", method: http.MethodPost, path: "/notifications/seen", token: token, wantData: marchallObj(t, echoapi.UnreadResponse{})},
		{name: "unread after seen", path: "/notifications/unread", token: token, wantData: marchallObj(t, echoapi.UnreadResponse{})},
	})

	// re-rating updates the existing notify without flagging it unread again
	_, err = env.RatingSvc.Rate(ctx, kid, author, 2)
	require.NoError(t, err)

	feed, err = env.NotifySvc.Feed(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 3)
	assert.Zero(t, feed.Unread)
	assert.Contains(t, func() []string {
		var res []string
		for _, it := range feed.Items {
			res = append(res, it.Text)
		}
		return res
	}(), "kid rate you 2 stars.")
}
