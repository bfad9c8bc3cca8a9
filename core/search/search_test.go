package search_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/search"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	"github.com/hien-pd-dac/tutorfinder/tests"
)

func TestRank(t *testing.T) {
	c := search.Criteria{DistrictID: "d", SubjectID: "s", ClassLevelID: "l"}
	post := func(id, d, s, l string) listing.Post {
		return listing.Post{
			ID:           id,
			DistrictID:   null.NewString(d, d != ""),
			SubjectID:    null.NewString(s, s != ""),
			ClassLevelID: null.NewString(l, l != ""),
		}
	}
	// candidates come newest first
	candidates := []listing.Post{
		post("a", "d", "", ""),
		post("b", "d", "s", "l"),
		post("c", "x", "s", ""),
		post("d", "d", "s", ""),
		post("e", "d", "s", "l"),
	}

	ranked := search.Rank(candidates, c)
	var got []string
	for _, rp := range ranked {
		got = append(got, fmt.Sprintf("%s:%d", rp.ID, rp.Rank))
	}
	assert.Equal(t, []string{"b:3", "e:3", "d:2", "a:1", "c:1"}, got)

	// with a single criterion every candidate ranks 1 and keeps its order
	ranked = search.Rank(candidates[:2], search.Criteria{DistrictID: "d"})
	assert.Equal(t, "a", ranked[0].ID)
	assert.Equal(t, 1, ranked[1].Rank)
}

func TestService_Search(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tutor := testutil.CreateUser(t, env.UsrRepo, "prof", "prof@test.test", "", user.RoleTutor, true)
	kid := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	district := testutil.CreateEntry(t, env.RefRepo, refdata.KindDistrict, "Dong Da")
	subject := testutil.CreateEntry(t, env.RefRepo, refdata.KindSubject, "Literature")

	var posts []listing.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, testutil.CreatePost(t, env.ListingRepo, listing.Post{
			AuthorID:   tutor.ID,
			IsApproved: true,
			DistrictID: null.StringFrom(district.ID),
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
		}))
	}
	best := testutil.CreatePost(t, env.ListingRepo, listing.Post{
		AuthorID:   kid.ID,
		IsApproved: true,
		DistrictID: null.StringFrom(district.ID),
		SubjectID:  null.StringFrom(subject.ID),
	})
	testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: tutor.ID, DistrictID: null.StringFrom(district.ID)}) // pending
	testutil.CreatePost(t, env.ListingRepo, listing.Post{AuthorID: tutor.ID, IsApproved: true})                          // no match

	c := search.Criteria{DistrictID: district.ID, SubjectID: " " + subject.ID + " "}

	res, err := env.SearchSvc.Search(ctx, &kid, c, "")
	require.NoError(t, err)
	assert.Zero(t, res.Matches) // no class level given, so nothing matches all three
	assert.Equal(t, 6, res.Recommend)
	assert.Equal(t, 2, res.Page.NumPages)
	require.Len(t, res.Posts, 4)
	assert.Equal(t, best.ID, res.Posts[0].ID)
	assert.Equal(t, 2, res.Posts[0].Rank)
	assert.Equal(t, posts[4].ID, res.Posts[1].ID)
	assert.Len(t, res.LikeDict, 4)

	// out of range pages give the last one
	res, err = env.SearchSvc.Search(ctx, nil, c, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page.Number)
	require.Len(t, res.Posts, 2)
	assert.Equal(t, posts[0].ID, res.Posts[1].ID)

	c.Filter = "student"
	res, err = env.SearchSvc.Search(ctx, nil, c, "")
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, best.ID, res.Posts[0].ID)

	// no criteria lists every approved post
	res, err = env.SearchSvc.Search(ctx, nil, search.Criteria{}, "")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Page.Count)

	_, err = env.SearchSvc.Search(ctx, nil, search.Criteria{SubjectID: "lol"}, "")
	assert.Error(t, err)
}
