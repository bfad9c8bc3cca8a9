package search

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

// Criteria are the search form fields. Empty ids are ignored.
type Criteria struct {
	DistrictID   string `json:"district" query:"district" validate:"omitempty,uuid"`
	SubjectID    string `json:"subject" query:"subject" validate:"omitempty,uuid"`
	ClassLevelID string `json:"class_level" query:"class_level" validate:"omitempty,uuid"`
	Filter       string `json:"filter" query:"filter"`
}

func (c *Criteria) clean() {
	c.DistrictID = core.CleanString(c.DistrictID)
	c.SubjectID = core.CleanString(c.SubjectID)
	c.ClassLevelID = core.CleanString(c.ClassLevelID)
}

// RankedPost is a search hit with the number of criteria it matches exactly.
type RankedPost struct {
	listing.Post
	Rank int `json:"rank"`
}

// Result is one page of ranked hits.
type Result struct {
	Posts     []RankedPost    `json:"posts"`
	Page      core.Page       `json:"page"`
	LikeDict  map[string]bool `json:"like_dict"`
	Matches   int             `json:"matches"`   // hits matching all three criteria
	Recommend int             `json:"recommend"` // the other hits
}

type (
	ServiceInterface interface {
		Search(ctx context.Context, viewer *user.User, c Criteria, rawPage string) (Result, error)
	}

	Service struct {
		repo       listing.Repository
		listingSvc listing.ServiceInterface
		validate   *validator.Validate
		conf       *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo listing.Repository, listingSvc listing.ServiceInterface, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{repo: repo, listingSvc: listingSvc, validate: validate, conf: conf}
}

// rank counts the given criteria the post matches exactly.
func rank(p listing.Post, c Criteria) int {
	var r int
	if c.DistrictID != "" && p.DistrictID.Valid && p.DistrictID.String == c.DistrictID {
		r++
	}
	if c.SubjectID != "" && p.SubjectID.Valid && p.SubjectID.String == c.SubjectID {
		r++
	}
	if c.ClassLevelID != "" && p.ClassLevelID.Valid && p.ClassLevelID.String == c.ClassLevelID {
		r++
	}
	return r
}

// Rank orders candidates (newest first) by rank, best first, keeping the newest first among equal ranks.
func Rank(candidates []listing.Post, c Criteria) []RankedPost {
	ranked := make([]RankedPost, 0, len(candidates))
	for _, p := range candidates {
		ranked = append(ranked, RankedPost{Post: p, Rank: rank(p, c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank > ranked[j].Rank })
	return ranked
}

// Search returns the approved posts matching any of the given criteria, best matches first.
// With no criteria given every approved post is returned.
func (svc *Service) Search(ctx context.Context, viewer *user.User, c Criteria, rawPage string) (Result, error) {
	c.clean()
	if err := svc.validate.Struct(c); err != nil {
		return Result{}, err
	}

	approved := true
	filter := listing.QueryFilter{
		Approved:     &approved,
		AuthorRole:   user.ParseAudience(c.Filter).Role(),
		DistrictID:   c.DistrictID,
		SubjectID:    c.SubjectID,
		ClassLevelID: c.ClassLevelID,
	}
	candidates, err := svc.repo.QueryPosts(ctx, filter, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, "querying candidates")
	}

	ranked := Rank(candidates, c)
	res := Result{}
	for _, rp := range ranked {
		if rp.Rank == 3 {
			res.Matches++
		}
	}
	res.Recommend = len(ranked) - res.Matches

	res.Page = core.NewPage(rawPage, len(ranked), svc.conf.Pagination.Posts)
	lo, hi := res.Page.Bounds(len(ranked))
	res.Posts = ranked[lo:hi]

	posts := make([]listing.Post, 0, len(res.Posts))
	for _, rp := range res.Posts {
		posts = append(posts, rp.Post)
	}
	if res.LikeDict, err = svc.listingSvc.LikeDict(ctx, viewer, posts); err != nil {
		return Result{}, err
	}
	return res, nil
}
