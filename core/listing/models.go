package listing

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

const (
	DefaultSalaryHour = 100000
	DefaultTimesWeek  = 1
)

// Post is a tutoring listing. AuthorUsername, AuthorRole and NumLikes are read-only, filled in when querying.
type Post struct {
	ID             string      `json:"id" db:"id"`
	Title          string      `json:"title" db:"title"`
	AuthorID       string      `json:"author_id" db:"author_id"`
	SubjectID      null.String `json:"subject_id" db:"subject_id"`
	ClassLevelID   null.String `json:"class_level_id" db:"class_level_id"`
	DistrictID     null.String `json:"district_id" db:"district_id"`
	SalaryHour     int         `json:"salary_hour" db:"salary_hour"`
	TimesWeek      int         `json:"times_week" db:"times_week"`
	Text           string      `json:"text" db:"text"`
	IsApproved     bool        `json:"is_approved" db:"is_approved"`
	IsClosed       bool        `json:"is_closed" db:"is_closed"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	AuthorUsername string      `json:"author_username" db:"author_username"`
	AuthorRole     user.Role   `json:"author_role" db:"author_role"`
	NumLikes       int         `json:"num_likes" db:"num_likes"`
}

// Comment is read-only on AuthorUsername, filled in when querying.
type Comment struct {
	ID             string    `json:"id" db:"id"`
	PostID         string    `json:"post_id" db:"post_id"`
	AuthorID       string    `json:"author_id" db:"author_id"`
	Text           string    `json:"text" db:"text"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	AuthorUsername string    `json:"author_username" db:"author_username"`
}

// NewPost contains information needed to create a new Post.
type NewPost struct {
	Title        string `json:"title" validate:"required,max=100"`
	SubjectID    string `json:"subject_id" validate:"omitempty,uuid"`
	ClassLevelID string `json:"class_level_id" validate:"omitempty,uuid"`
	DistrictID   string `json:"district_id" validate:"omitempty,uuid"`
	SalaryHour   *int   `json:"salary_hour" validate:"omitempty,min=0"`
	TimesWeek    *int   `json:"times_week" validate:"omitempty,min=1,max=5"`
	Text         string `json:"text"`
}

func (np *NewPost) clean() {
	np.Title = core.CleanString(np.Title)
	np.SubjectID = core.CleanString(np.SubjectID)
	np.ClassLevelID = core.CleanString(np.ClassLevelID)
	np.DistrictID = core.CleanString(np.DistrictID)
	np.Text = core.CleanString(np.Text)
}

// UpdatePost defines what information may be provided to modify an existing Post.
// nil fields are left untouched; empty reference ids clear them.
type UpdatePost struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=100"`
	SubjectID    *string `json:"subject_id" validate:"omitempty,uuid"`
	ClassLevelID *string `json:"class_level_id" validate:"omitempty,uuid"`
	DistrictID   *string `json:"district_id" validate:"omitempty,uuid"`
	SalaryHour   *int    `json:"salary_hour" validate:"omitempty,min=0"`
	TimesWeek    *int    `json:"times_week" validate:"omitempty,min=1,max=5"`
	Text         *string `json:"text"`
	IsClosed     *bool   `json:"is_closed"`
}

func (up *UpdatePost) clean() {
	for _, s := range []*string{up.Title, up.SubjectID, up.ClassLevelID, up.DistrictID, up.Text} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
}

func (up UpdatePost) apply(p *Post) {
	setNull := func(dst *null.String, src *string) {
		if src != nil {
			*dst = null.NewString(*src, *src != "")
		}
	}
	if up.Title != nil && *up.Title != "" {
		p.Title = *up.Title
	}
	setNull(&p.SubjectID, up.SubjectID)
	setNull(&p.ClassLevelID, up.ClassLevelID)
	setNull(&p.DistrictID, up.DistrictID)
	if up.SalaryHour != nil {
		p.SalaryHour = *up.SalaryHour
	}
	if up.TimesWeek != nil {
		p.TimesWeek = *up.TimesWeek
	}
	if up.Text != nil {
		p.Text = *up.Text
	}
	if up.IsClosed != nil {
		p.IsClosed = *up.IsClosed
	}
}

// CommentText is the payload of a new or edited comment.
type CommentText struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// QueryFilter selects posts; empty fields are not filtered on.
// The reference ids match as a disjunction: a post matches if any of the non-empty ones equals its own.
type QueryFilter struct {
	Approved     *bool
	AuthorID     string
	AuthorRole   user.Role
	DistrictID   string
	SubjectID    string
	ClassLevelID string
}

func (qf QueryFilter) HasRefs() bool {
	return qf.DistrictID != "" || qf.SubjectID != "" || qf.ClassLevelID != ""
}

// FeedPage is one page of posts along with what the viewer liked.
type FeedPage struct {
	Posts    []Post          `json:"posts"`
	Page     core.Page       `json:"page"`
	LikeDict map[string]bool `json:"like_dict"`
}

// PostDetail is a post with its comments, newest first.
type PostDetail struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
	IsLiked  bool      `json:"is_liked"`
	NumLiked int       `json:"num_liked"`
}

// LikeResult is returned after toggling a like.
type LikeResult struct {
	IsLiked  bool `json:"is_liked"`
	NumLiked int  `json:"num_liked"`
}
