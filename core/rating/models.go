package rating

import (
	"fmt"
	"time"

	"github.com/hien-pd-dac/tutorfinder/core/user"
)

const (
	MinScore = 0
	MaxScore = 5

	// dampingCount is the number of ratings below which the mean is scaled down.
	dampingCount = 3
)

type Rating struct {
	ID         string    `json:"id" db:"id"`
	FromUserID string    `json:"from_user_id" db:"from_user_id"`
	ToUserID   string    `json:"to_user_id" db:"to_user_id"`
	Score      int       `json:"rating" db:"rating"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Stats aggregates the ratings received by one user.
type Stats struct {
	UserID string  `db:"to_user_id"`
	Count  int     `db:"count"`
	Mean   float64 `db:"mean"`
}

// Average is the displayed rating of a user: the plain mean once they have
// at least 3 ratings, otherwise the mean scaled by count/3.
func (s Stats) Average() float64 {
	switch {
	case s.Count <= 0:
		return 0
	case s.Count < dampingCount:
		return float64(s.Count) * s.Mean / dampingCount
	default:
		return s.Mean
	}
}

// FormatAverage renders an average rating with 2 decimals.
func FormatAverage(avg float64) string {
	return fmt.Sprintf("%.2f", avg)
}

// VoteResult is returned to the rater after a vote.
type VoteResult struct {
	Raters    int    `json:"raters"`
	RatingAvg string `json:"rating_avg"`
	YourRated int    `json:"your_rated"`
}

// Summary describes the ratings of a user as seen by a viewer.
type Summary struct {
	Raters     int    `json:"raters"`
	RatingAvg  string `json:"rating_avg"`
	YourRating *int   `json:"your_rating"`
}

// RatedTutor is an entry of the top rated tutors list.
type RatedTutor struct {
	Tutor     user.User `json:"tutor"`
	Raters    int       `json:"raters"`
	RatingAvg string    `json:"rating_avg"`
	average   float64
}
