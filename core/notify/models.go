package notify

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

type Type string

const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
	TypeRating  Type = "rating"
)

// Notify records one event a user should be told about.
// FromUsername and PostTitle are read-only, filled in when querying.
type Notify struct {
	ID           string      `json:"id" db:"id"`
	FromUserID   string      `json:"from_user_id" db:"from_user_id"`
	ToUserID     string      `json:"to_user_id" db:"to_user_id"`
	Type         Type        `json:"type" db:"type"`
	PostID       null.String `json:"post_id" db:"post_id"`
	CommentID    null.String `json:"comment_id" db:"comment_id"`
	Rating       null.Int    `json:"rating" db:"rating"`
	Seen         bool        `json:"seen" db:"seen"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	FromUsername string      `json:"from_username" db:"from_username"`
	PostTitle    null.String `json:"post_title" db:"post_title"`
}

// Text renders the sentence shown to the recipient.
func (n Notify) Text() string {
	switch n.Type {
	case TypeLike:
		return fmt.Sprintf("%s likes your post: %s.", n.FromUsername, n.PostTitle.String)
	case TypeComment:
		return fmt.Sprintf("%s also commented to post: %s.", n.FromUsername, n.PostTitle.String)
	case TypeRating:
		return fmt.Sprintf("%s rate you %d stars.", n.FromUsername, n.Rating.Int)
	default:
		return ""
	}
}

// DeleteFilter selects the notifies to remove; empty fields are not filtered on.
type DeleteFilter struct {
	FromUserID string
	ToUserID   string
	Type       Type
	PostID     string
	CommentID  string
}

// Item is a Notify along with its rendered text.
type Item struct {
	Notify
	Text string `json:"text"`
}

// Feed is the notification list of one user.
type Feed struct {
	Items  []Item `json:"notifies"`
	Unread int    `json:"unread"`
}
