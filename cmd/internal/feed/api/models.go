package feedapi

import (
	"time"

	"chitter/cmd/identity"
	"chitter/cmd/internal/feed"
)

type createPostRequest struct {
	Text string `json:"text"`
}

type createCommentRequest struct {
	Text string `json:"text"`
}

type bookmarkRequest struct {
	Bookmark *bool `json:"bookmark"`
}

type postResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type postDetailResponse struct {
	Post     postResponse      `json:"post"`
	Comments []commentResponse `json:"comments"`
}

// likeResponse always carries the idempotency flags explicitly: a retried
// like must report created=false, so the fields are never omitted.
type likeResponse struct {
	Liked     bool `json:"liked"`
	Created   bool `json:"created"`
	Deleted   bool `json:"deleted"`
	LikeCount int  `json:"likeCount"`
}

type bookmarkResponse struct {
	Bookmarked bool `json:"bookmarked"`
}

type suggestedUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type followResponse struct {
	Following []string `json:"following"`
}

func toPostResponse(p feed.Post) postResponse {
	return postResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		Username:     p.Username,
		Text:         p.Body,
		CreatedAt:    p.CreatedAt,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
	}
}

func toPostResponses(posts []feed.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}

func toCommentResponses(comments []feed.Comment) []commentResponse {
	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentResponse{
			ID:        c.ID,
			PostID:    c.PostID,
			UserID:    c.UserID,
			Username:  c.Username,
			Text:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

func toSuggestedUsers(users []identity.User) []suggestedUserResponse {
	out := make([]suggestedUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, suggestedUserResponse{ID: u.ID, Username: u.Username})
	}
	return out
}
