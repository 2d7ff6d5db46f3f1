package feedapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"chitter/cmd/identity"
	authapi "chitter/cmd/internal/auth/api"
	"chitter/cmd/internal/feed"
)

const (
	maxBodyBytes   = 1 << 20
	maxTextRunes   = 500
	homeFeedLimit  = 100
	suggestedLimit = 20
)

// Handler wires the protected feed endpoints to the feed and identity stores.
type Handler struct {
	log   *slog.Logger
	posts feed.Store
	users identity.Store
}

// NewHandler constructs a feed Handler.
func NewHandler(log *slog.Logger, posts feed.Store, users identity.Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, posts: posts, users: users}
}

// Register wires feed routes onto the mux, wrapping each in protect.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if h == nil || mux == nil {
		return
	}
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}

	route("POST /api/posts", h.handleCreatePost)
	route("GET /api/posts", h.handleHomeFeed)
	route("GET /api/postsfeed/{id}", h.handlePostDetail)
	route("POST /api/posts/{id}/comments", h.handleCreateComment)
	route("POST /api/posts/{id}/likes", h.handleLike)
	route("DELETE /api/posts/{id}/likes", h.handleUnlike)
	route("PATCH /api/posts/{id}/bookmark", h.handleBookmark)
	route("GET /api/bookmarks", h.handleBookmarks)
	route("GET /api/connect", h.handleConnectSuggestions)
	route("PATCH /api/connect/{id}", h.handleFollow)
}

func caller(w http.ResponseWriter, r *http.Request) (authapi.Identity, bool) {
	id, ok := authapi.IdentityFromContext(r.Context())
	if !ok {
		// Only reachable when a route was wired without the middleware.
		writeError(w, http.StatusUnauthorized, "missing_credential", "authentication required")
	}
	return id, ok
}

func validText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxTextRunes {
		return "", false
	}
	return s, true
}

// ---- posts ----

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	text, ok := validText(req.Text)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	now := time.Now().UTC()
	postID, err := identity.NewULID(now)
	if err != nil {
		h.log.Error("feed.post.id.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	post := feed.Post{
		ID:        postID,
		UserID:    id.UserID,
		Username:  id.Username,
		Body:      text,
		CreatedAt: now,
	}
	if err := h.posts.CreatePost(r.Context(), post); err != nil {
		h.log.Error("feed.post.create.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *Handler) handleHomeFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	user, err := h.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid_credential", "account no longer exists")
			return
		}
		h.log.Error("feed.home.lookup.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	authors := append([]string{user.ID}, user.Following...)
	posts, err := h.posts.ListHomeFeed(ctx, authors, homeFeedLimit)
	if err != nil {
		h.log.Error("feed.home.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toPostResponses(posts))
}

func (h *Handler) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}

	ctx := r.Context()
	postID := r.PathValue("id")

	post, err := h.posts.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		h.log.Error("feed.detail.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	comments, err := h.posts.ListComments(ctx, postID)
	if err != nil {
		h.log.Error("feed.detail.comments.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, postDetailResponse{
		Post:     toPostResponse(post),
		Comments: toCommentResponses(comments),
	})
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	text, ok := validText(req.Text)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	now := time.Now().UTC()
	commentID, err := identity.NewULID(now)
	if err != nil {
		h.log.Error("feed.comment.id.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	comment := feed.Comment{
		ID:        commentID,
		PostID:    r.PathValue("id"),
		UserID:    id.UserID,
		Username:  id.Username,
		Body:      text,
		CreatedAt: now,
	}
	if err := h.posts.AddComment(r.Context(), comment); err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		h.log.Error("feed.comment.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponses([]feed.Comment{comment})[0])
}

// ---- interactions ----

func (h *Handler) handleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	res, err := h.posts.Like(r.Context(), r.PathValue("id"), id.UserID)
	if err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		h.log.Error("feed.like.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, likeResponse{
		Liked:     true,
		Created:   res.Changed,
		LikeCount: res.Count,
	})
}

func (h *Handler) handleUnlike(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	res, err := h.posts.Unlike(r.Context(), r.PathValue("id"), id.UserID)
	if err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		h.log.Error("feed.unlike.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, likeResponse{
		Liked:     false,
		Deleted:   res.Changed,
		LikeCount: res.Count,
	})
}

func (h *Handler) handleBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req bookmarkRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	bookmarked, err := h.posts.SetBookmark(r.Context(), id.UserID, r.PathValue("id"), req.Bookmark)
	if err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		h.log.Error("feed.bookmark.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, bookmarkResponse{Bookmarked: bookmarked})
}

func (h *Handler) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	posts, err := h.posts.ListBookmarks(r.Context(), id.UserID)
	if err != nil {
		h.log.Error("feed.bookmarks.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toPostResponses(posts))
}

// ---- connect ----

func (h *Handler) handleConnectSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	users, err := h.users.ListSuggested(r.Context(), id.UserID, suggestedLimit)
	if err != nil {
		h.log.Error("feed.connect.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toSuggestedUsers(users))
}

func (h *Handler) handleFollow(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	followeeID := r.PathValue("id")

	if err := h.users.Follow(ctx, id.UserID, followeeID); err != nil {
		switch {
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "cannot follow yourself")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", "user not found")
		default:
			h.log.Error("feed.follow.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	user, err := h.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		h.log.Error("feed.follow.readback.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	following := user.Following
	if following == nil {
		following = []string{}
	}
	writeJSON(w, http.StatusOK, followResponse{Following: following})
}
