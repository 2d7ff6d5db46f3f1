package feed

import (
	"context"
	"sort"
	"sync"
)

type pair struct{ a, b string }

// MemoryStore is an in-memory Store used by tests and local development.
// All counter adjustments happen under one lock, mirroring the transaction
// boundaries of the Postgres store.
type MemoryStore struct {
	mu        sync.Mutex
	posts     map[string]*Post
	comments  map[string][]Comment
	likes     map[pair]struct{} // (postID, userID)
	bookmarks []bookmark
}

type bookmark struct {
	userID string
	postID string
	seq    int
}

// NewMemoryStore returns an empty in-memory feed store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[string]*Post),
		comments: make(map[string][]Comment),
		likes:    make(map[pair]struct{}),
	}
}

func (s *MemoryStore) CreatePost(ctx context.Context, p Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := p
	s.posts[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return *p, nil
}

func (s *MemoryStore) ListHomeFeed(ctx context.Context, authorIDs []string, limit int) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	authors := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}

	posts := []Post{}
	for _, p := range s.posts {
		if _, ok := authors[p.UserID]; ok {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *MemoryStore) AddComment(ctx context.Context, c Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[c.PostID]
	if !ok {
		return ErrPostNotFound
	}
	p.CommentCount++
	s.comments[c.PostID] = append(s.comments[c.PostID], c)
	return nil
}

func (s *MemoryStore) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Comment{}
	out = append(out, s.comments[postID]...)
	return out, nil
}

func (s *MemoryStore) Like(ctx context.Context, postID, userID string) (LikeResult, error) {
	if err := ctx.Err(); err != nil {
		return LikeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return LikeResult{}, ErrPostNotFound
	}

	key := pair{postID, userID}
	if _, exists := s.likes[key]; exists {
		return LikeResult{Changed: false, Count: p.LikeCount}, nil
	}

	s.likes[key] = struct{}{}
	p.LikeCount++
	return LikeResult{Changed: true, Count: p.LikeCount}, nil
}

func (s *MemoryStore) Unlike(ctx context.Context, postID, userID string) (LikeResult, error) {
	if err := ctx.Err(); err != nil {
		return LikeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return LikeResult{}, ErrPostNotFound
	}

	key := pair{postID, userID}
	if _, exists := s.likes[key]; !exists {
		return LikeResult{Changed: false, Count: p.LikeCount}, nil
	}

	delete(s.likes, key)
	if p.LikeCount > 0 {
		p.LikeCount--
	}
	return LikeResult{Changed: true, Count: p.LikeCount}, nil
}

func (s *MemoryStore) SetBookmark(ctx context.Context, userID, postID string, want *bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, ErrPostNotFound
	}

	idx := -1
	for i, b := range s.bookmarks {
		if b.userID == userID && b.postID == postID {
			idx = i
			break
		}
	}
	has := idx >= 0

	target := !has
	if want != nil {
		target = *want
	}

	switch {
	case target && !has:
		seq := 0
		if n := len(s.bookmarks); n > 0 {
			seq = s.bookmarks[n-1].seq + 1
		}
		s.bookmarks = append(s.bookmarks, bookmark{userID: userID, postID: postID, seq: seq})
	case !target && has:
		s.bookmarks = append(s.bookmarks[:idx], s.bookmarks[idx+1:]...)
	}

	return target, nil
}

func (s *MemoryStore) ListBookmarks(ctx context.Context, userID string) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	own := []bookmark{}
	for _, b := range s.bookmarks {
		if b.userID == userID {
			own = append(own, b)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].seq > own[j].seq })

	posts := []Post{}
	for _, b := range own {
		if p, ok := s.posts[b.postID]; ok {
			posts = append(posts, *p)
		}
	}
	return posts, nil
}
