package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// A feedPost is a post decorated with author identity and live
// engagement data for the viewer.
type feedPost struct {
	Post
	Author       User                 `json:"author"`
	Reactions    map[ReactionType]int `json:"reactions"`
	UserReaction ReactionType         `json:"user_reaction,omitempty"`
	CommentCount int                  `json:"comments_count"`
}

// createPost persists a feed post and writes it through to the
// recent-post cache. Cache failures are logged and swallowed.
func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Content        string `json:"content" validate:"required"`
		PostType       string `json:"post_type" validate:"omitempty,oneof=text image video article"`
		MediaURL       string `json:"media_url"`
		MediaThumbnail string `json:"media_thumbnail"`
		ArticleTitle   string `json:"article_title"`
		ArticleSummary string `json:"article_summary"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	postType := PostType(body.PostType)
	if postType == "" {
		postType = PostText
	}

	now := time.Now()
	post, err := a.Feed.InsertPost(r.Context(), Post{
		UserID:         user.ID,
		Content:        body.Content,
		Type:           postType,
		MediaURL:       body.MediaURL,
		MediaThumbnail: body.MediaThumbnail,
		ArticleTitle:   body.ArticleTitle,
		ArticleSummary: body.ArticleSummary,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not create post")
		return
	}

	if a.Cache != nil {
		if err := a.Cache.InsertPost(r.Context(), post); err != nil {
			a.Logger.Error("Could not cache post", "error", err.Error())
		}
	}

	a.respond(w, http.StatusCreated, post)
}

// getFeed returns non-deleted posts in reverse chronological order
// with offset pagination. The cache supplies the newest posts, so
// pages are cut from the cached list first and then from the database
// with the cached ids excluded: every page holds at most limit posts
// and a post is served on exactly one page. Engagement decorations are
// always computed live. Pagination is stable only while no posts
// disappear concurrently.
func (a *API) getFeed(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Posts []feedPost `json:"posts"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", feedPageSize)
	offset := queryInt(r, "offset", 0)

	var posts []Post
	if a.Cache != nil {
		cached, err := a.Cache.ListPosts(r.Context())
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not load feed")
			return
		}
		a.Logger.Info("Got posts from cache", "count", len(cached))

		cachedIDs := make([]int64, len(cached))
		for i, p := range cached {
			cachedIDs[i] = p.ID
		}

		if offset < len(cached) {
			end := offset + limit
			if end > len(cached) {
				end = len(cached)
			}
			posts = cached[offset:end:end]
		}
		if remaining := limit - len(posts); remaining > 0 {
			dbOffset := offset - len(cached)
			if dbOffset < 0 {
				dbOffset = 0
			}
			dbPosts, err := a.Feed.ListPosts(r.Context(), remaining, dbOffset, cachedIDs...)
			if err != nil {
				a.respondError(w, http.StatusInternalServerError, err, "Could not load feed")
				return
			}
			a.Logger.Info("Got remaining posts from DB", "count", len(dbPosts))
			posts = append(posts, dbPosts...)
		}
	} else {
		var err error
		posts, err = a.Feed.ListPosts(r.Context(), limit, offset)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not load feed")
			return
		}
	}

	decorated, err := a.decoratePosts(r.Context(), user.ID, posts)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load feed")
		return
	}

	a.respond(w, http.StatusOK, response{Posts: decorated})
}

// reactToPost applies the toggle rule: the same type again removes the
// reaction, a different type replaces it, an empty type removes it.
func (a *API) reactToPost(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			ReactionType string `json:"reaction_type" validate:"omitempty,oneof=like love celebrate support funny insightful"`
		}
		response struct {
			OK bool `json:"ok"`
		}
	)

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	postID, err := pathID(r, "postID")
	if err != nil {
		a.fail(w, fmt.Errorf("post: %w", ErrNotFound), "")
		return
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	if err := a.Feed.SetReaction(r.Context(), postID, user.ID, ReactionType(body.ReactionType)); err != nil {
		a.fail(w, err, "Could not update reaction")
		return
	}

	a.respond(w, http.StatusOK, response{OK: true})
}

// createComment adds a comment or a one-level reply. Replies must
// reference a live top-level comment on the same post.
func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Content         string `json:"content" validate:"required"`
		ParentCommentID *int64 `json:"parent_comment_id"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	postID, err := pathID(r, "postID")
	if err != nil {
		a.fail(w, fmt.Errorf("post: %w", ErrNotFound), "")
		return
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	comment, err := a.Feed.InsertComment(r.Context(), Comment{
		PostID:    postID,
		UserID:    user.ID,
		Content:   body.Content,
		ParentID:  body.ParentCommentID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		a.fail(w, err, "Could not create comment")
		return
	}

	a.respond(w, http.StatusCreated, comment)
}

// getComments returns top-level comments in creation order, each with
// its ordered direct replies. A deleted top-level comment hides its
// replies; a deleted reply simply disappears.
func (a *API) getComments(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Comments []CommentThread `json:"comments"`
	}

	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	postID, err := pathID(r, "postID")
	if err != nil {
		a.fail(w, fmt.Errorf("post: %w", ErrNotFound), "")
		return
	}

	comments, err := a.Feed.ListComments(r.Context(), postID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load comments")
		return
	}

	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	authors, err := a.Users.GetUsers(r.Context(), ids)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load comments")
		return
	}

	// Comments arrive in creation order with deleted rows already
	// excluded, so a reply whose parent is missing from the index was
	// replying to a deleted comment and stays hidden.
	threads := make([]CommentThread, 0, len(comments))
	index := make(map[int64]int, len(comments))
	for _, c := range comments {
		if c.ParentID == nil {
			index[c.ID] = len(threads)
			threads = append(threads, CommentThread{
				Comment: c,
				Author:  authors[c.UserID],
				Replies: []CommentReply{},
			})
			continue
		}
		i, ok := index[*c.ParentID]
		if !ok {
			continue
		}
		threads[i].Replies = append(threads[i].Replies, CommentReply{
			Comment: c,
			Author:  authors[c.UserID],
		})
	}

	a.respond(w, http.StatusOK, response{Comments: threads})
}

// decoratePosts annotates posts with author identity and engagement.
func (a *API) decoratePosts(ctx context.Context, viewerID int64, posts []Post) ([]feedPost, error) {
	postIDs := make([]int64, len(posts))
	userIDs := make([]int64, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		userIDs[i] = p.UserID
	}

	engagement, err := a.Feed.PostEngagement(ctx, viewerID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("post engagement: %w", err)
	}
	authors, err := a.Users.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}

	out := make([]feedPost, len(posts))
	for i, p := range posts {
		fp := feedPost{
			Post:      p,
			Author:    authors[p.UserID],
			Reactions: map[ReactionType]int{},
		}
		if e, ok := engagement[p.ID]; ok {
			if e.Reactions != nil {
				fp.Reactions = e.Reactions
			}
			fp.UserReaction = e.ViewerReaction
			fp.CommentCount = e.CommentCount
		}
		out[i] = fp
	}
	return out, nil
}
