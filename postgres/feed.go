package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/globridge/social-engine/api"
	"github.com/uptrace/bun"
)

// InsertPost inserts a feed post and returns it with its generated
// fields populated.
func (pg *Postgres) InsertPost(ctx context.Context, p api.Post) (api.Post, error) {
	row := post{
		UserID:         p.UserID,
		Content:        p.Content,
		PostType:       string(p.Type),
		MediaURL:       p.MediaURL,
		MediaThumbnail: p.MediaThumbnail,
		ArticleTitle:   p.ArticleTitle,
		ArticleSummary: p.ArticleSummary,
		CreatedAt:      p.CreatedAt,
	}
	if _, err := pg.bun.NewInsert().Model(&row).Exec(ctx); err != nil {
		return api.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return row.APIPost(), nil
}

// ListPosts returns non-deleted posts, newest first, skipping any ids
// already served from elsewhere.
func (pg *Postgres) ListPosts(ctx context.Context, limit, offset int, excludePostIDs ...int64) ([]api.Post, error) {
	var rows []post
	q := pg.bun.NewSelect().
		Model(&rows).
		Where("NOT is_deleted").
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset)
	if len(excludePostIDs) > 0 {
		q = q.Where("id NOT IN (?)", bun.In(excludePostIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	out := make([]api.Post, len(rows))
	for i, r := range rows {
		out[i] = r.APIPost()
	}
	return out, nil
}

// ListUserPosts returns one author's non-deleted posts, newest first.
func (pg *Postgres) ListUserPosts(ctx context.Context, userID int64, limit, offset int) ([]api.Post, error) {
	var rows []post
	err := pg.bun.NewSelect().
		Model(&rows).
		Where("user_id = ? AND NOT is_deleted", userID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user posts: %w", err)
	}
	out := make([]api.Post, len(rows))
	for i, r := range rows {
		out[i] = r.APIPost()
	}
	return out, nil
}

// PostEngagement computes per-reaction counts, the viewer's own
// reaction, and the comment count for each post id. Posts with no
// activity get a zero-valued entry.
func (pg *Postgres) PostEngagement(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]api.PostEngagement, error) {
	out := make(map[int64]api.PostEngagement, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	for _, id := range postIDs {
		out[id] = api.PostEngagement{Reactions: map[api.ReactionType]int{}}
	}

	type reactionRow struct {
		PostID       int64  `bun:"post_id"`
		ReactionType string `bun:"reaction_type"`
		Count        int    `bun:"count"`
	}
	var reactions []reactionRow
	err := pg.bun.NewSelect().
		Model((*postReaction)(nil)).
		Column("post_id", "reaction_type").
		ColumnExpr("count(*) AS count").
		Where("post_id IN (?)", bun.In(postIDs)).
		Group("post_id", "reaction_type").
		Scan(ctx, &reactions)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	for _, r := range reactions {
		out[r.PostID].Reactions[api.ReactionType(r.ReactionType)] = r.Count
	}

	var mine []postReaction
	err = pg.bun.NewSelect().
		Model(&mine).
		Where("user_id = ?", viewerID).
		Where("post_id IN (?)", bun.In(postIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get viewer reactions: %w", err)
	}
	for _, r := range mine {
		e := out[r.PostID]
		e.ViewerReaction = api.ReactionType(r.ReactionType)
		out[r.PostID] = e
	}

	type commentRow struct {
		PostID int64 `bun:"post_id"`
		Count  int   `bun:"count"`
	}
	var comments []commentRow
	err = pg.bun.NewSelect().
		Model((*postComment)(nil)).
		Column("post_id").
		ColumnExpr("count(*) AS count").
		Where("post_id IN (?)", bun.In(postIDs)).
		Where("NOT is_deleted").
		Group("post_id").
		Scan(ctx, &comments)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	for _, c := range comments {
		e := out[c.PostID]
		e.CommentCount = c.Count
		out[c.PostID] = e
	}
	return out, nil
}

// SetReaction toggles the user's reaction on a post. Repeating the
// current reaction removes it, a different one replaces it, and an
// empty reaction clears whatever is there. The (post, user) unique
// index backs the one-reaction rule; a racing insert is retried once.
func (pg *Postgres) SetReaction(ctx context.Context, postID, userID int64, reaction api.ReactionType) error {
	apply := func() error {
		return pg.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			var p post
			err := tx.NewSelect().Model(&p).Where("id = ? AND NOT is_deleted", postID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("post: %w", api.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("get post: %w", err)
			}

			var existing postReaction
			err = tx.NewSelect().
				Model(&existing).
				Where("post_id = ? AND user_id = ?", postID, userID).
				Scan(ctx)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if reaction == "" {
					return nil
				}
				row := postReaction{PostID: postID, UserID: userID, ReactionType: string(reaction)}
				if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
					return fmt.Errorf("insert reaction: %w", err)
				}
				return nil
			case err != nil:
				return fmt.Errorf("get reaction: %w", err)
			}

			if reaction == "" || existing.ReactionType == string(reaction) {
				_, err := tx.NewDelete().
					Model((*postReaction)(nil)).
					Where("id = ?", existing.ID).
					Exec(ctx)
				if err != nil {
					return fmt.Errorf("delete reaction: %w", err)
				}
				return nil
			}
			_, err = tx.NewUpdate().
				Model((*postReaction)(nil)).
				Set("reaction_type = ?", string(reaction)).
				Set("created_at = now()").
				Where("id = ?", existing.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("update reaction: %w", err)
			}
			return nil
		})
	}
	err := apply()
	if err != nil && isUniqueViolation(err) {
		// Lost a race with another insert for the same pair; the row
		// exists now, so the toggle path applies.
		err = apply()
	}
	return err
}

// InsertComment inserts a comment or a reply. Replies must reference a
// live top-level comment on the same post.
func (pg *Postgres) InsertComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	row := postComment{
		PostID:          c.PostID,
		UserID:          c.UserID,
		Content:         c.Content,
		ParentCommentID: c.ParentID,
		CreatedAt:       c.CreatedAt,
	}
	err := pg.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var p post
		err := tx.NewSelect().Model(&p).Where("id = ? AND NOT is_deleted", c.PostID).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("post: %w", api.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get post: %w", err)
		}

		if c.ParentID != nil {
			var parent postComment
			err := tx.NewSelect().Model(&parent).Where("id = ?", *c.ParentID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("parent comment: %w", api.ErrInvalidParent)
			}
			if err != nil {
				return fmt.Errorf("get parent comment: %w", err)
			}
			if parent.PostID != c.PostID || parent.IsDeleted {
				return fmt.Errorf("parent comment unavailable: %w", api.ErrInvalidParent)
			}
			if parent.ParentCommentID != nil {
				return fmt.Errorf("replies to replies are not allowed: %w", api.ErrInvalidParent)
			}
		}

		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return api.Comment{}, err
	}
	return row.APIComment(), nil
}

// ListComments returns a post's non-deleted comments, oldest first.
func (pg *Postgres) ListComments(ctx context.Context, postID int64) ([]api.Comment, error) {
	var rows []postComment
	err := pg.bun.NewSelect().
		Model(&rows).
		Where("post_id = ? AND NOT is_deleted", postID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]api.Comment, len(rows))
	for i, r := range rows {
		out[i] = r.APIComment()
	}
	return out, nil
}

// CountUserPosts counts one author's non-deleted posts.
func (pg *Postgres) CountUserPosts(ctx context.Context, userID int64) (int, error) {
	n, err := pg.bun.NewSelect().
		Model((*post)(nil)).
		Where("user_id = ? AND NOT is_deleted", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count user posts: %w", err)
	}
	return n, nil
}

// EngagementTotals sums reactions and comments received across an
// author's non-deleted posts.
func (pg *Postgres) EngagementTotals(ctx context.Context, userID int64) (api.EngagementTotals, error) {
	var totals api.EngagementTotals
	err := pg.bun.NewRaw(
		`SELECT count(r.id) FROM post_reactions r
		 JOIN posts p ON p.id = r.post_id
		 WHERE p.user_id = ? AND NOT p.is_deleted`,
		userID,
	).Scan(ctx, &totals.Reactions)
	if err != nil {
		return api.EngagementTotals{}, fmt.Errorf("count received reactions: %w", err)
	}
	err = pg.bun.NewRaw(
		`SELECT count(c.id) FROM post_comments c
		 JOIN posts p ON p.id = c.post_id
		 WHERE p.user_id = ? AND NOT p.is_deleted AND NOT c.is_deleted`,
		userID,
	).Scan(ctx, &totals.Comments)
	if err != nil {
		return api.EngagementTotals{}, fmt.Errorf("count received comments: %w", err)
	}
	return totals, nil
}
