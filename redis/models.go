package redis

import (
	"time"

	"github.com/globridge/social-engine/api"
)

// A post represents a cached feed post.
type post struct {
	ID             int64     `redis:"id"`
	UserID         int64     `redis:"user_id"`
	Content        string    `redis:"content"`
	PostType       string    `redis:"post_type"`
	MediaURL       string    `redis:"media_url"`
	MediaThumbnail string    `redis:"media_thumbnail"`
	ArticleTitle   string    `redis:"article_title"`
	ArticleSummary string    `redis:"article_summary"`
	CreatedAt      time.Time `redis:"created_at"`
}

func (p post) APIPost() api.Post {
	return api.Post{
		ID:             p.ID,
		UserID:         p.UserID,
		Content:        p.Content,
		Type:           api.PostType(p.PostType),
		MediaURL:       p.MediaURL,
		MediaThumbnail: p.MediaThumbnail,
		ArticleTitle:   p.ArticleTitle,
		ArticleSummary: p.ArticleSummary,
		CreatedAt:      p.CreatedAt,
	}
}
