package postgres

import (
	"time"

	"github.com/globridge/social-engine/api"
	"github.com/uptrace/bun"
)

// A user represents an account in the database.
type user struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:",notnull"`
	Email     string    `bun:",notnull,unique"`
	Role      string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:now()"`
}

// A connection represents a relationship request row. The pair index
// in schema.go keeps one row per unordered user pair.
type connection struct {
	bun.BaseModel `bun:"table:connections"`

	ID          int64     `bun:",pk,autoincrement"`
	RequesterID int64     `bun:",notnull"`
	ReceiverID  int64     `bun:",notnull"`
	Status      string    `bun:",notnull,default:'pending'"`
	CreatedAt   time.Time `bun:",nullzero,notnull,default:now()"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:now()"`
}

// A message represents a direct message row.
type message struct {
	bun.BaseModel `bun:"table:messages"`

	ID             int64      `bun:",pk,autoincrement"`
	SenderID       int64      `bun:",notnull"`
	ReceiverID     int64      `bun:",notnull"`
	Body           string     `bun:",notnull"`
	MessageType    string     `bun:",notnull,default:'text'"`
	AttachmentURL  string     `bun:",nullzero"`
	AttachmentName string     `bun:",nullzero"`
	AttachmentSize int64      `bun:",nullzero"`
	IsRead         bool       `bun:",notnull,default:false"`
	ReadAt         *time.Time `bun:",nullzero"`
	IsDeleted      bool       `bun:",notnull,default:false"`
	ReplyToID      *int64     `bun:",nullzero"`
	CreatedAt      time.Time  `bun:",nullzero,notnull,default:now()"`
}

// A post represents a feed post row.
type post struct {
	bun.BaseModel `bun:"table:posts"`

	ID             int64     `bun:",pk,autoincrement"`
	UserID         int64     `bun:",notnull"`
	Content        string    `bun:",notnull"`
	PostType       string    `bun:",notnull,default:'text'"`
	MediaURL       string    `bun:",nullzero"`
	MediaThumbnail string    `bun:",nullzero"`
	ArticleTitle   string    `bun:",nullzero"`
	ArticleSummary string    `bun:",nullzero"`
	IsDeleted      bool      `bun:",notnull,default:false"`
	CreatedAt      time.Time `bun:",nullzero,notnull,default:now()"`
	UpdatedAt      time.Time `bun:",nullzero,notnull,default:now()"`
}

// A postReaction holds at most one reaction per (post, user) pair,
// backed by a unique index.
type postReaction struct {
	bun.BaseModel `bun:"table:post_reactions"`

	ID           int64     `bun:",pk,autoincrement"`
	PostID       int64     `bun:",notnull"`
	UserID       int64     `bun:",notnull"`
	ReactionType string    `bun:",notnull"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:now()"`
}

// A postComment represents a comment row. ParentCommentID references a
// top-level comment when the row is a reply.
type postComment struct {
	bun.BaseModel `bun:"table:post_comments"`

	ID              int64     `bun:",pk,autoincrement"`
	PostID          int64     `bun:",notnull"`
	UserID          int64     `bun:",notnull"`
	Content         string    `bun:",notnull"`
	ParentCommentID *int64    `bun:",nullzero"`
	IsDeleted       bool      `bun:",notnull,default:false"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:now()"`
}

func (u user) APIUser() api.User {
	return api.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      api.UserRole(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func (c connection) APIConnection() api.Connection {
	return api.Connection{
		ID:          c.ID,
		RequesterID: c.RequesterID,
		ReceiverID:  c.ReceiverID,
		Status:      api.ConnectionStatus(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m message) APIMessage() api.Message {
	return api.Message{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Body:           m.Body,
		Type:           api.MessageType(m.MessageType),
		AttachmentURL:  m.AttachmentURL,
		AttachmentName: m.AttachmentName,
		AttachmentSize: m.AttachmentSize,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		IsDeleted:      m.IsDeleted,
		ReplyToID:      m.ReplyToID,
		CreatedAt:      m.CreatedAt,
	}
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
		IsDeleted:      p.IsDeleted,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (c postComment) APIComment() api.Comment {
	return api.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Content:   c.Content,
		ParentID:  c.ParentCommentID,
		IsDeleted: c.IsDeleted,
		CreatedAt: c.CreatedAt,
	}
}
