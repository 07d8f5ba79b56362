package api

import "time"

// A UserRole classifies an account on the platform.
type UserRole string

// Account roles.
const (
	RoleBusiness UserRole = "business"
	RoleInvestor UserRole = "investor"
	RoleAdmin    UserRole = "admin"
)

// A User represents a persisted account. User records are owned by the
// identity store and are referenced, never mutated, by the other
// components.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// A ConnectionStatus is the lifecycle state of a connection request.
type ConnectionStatus string

// Connection lifecycle states. Declining deletes the row, so declined
// never appears on a persisted connection.
const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionDeclined ConnectionStatus = "declined"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// A Connection represents a directed relationship request between two
// users. At most one row exists per unordered user pair.
type Connection struct {
	ID          int64            `json:"id"`
	RequesterID int64            `json:"requester_id"`
	ReceiverID  int64            `json:"receiver_id"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// A RelationshipStatus labels the connection state between the viewer
// and another user in search results.
type RelationshipStatus string

// Relationship labels.
const (
	RelationshipNone      RelationshipStatus = "none"
	RelationshipSent      RelationshipStatus = "sent"
	RelationshipReceived  RelationshipStatus = "received"
	RelationshipConnected RelationshipStatus = "connected"
	RelationshipBlocked   RelationshipStatus = "blocked"
)

// A ConnectionEntry is a connection annotated with the counterpart's
// identity and the direction relative to the listing user.
type ConnectionEntry struct {
	Connection
	Direction string `json:"connection_type"` // "sent" or "received"
	User      User   `json:"user"`
}

// A MessageType classifies the payload of a direct message.
type MessageType string

// Message payload types.
const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// A Message represents a persisted direct message between two users.
// ReadAt is set if and only if IsRead is true. Deletion is a flag;
// deleted messages drop out of thread and conversation reads but rows
// are never removed.
type Message struct {
	ID             int64       `json:"id"`
	SenderID       int64       `json:"sender_id"`
	ReceiverID     int64       `json:"receiver_id"`
	Body           string      `json:"body"`
	Type           MessageType `json:"message_type"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`
	AttachmentName string      `json:"attachment_name,omitempty"`
	AttachmentSize int64       `json:"attachment_size,omitempty"`
	IsRead         bool        `json:"is_read"`
	ReadAt         *time.Time  `json:"read_at,omitempty"`
	IsDeleted      bool        `json:"-"`
	ReplyToID      *int64      `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// A ConversationSummary is one entry in a user's conversation list:
// the counterpart, the most recent message between the pair, and how
// many messages from the counterpart remain unread.
type ConversationSummary struct {
	PartnerID   int64     `json:"partner_id"`
	PartnerName string    `json:"partner_name"`
	PartnerRole UserRole  `json:"partner_role"`
	LastMessage string    `json:"last_message"`
	LastTime    time.Time `json:"last_time"`
	UnreadCount int       `json:"unread_count"`
}

// A PostType classifies the payload of a feed post.
type PostType string

// Post payload types.
const (
	PostText    PostType = "text"
	PostImage   PostType = "image"
	PostVideo   PostType = "video"
	PostArticle PostType = "article"
)

// A Post represents a persisted feed post.
type Post struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Content        string    `json:"content"`
	Type           PostType  `json:"post_type"`
	MediaURL       string    `json:"media_url,omitempty"`
	MediaThumbnail string    `json:"media_thumbnail,omitempty"`
	ArticleTitle   string    `json:"article_title,omitempty"`
	ArticleSummary string    `json:"article_summary,omitempty"`
	IsDeleted      bool      `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// A ReactionType is one of the supported post reactions.
type ReactionType string

// Post reaction types.
const (
	ReactionLike       ReactionType = "like"
	ReactionLove       ReactionType = "love"
	ReactionCelebrate  ReactionType = "celebrate"
	ReactionSupport    ReactionType = "support"
	ReactionFunny      ReactionType = "funny"
	ReactionInsightful ReactionType = "insightful"
)

// A PostEngagement decorates one post with live engagement data for a
// particular viewer.
type PostEngagement struct {
	Reactions      map[ReactionType]int `json:"reactions"`
	ViewerReaction ReactionType         `json:"viewer_reaction,omitempty"`
	CommentCount   int                  `json:"comment_count"`
}

// A Comment represents a persisted comment on a post. ParentID points
// at a top-level comment when the comment is a reply; replies never
// nest further.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	ParentID  *int64    `json:"parent_comment_id,omitempty"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// A CommentThread is a top-level comment with its direct replies, each
// annotated with author identity.
type CommentThread struct {
	Comment
	Author  User           `json:"author"`
	Replies []CommentReply `json:"replies"`
}

// A CommentReply is a reply annotated with author identity.
type CommentReply struct {
	Comment
	Author User `json:"author"`
}

// EngagementTotals aggregates reactions and comments across a user's
// posts for the dashboard.
type EngagementTotals struct {
	Reactions int `json:"total_reactions"`
	Comments  int `json:"total_comments"`
}
