// Package api exposes the social interaction engine over HTTP: the
// connection graph, the messaging engine, the feed aggregator, and the
// dashboard composer. Storage, caching, identity, and notification are
// injected as interfaces; the package owns no global state.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
)

// A UserStore persists user records. Users are created and read here
// and referenced read-only everywhere else.
type UserStore interface {
	InsertUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUsers(ctx context.Context, ids []int64) (map[int64]User, error)
	SearchUsers(ctx context.Context, viewerID int64, q string, role UserRole, limit int) ([]User, error)
}

// A ConnectionStore owns the relationship state machine between user
// pairs. InsertConnection enforces pair uniqueness and reports
// ErrDuplicateRequest when any row exists in either direction.
type ConnectionStore interface {
	InsertConnection(ctx context.Context, requesterID, receiverID int64) (Connection, error)
	GetConnection(ctx context.Context, id int64) (Connection, error)
	GetConnectionBetween(ctx context.Context, userA, userB int64) (Connection, error)
	SetConnectionStatus(ctx context.Context, id int64, status ConnectionStatus) (Connection, error)
	DeleteConnection(ctx context.Context, id int64) error
	ListConnections(ctx context.Context, userID int64, status ConnectionStatus) ([]Connection, error)
	CountAcceptedConnections(ctx context.Context, userID int64) (followers, following int, err error)
}

// A MessageStore persists direct messages. ReadConversation marks all
// qualifying unread messages as read atomically with the read itself.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg Message) (Message, error)
	ListThread(ctx context.Context, userID, partnerID int64) ([]Message, error)
	ReadConversation(ctx context.Context, userID, partnerID int64) ([]Message, error)
	ListConversations(ctx context.Context, userID int64) ([]ConversationSummary, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkMessageRead(ctx context.Context, id, receiverID int64) error
	SoftDeleteMessage(ctx context.Context, id, senderID int64) error
}

// A FeedStore persists posts, reactions, and comments, and computes
// live engagement views. SetReaction applies toggle semantics; both it
// and InsertComment reject missing or deleted posts with ErrNotFound.
type FeedStore interface {
	InsertPost(ctx context.Context, p Post) (Post, error)
	ListPosts(ctx context.Context, limit, offset int, excludePostIDs ...int64) ([]Post, error)
	ListUserPosts(ctx context.Context, userID int64, limit, offset int) ([]Post, error)
	PostEngagement(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]PostEngagement, error)
	SetReaction(ctx context.Context, postID, userID int64, reaction ReactionType) error
	InsertComment(ctx context.Context, c Comment) (Comment, error)
	ListComments(ctx context.Context, postID int64) ([]Comment, error)
	CountUserPosts(ctx context.Context, userID int64) (int, error)
	EngagementTotals(ctx context.Context, userID int64) (EngagementTotals, error)
}

// A Cache provides a storage layer that caches recent feed posts. Raw
// post records only; engagement is always computed live.
type Cache interface {
	ListPosts(ctx context.Context) ([]Post, error)
	InsertPost(ctx context.Context, p Post) error
}

// An Authenticator resolves the caller's identity from the request. It
// reports ErrUnauthenticated when no valid identity is present.
type Authenticator interface {
	Authenticate(r *http.Request) (User, error)
}

// A Notifier delivers a best-effort outbound notification. The return
// value reports delivery; failures are never surfaced to callers.
type Notifier interface {
	Notify(ctx context.Context, toEmail, subject, body string) bool
}

// API provides the REST endpoints for the engine.
type API struct {
	Logger      *slog.Logger
	Users       UserStore
	Connections ConnectionStore
	Messages    MessageStore
	Feed        FeedStore
	Cache       Cache    // optional; nil skips the recent-post cache
	Notifier    Notifier // optional; nil skips outbound notifications
	Auth        Authenticator
	Val         *Validator

	once sync.Once
	mux  *http.ServeMux
}

// feedPageSize defines the default number of posts on a single feed page.
var feedPageSize = 20

// searchLimit caps user search results.
const searchLimit = 20

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", a.createUser)
	mux.HandleFunc("GET /me", a.me)
	mux.HandleFunc("GET /users/search", a.searchUsers)

	mux.HandleFunc("GET /connections", a.listConnections)
	mux.HandleFunc("POST /connections", a.requestConnection)
	mux.HandleFunc("POST /connections/{connectionID}/respond", a.respondToConnection)
	mux.HandleFunc("GET /connections/requests", a.listConnectionRequests)

	mux.HandleFunc("POST /messages", a.sendMessage)
	mux.HandleFunc("GET /messages/thread/{partnerID}", a.getThread)
	mux.HandleFunc("GET /messages/conversation/{partnerID}", a.getConversation)
	mux.HandleFunc("GET /conversations", a.listConversations)
	mux.HandleFunc("GET /messages/unread-count", a.unreadCount)
	mux.HandleFunc("POST /messages/{messageID}/read", a.markMessageRead)
	mux.HandleFunc("DELETE /messages/{messageID}", a.deleteMessage)

	mux.HandleFunc("POST /posts", a.createPost)
	mux.HandleFunc("GET /feed", a.getFeed)
	mux.HandleFunc("POST /posts/{postID}/reactions", a.reactToPost)
	mux.HandleFunc("GET /posts/{postID}/comments", a.getComments)
	mux.HandleFunc("POST /posts/{postID}/comments", a.createComment)

	mux.HandleFunc("GET /dashboard/stats", a.dashboardStats)
	mux.HandleFunc("GET /dashboard/posts", a.dashboardPosts)
	mux.HandleFunc("GET /dashboard/followers", a.listFollowers)
	mux.HandleFunc("GET /dashboard/following", a.listFollowing)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

// respondError reports a server fault: logged as an error, surfaced
// with a generic message.
func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// fail maps a typed failure to its status code. Business-rule
// rejections are expected traffic and log at info; anything mapping to
// a 500 is treated as a storage failure and degrades to respondError.
func (a *API) fail(w http.ResponseWriter, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.respondError(w, status, err, msg)
		return
	}
	a.Logger.Info("Request rejected", "reason", err.Error())
	a.respond(w, status, response{Error: err.Error()})
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, s interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(s); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	if err := r.Body.Close(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return false
	}
	return true
}

// requireUser authenticates the caller, writing the 401 itself when
// identity is missing.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	user, err := a.Auth.Authenticate(r)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			a.fail(w, err, "")
		} else {
			a.respondError(w, http.StatusInternalServerError, err, "Could not authenticate request")
		}
		return User{}, false
	}
	return user, true
}

// pathID parses a numeric path segment such as {messageID}.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// queryInt parses an optional numeric query parameter, falling back to
// def on absence, garbage, or a non-positive value. Zero falls back
// too: bun drops the LIMIT clause entirely for non-positive limits.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
