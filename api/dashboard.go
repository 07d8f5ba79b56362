package api

import (
	"net/http"
	"time"
)

// dashboardRecentPosts caps the recent-post strip on the stats view.
const dashboardRecentPosts = 5

// The dashboard composer aggregates over the other components and owns
// no rules of its own: followers are accepted connections where the
// caller is receiver, following where the caller is requester.

func (a *API) dashboardStats(w http.ResponseWriter, r *http.Request) {
	type (
		stats struct {
			PostsCount     int `json:"posts_count"`
			FollowersCount int `json:"followers_count"`
			FollowingCount int `json:"following_count"`
			TotalReactions int `json:"total_reactions"`
			TotalComments  int `json:"total_comments"`
		}
		response struct {
			User        User       `json:"user"`
			Stats       stats      `json:"stats"`
			RecentPosts []feedPost `json:"recent_posts"`
		}
	)

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	postCount, err := a.Feed.CountUserPosts(ctx, user.ID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load dashboard stats")
		return
	}
	followers, following, err := a.Connections.CountAcceptedConnections(ctx, user.ID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load dashboard stats")
		return
	}
	totals, err := a.Feed.EngagementTotals(ctx, user.ID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load dashboard stats")
		return
	}

	recent, err := a.Feed.ListUserPosts(ctx, user.ID, dashboardRecentPosts, 0)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load dashboard stats")
		return
	}
	recentPosts, err := a.decoratePosts(ctx, user.ID, recent)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load dashboard stats")
		return
	}

	a.respond(w, http.StatusOK, response{
		User: user,
		Stats: stats{
			PostsCount:     postCount,
			FollowersCount: followers,
			FollowingCount: following,
			TotalReactions: totals.Reactions,
			TotalComments:  totals.Comments,
		},
		RecentPosts: recentPosts,
	})
}

func (a *API) dashboardPosts(w http.ResponseWriter, r *http.Request) {
	type (
		entry struct {
			feedPost
			TotalEngagement int `json:"total_engagement"`
		}
		response struct {
			Posts []entry `json:"posts"`
		}
	)

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", feedPageSize)
	offset := queryInt(r, "offset", 0)

	posts, err := a.Feed.ListUserPosts(r.Context(), user.ID, limit, offset)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load posts")
		return
	}
	decorated, err := a.decoratePosts(r.Context(), user.ID, posts)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load posts")
		return
	}

	entries := make([]entry, len(decorated))
	for i, p := range decorated {
		reactions := 0
		for _, n := range p.Reactions {
			reactions += n
		}
		entries[i] = entry{feedPost: p, TotalEngagement: reactions + p.CommentCount}
	}

	a.respond(w, http.StatusOK, response{Posts: entries})
}

func (a *API) listFollowers(w http.ResponseWriter, r *http.Request) {
	a.listAccepted(w, r, "followers")
}

func (a *API) listFollowing(w http.ResponseWriter, r *http.Request) {
	a.listAccepted(w, r, "following")
}

// listAccepted returns accepted counterparts on one side of the graph.
func (a *API) listAccepted(w http.ResponseWriter, r *http.Request, side string) {
	type entry struct {
		User
		ConnectedAt time.Time `json:"connected_at"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	conns, err := a.Connections.ListConnections(r.Context(), user.ID, ConnectionAccepted)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list connections")
		return
	}

	var wanted []Connection
	for _, c := range conns {
		if side == "followers" && c.ReceiverID == user.ID {
			wanted = append(wanted, c)
		}
		if side == "following" && c.RequesterID == user.ID {
			wanted = append(wanted, c)
		}
	}

	annotated, err := a.connectionEntries(r.Context(), user.ID, wanted)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list connections")
		return
	}

	entries := make([]entry, len(annotated))
	for i, c := range annotated {
		entries[i] = entry{User: c.User, ConnectedAt: c.CreatedAt}
	}

	a.respond(w, http.StatusOK, map[string][]entry{side: entries})
}
