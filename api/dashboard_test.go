package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neilotoole/slogt"
)

func TestAPI_dashboardStats(t *testing.T) {
	feed := &testfeed{
		countUserPosts: func(t *testing.T, userID int64) (int, error) {
			if userID != 1 {
				t.Errorf("Got userID %d, want 1", userID)
			}
			return 4, nil
		},
		engagementTotals: func(t *testing.T, userID int64) (EngagementTotals, error) {
			return EngagementTotals{Reactions: 5, Comments: 6}, nil
		},
		listUserPosts: func(t *testing.T, userID int64, limit, offset int) ([]Post, error) {
			if limit != 5 {
				t.Errorf("Got limit %d, want 5", limit)
			}
			return []Post{
				{ID: 1, UserID: 1, Content: "hello", Type: PostText, CreatedAt: testTime, UpdatedAt: testTime},
			}, nil
		},
	}
	conns := &testconns{
		countAccepted: func(t *testing.T, userID int64) (int, int, error) {
			return 2, 3, nil
		},
	}
	users := &testusers{
		getUsers: func(t *testing.T, ids []int64) (map[int64]User, error) {
			return map[int64]User{1: viewer()}, nil
		},
	}

	feed.T, conns.T, users.T = t, t, t
	api := &API{
		Logger:      slogt.New(t),
		Auth:        &testauth{user: viewer()},
		Users:       users,
		Connections: conns,
		Feed:        feed,
	}

	srv := httptest.NewServer(api)
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/dashboard/stats", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"user": {
			"id": 1,
			"name": "Ada",
			"email": "ada@example.com",
			"role": "business",
			"created_at": "2024-05-01T12:00:00Z"
		},
		"stats": {
			"posts_count": 4,
			"followers_count": 2,
			"following_count": 3,
			"total_reactions": 5,
			"total_comments": 6
		},
		"recent_posts": [
			{
				"id": 1,
				"user_id": 1,
				"content": "hello",
				"post_type": "text",
				"created_at": "2024-05-01T12:00:00Z",
				"updated_at": "2024-05-01T12:00:00Z",
				"author": {
					"id": 1,
					"name": "Ada",
					"email": "ada@example.com",
					"role": "business",
					"created_at": "2024-05-01T12:00:00Z"
				},
				"reactions": {},
				"comments_count": 0
			}
		]
	}`)
}

func TestAPI_dashboardPosts(t *testing.T) {
	feed := &testfeed{
		listUserPosts: func(t *testing.T, userID int64, limit, offset int) ([]Post, error) {
			return []Post{
				{ID: 1, UserID: 1, Content: "hello", Type: PostText, CreatedAt: testTime, UpdatedAt: testTime},
			}, nil
		},
		postEngagement: func(t *testing.T, viewerID int64, postIDs []int64) (map[int64]PostEngagement, error) {
			return map[int64]PostEngagement{
				1: {
					Reactions:    map[ReactionType]int{ReactionLike: 2, ReactionLove: 1},
					CommentCount: 3,
				},
			}, nil
		},
	}
	users := &testusers{
		getUsers: func(t *testing.T, ids []int64) (map[int64]User, error) {
			return map[int64]User{1: viewer()}, nil
		},
	}

	feed.T, users.T = t, t
	api := &API{
		Logger: slogt.New(t),
		Auth:   &testauth{user: viewer()},
		Users:  users,
		Feed:   feed,
	}

	srv := httptest.NewServer(api)
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/dashboard/posts", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"posts": [
			{
				"id": 1,
				"user_id": 1,
				"content": "hello",
				"post_type": "text",
				"created_at": "2024-05-01T12:00:00Z",
				"updated_at": "2024-05-01T12:00:00Z",
				"author": {
					"id": 1,
					"name": "Ada",
					"email": "ada@example.com",
					"role": "business",
					"created_at": "2024-05-01T12:00:00Z"
				},
				"reactions": {
					"like": 2,
					"love": 1
				},
				"comments_count": 3,
				"total_engagement": 6
			}
		]
	}`)
}

func TestAPI_listFollowers(t *testing.T) {
	conns := &testconns{
		listConnections: func(t *testing.T, userID int64, status ConnectionStatus) ([]Connection, error) {
			if status != ConnectionAccepted {
				t.Errorf("Got status %q, want accepted", status)
			}
			return []Connection{
				{ID: 5, RequesterID: 3, ReceiverID: 1, Status: ConnectionAccepted, CreatedAt: testTime, UpdatedAt: testTime},
				{ID: 6, RequesterID: 1, ReceiverID: 2, Status: ConnectionAccepted, CreatedAt: testTime, UpdatedAt: testTime},
			}, nil
		},
	}
	users := &testusers{
		getUsers: func(t *testing.T, ids []int64) (map[int64]User, error) {
			return map[int64]User{
				3: {ID: 3, Name: "Cleo", Email: "cleo@example.com", Role: RoleBusiness, CreatedAt: testTime},
			}, nil
		},
	}

	conns.T, users.T = t, t
	api := &API{
		Logger:      slogt.New(t),
		Auth:        &testauth{user: viewer()},
		Users:       users,
		Connections: conns,
	}

	srv := httptest.NewServer(api)
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/dashboard/followers", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"followers": [
			{
				"id": 3,
				"name": "Cleo",
				"email": "cleo@example.com",
				"role": "business",
				"created_at": "2024-05-01T12:00:00Z",
				"connected_at": "2024-05-01T12:00:00Z"
			}
		]
	}`)
}
