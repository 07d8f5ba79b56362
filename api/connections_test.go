package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/globridge/social-engine/api/validator"
	"github.com/neilotoole/slogt"
)

func TestAPI_requestConnection(t *testing.T) {
	tests := []struct {
		name       string
		users      *testusers
		conns      *testconns
		req        string
		wantStatus int
		wantBody   string
	}{
		{
			name: "SelfTarget",
			req: `{
				"receiver_id": 1
			}`,
			wantStatus: 400,
			wantBody: `{
				"error": "cannot connect to yourself"
			}`,
		},
		{
			name: "UnknownReceiver",
			req: `{
				"receiver_id": 99
			}`,
			users: &testusers{
				getUser: func(t *testing.T, id int64) (User, error) {
					return User{}, ErrNotFound
				},
			},
			wantStatus: 404,
			wantBody: `{
				"error": "receiver: not found"
			}`,
		},
		{
			name: "PairExists",
			req: `{
				"receiver_id": 2
			}`,
			users: &testusers{
				getUser: func(t *testing.T, id int64) (User, error) {
					return User{ID: 2, Name: "Bob"}, nil
				},
			},
			conns: &testconns{
				insertConnection: func(t *testing.T, requesterID, receiverID int64) (Connection, error) {
					return Connection{}, ErrDuplicateRequest
				},
			},
			wantStatus: 409,
			wantBody: `{
				"error": "connection already exists"
			}`,
		},
		{
			name: "OK",
			req: `{
				"receiver_id": 2
			}`,
			users: &testusers{
				getUser: func(t *testing.T, id int64) (User, error) {
					if id != 2 {
						t.Errorf("Got receiver id %d, want 2", id)
					}
					return User{ID: 2, Name: "Bob"}, nil
				},
			},
			conns: &testconns{
				insertConnection: func(t *testing.T, requesterID, receiverID int64) (Connection, error) {
					if requesterID != 1 || receiverID != 2 {
						t.Errorf("Got pair (%d, %d), want (1, 2)", requesterID, receiverID)
					}
					return Connection{
						ID:          5,
						RequesterID: requesterID,
						ReceiverID:  receiverID,
						Status:      ConnectionPending,
						CreatedAt:   testTime,
						UpdatedAt:   testTime,
					}, nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"id": 5,
				"requester_id": 1,
				"receiver_id": 2,
				"status": "pending",
				"created_at": "2024-05-01T12:00:00Z",
				"updated_at": "2024-05-01T12:00:00Z"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.users != nil {
				tt.users.T = t
			}
			if tt.conns != nil {
				tt.conns.T = t
			}
			api := &API{
				Logger:      slogt.New(t),
				Auth:        &testauth{user: viewer()},
				Users:       tt.users,
				Connections: tt.conns,
				Val:         validator.New(),
			}

			srv := httptest.NewServer(api)
			defer srv.Close()

			req, _ := http.NewRequest("POST", srv.URL+"/connections", strings.NewReader(tt.req))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_respondToConnection(t *testing.T) {
	pending := Connection{ID: 5, RequesterID: 2, ReceiverID: 1, Status: ConnectionPending, CreatedAt: testTime, UpdatedAt: testTime}

	tests := []struct {
		name       string
		conns      *testconns
		req        string
		wantStatus int
		wantBody   string
	}{
		{
			name: "Accept",
			req:  `{"action": "accept"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					return pending, nil
				},
				setConnectionStatus: func(t *testing.T, id int64, status ConnectionStatus) (Connection, error) {
					if status != ConnectionAccepted {
						t.Errorf("Got status %q, want accepted", status)
					}
					c := pending
					c.Status = status
					return c, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"connection_id": 5,
				"status": "accepted"
			}`,
		},
		{
			name: "DeclineDeletesRow",
			req:  `{"action": "decline"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					return pending, nil
				},
				deleteConnection: func(t *testing.T, id int64) error {
					if id != 5 {
						t.Errorf("Got id %d, want 5", id)
					}
					return nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"connection_id": 5,
				"status": "declined"
			}`,
		},
		{
			name: "BlockAccepted",
			req:  `{"action": "block"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					c := pending
					c.Status = ConnectionAccepted
					return c, nil
				},
				setConnectionStatus: func(t *testing.T, id int64, status ConnectionStatus) (Connection, error) {
					c := pending
					c.Status = status
					return c, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"connection_id": 5,
				"status": "blocked"
			}`,
		},
		{
			name: "AcceptAlreadyAccepted",
			req:  `{"action": "accept"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					c := pending
					c.Status = ConnectionAccepted
					return c, nil
				},
			},
			wantStatus: 409,
			wantBody: `{
				"error": "request already processed: invalid state"
			}`,
		},
		{
			name: "BlockBlocked",
			req:  `{"action": "block"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					c := pending
					c.Status = ConnectionBlocked
					return c, nil
				},
			},
			wantStatus: 409,
			wantBody: `{
				"error": "connection cannot be blocked: invalid state"
			}`,
		},
		{
			name: "NotReceiver",
			req:  `{"action": "accept"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					c := pending
					c.RequesterID, c.ReceiverID = 1, 2
					return c, nil
				},
			},
			wantStatus: 403,
			wantBody: `{
				"error": "only the receiver may respond: not authorized"
			}`,
		},
		{
			name: "Missing",
			req:  `{"action": "accept"}`,
			conns: &testconns{
				getConnection: func(t *testing.T, id int64) (Connection, error) {
					return Connection{}, ErrNotFound
				},
			},
			wantStatus: 404,
			wantBody: `{
				"error": "not found"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.conns.T = t
			api := &API{
				Logger:      slogt.New(t),
				Auth:        &testauth{user: viewer()},
				Connections: tt.conns,
				Val:         validator.New(),
			}

			srv := httptest.NewServer(api)
			defer srv.Close()

			req, _ := http.NewRequest("POST", srv.URL+"/connections/5/respond", strings.NewReader(tt.req))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_listConnectionRequests(t *testing.T) {
	conns := &testconns{
		listConnections: func(t *testing.T, userID int64, status ConnectionStatus) ([]Connection, error) {
			if status != ConnectionPending {
				t.Errorf("Got status %q, want pending", status)
			}
			return []Connection{
				{ID: 5, RequesterID: 3, ReceiverID: 1, Status: ConnectionPending, CreatedAt: testTime, UpdatedAt: testTime},
				{ID: 6, RequesterID: 1, ReceiverID: 2, Status: ConnectionPending, CreatedAt: testTime, UpdatedAt: testTime},
			}, nil
		},
	}
	users := &testusers{
		getUsers: func(t *testing.T, ids []int64) (map[int64]User, error) {
			return map[int64]User{
				2: {ID: 2, Name: "Bob", Email: "bob@example.com", Role: RoleInvestor, CreatedAt: testTime},
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

	req, _ := http.NewRequest("GET", srv.URL+"/connections/requests", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"received_requests": [
			{
				"id": 5,
				"requester_id": 3,
				"receiver_id": 1,
				"status": "pending",
				"created_at": "2024-05-01T12:00:00Z",
				"updated_at": "2024-05-01T12:00:00Z",
				"connection_type": "received",
				"user": {
					"id": 3,
					"name": "Cleo",
					"email": "cleo@example.com",
					"role": "business",
					"created_at": "2024-05-01T12:00:00Z"
				}
			}
		],
		"sent_requests": [
			{
				"id": 6,
				"requester_id": 1,
				"receiver_id": 2,
				"status": "pending",
				"created_at": "2024-05-01T12:00:00Z",
				"updated_at": "2024-05-01T12:00:00Z",
				"connection_type": "sent",
				"user": {
					"id": 2,
					"name": "Bob",
					"email": "bob@example.com",
					"role": "investor",
					"created_at": "2024-05-01T12:00:00Z"
				}
			}
		]
	}`)
}
