package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// requestConnection creates a pending relationship request owned by
// the caller. Pair uniqueness is enforced by the store; any existing
// row in either direction rejects the request.
func (a *API) requestConnection(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ReceiverID int64 `json:"receiver_id" validate:"required"`
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

	if body.ReceiverID == user.ID {
		a.fail(w, ErrInvalidTarget, "")
		return
	}
	if _, err := a.Users.GetUser(r.Context(), body.ReceiverID); err != nil {
		if errors.Is(err, ErrNotFound) {
			a.fail(w, fmt.Errorf("receiver: %w", ErrNotFound), "")
			return
		}
		a.respondError(w, http.StatusInternalServerError, err, "Could not create connection request")
		return
	}

	conn, err := a.Connections.InsertConnection(r.Context(), user.ID, body.ReceiverID)
	if err != nil {
		a.fail(w, err, "Could not create connection request")
		return
	}

	a.respond(w, http.StatusCreated, conn)
}

// respondToConnection is the single mutation path for a pending
// request: accept, decline, or block, by the receiver only. Declining
// deletes the row, which frees the pair for a future request.
func (a *API) respondToConnection(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Action string `json:"action" validate:"required,oneof=accept decline block"`
		}
		response struct {
			ConnectionID int64            `json:"connection_id"`
			Status       ConnectionStatus `json:"status"`
		}
	)

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	connectionID, err := pathID(r, "connectionID")
	if err != nil {
		a.fail(w, fmt.Errorf("connection: %w", ErrNotFound), "")
		return
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	conn, err := a.Connections.GetConnection(r.Context(), connectionID)
	if err != nil {
		a.fail(w, err, "Could not load connection request")
		return
	}
	if conn.ReceiverID != user.ID {
		a.fail(w, fmt.Errorf("only the receiver may respond: %w", ErrNotAuthorized), "")
		return
	}

	switch body.Action {
	case "accept":
		if conn.Status != ConnectionPending {
			a.fail(w, fmt.Errorf("request already processed: %w", ErrInvalidState), "")
			return
		}
		conn, err = a.Connections.SetConnectionStatus(r.Context(), conn.ID, ConnectionAccepted)
	case "decline":
		if conn.Status != ConnectionPending {
			a.fail(w, fmt.Errorf("request already processed: %w", ErrInvalidState), "")
			return
		}
		err = a.Connections.DeleteConnection(r.Context(), conn.ID)
		conn.Status = ConnectionDeclined
	case "block":
		// Blocking is allowed on a pending request or an accepted
		// connection; it is terminal either way.
		if conn.Status != ConnectionPending && conn.Status != ConnectionAccepted {
			a.fail(w, fmt.Errorf("connection cannot be blocked: %w", ErrInvalidState), "")
			return
		}
		conn, err = a.Connections.SetConnectionStatus(r.Context(), conn.ID, ConnectionBlocked)
	}
	if err != nil {
		a.fail(w, err, "Could not update connection request")
		return
	}

	a.respond(w, http.StatusOK, response{ConnectionID: connectionID, Status: conn.Status})
}

// listConnections returns all connections touching the caller, newest
// first, optionally filtered by status.
func (a *API) listConnections(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Connections []ConnectionEntry `json:"connections"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	status := ConnectionStatus(r.URL.Query().Get("status"))
	if status != "" {
		if errs := a.Val.Validate(string(status), "oneof=pending accepted blocked"); len(errs) > 0 {
			a.respond(w, http.StatusBadRequest, map[string]any{"errors": errs})
			return
		}
	}

	conns, err := a.Connections.ListConnections(r.Context(), user.ID, status)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list connections")
		return
	}

	entries, err := a.connectionEntries(r.Context(), user.ID, conns)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list connections")
		return
	}

	a.respond(w, http.StatusOK, response{Connections: entries})
}

// listConnectionRequests splits the caller's pending connections into
// received and sent.
func (a *API) listConnectionRequests(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Received []ConnectionEntry `json:"received_requests"`
		Sent     []ConnectionEntry `json:"sent_requests"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	conns, err := a.Connections.ListConnections(r.Context(), user.ID, ConnectionPending)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list connection requests")
		return
	}

	entries, err := a.connectionEntries(r.Context(), user.ID, conns)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list connection requests")
		return
	}

	res := response{
		Received: make([]ConnectionEntry, 0, len(entries)),
		Sent:     make([]ConnectionEntry, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Direction == "received" {
			res.Received = append(res.Received, e)
		} else {
			res.Sent = append(res.Sent, e)
		}
	}

	a.respond(w, http.StatusOK, res)
}

// connectionEntries annotates connections with counterpart identity
// and direction relative to userID.
func (a *API) connectionEntries(ctx context.Context, userID int64, conns []Connection) ([]ConnectionEntry, error) {
	ids := make([]int64, 0, len(conns))
	for _, c := range conns {
		if c.RequesterID == userID {
			ids = append(ids, c.ReceiverID)
		} else {
			ids = append(ids, c.RequesterID)
		}
	}
	users, err := a.Users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load counterparts: %w", err)
	}

	entries := make([]ConnectionEntry, len(conns))
	for i, c := range conns {
		entry := ConnectionEntry{Connection: c}
		if c.RequesterID == userID {
			entry.Direction = "sent"
			entry.User = users[c.ReceiverID]
		} else {
			entry.Direction = "received"
			entry.User = users[c.RequesterID]
		}
		entries[i] = entry
	}
	return entries, nil
}

// relationshipStatus labels the pair state between two users for
// search and listing features.
func (a *API) relationshipStatus(ctx context.Context, viewerID, otherID int64) (RelationshipStatus, error) {
	conn, err := a.Connections.GetConnectionBetween(ctx, viewerID, otherID)
	if errors.Is(err, ErrNotFound) {
		return RelationshipNone, nil
	}
	if err != nil {
		return "", err
	}
	switch {
	case conn.Status == ConnectionAccepted:
		return RelationshipConnected, nil
	case conn.Status == ConnectionBlocked:
		return RelationshipBlocked, nil
	case conn.RequesterID == viewerID:
		return RelationshipSent, nil
	default:
		return RelationshipReceived, nil
	}
}
