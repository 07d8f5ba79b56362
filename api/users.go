package api

import (
	"net/http"
	"time"
)

// createUser provisions a user record. Account credentials live with
// the external auth collaborator; this only owns the identity row.
func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"required,oneof=business investor admin"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	user, err := a.Users.InsertUser(r.Context(), User{
		Name:      body.Name,
		Email:     body.Email,
		Role:      UserRole(body.Role),
		CreatedAt: time.Now(),
	})
	if err != nil {
		a.fail(w, err, "Could not create user")
		return
	}

	a.respond(w, http.StatusCreated, user)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	type response struct {
		User User `json:"user"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	a.respond(w, http.StatusOK, response{User: user})
}

// searchUsers lists other users matching the query, each labeled with
// the caller's relationship to them.
func (a *API) searchUsers(w http.ResponseWriter, r *http.Request) {
	type (
		result struct {
			User
			ConnectionStatus RelationshipStatus `json:"connection_status"`
		}
		response struct {
			Users []result `json:"users"`
		}
	)

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query().Get("q")
	role := UserRole(r.URL.Query().Get("role"))

	users, err := a.Users.SearchUsers(r.Context(), user.ID, q, role, searchLimit)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not search users")
		return
	}

	results := make([]result, len(users))
	for i, u := range users {
		status, err := a.relationshipStatus(r.Context(), user.ID, u.ID)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not search users")
			return
		}
		results[i] = result{User: u, ConnectionStatus: status}
	}

	a.respond(w, http.StatusOK, response{Users: results})
}
