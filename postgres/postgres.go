// Package postgres persists the engine's state in PostgreSQL. It
// implements every store contract in the api package; invariants that
// must hold under concurrent writers (pair uniqueness, one reaction
// per post and user) are enforced inside transactions with a unique
// index as the constraint backstop.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/globridge/social-engine/api"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database, pings it to ensure the connection
// is working, and applies the schema.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	pg := &Postgres{
		bun: bun.NewDB(sqlDB, pgdialect.New()),
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// Close closes the underlying database handle.
func (pg *Postgres) Close() error {
	return pg.bun.Close()
}

// isUniqueViolation reports whether err is a Postgres unique-index
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

// InsertUser inserts a user. The email unique index turns duplicate
// registrations into api.ErrEmailTaken.
func (pg *Postgres) InsertUser(ctx context.Context, u api.User) (api.User, error) {
	m := &user{
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if _, err := pg.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return api.User{}, api.ErrEmailTaken
		}
		return api.User{}, fmt.Errorf("insert user: %w", err)
	}
	return m.APIUser(), nil
}

// GetUser returns one user by id.
func (pg *Postgres) GetUser(ctx context.Context, id int64) (api.User, error) {
	var m user
	err := pg.bun.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.User{}, api.ErrNotFound
		}
		return api.User{}, fmt.Errorf("get user: %w", err)
	}
	return m.APIUser(), nil
}

// GetUsers returns the users for the given ids, keyed by id. Missing
// ids are simply absent from the map.
func (pg *Postgres) GetUsers(ctx context.Context, ids []int64) (map[int64]api.User, error) {
	out := make(map[int64]api.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var ms []user
	err := pg.bun.NewSelect().Model(&ms).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, m := range ms {
		out[m.ID] = m.APIUser()
	}
	return out, nil
}

// SearchUsers returns users other than the viewer matching the query
// and role filters.
func (pg *Postgres) SearchUsers(ctx context.Context, viewerID int64, q string, role api.UserRole, limit int) ([]api.User, error) {
	var ms []user
	sel := pg.bun.NewSelect().
		Model(&ms).
		Where("id != ?", viewerID).
		Order("id ASC").
		Limit(limit)
	if q != "" {
		like := "%" + q + "%"
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.WhereOr("name ILIKE ?", like).WhereOr("email ILIKE ?", like)
		})
	}
	if role != "" {
		sel = sel.Where("role = ?", string(role))
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out := make([]api.User, len(ms))
	for i, m := range ms {
		out[i] = m.APIUser()
	}
	return out, nil
}

// InsertConnection creates a pending request. The check and the insert
// share one transaction; the (LEAST, GREATEST) unique index catches
// the race where both sides request simultaneously.
func (pg *Postgres) InsertConnection(ctx context.Context, requesterID, receiverID int64) (api.Connection, error) {
	var m connection
	err := pg.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var existing connection
		err := tx.NewSelect().
			Model(&existing).
			Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
				requesterID, receiverID, receiverID, requesterID).
			Scan(ctx)
		switch {
		case err == nil:
			return duplicateRequestError(existing, requesterID)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check pair: %w", err)
		}

		m = connection{
			RequesterID: requesterID,
			ReceiverID:  receiverID,
			Status:      string(api.ConnectionPending),
		}
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return api.Connection{}, api.ErrDuplicateRequest
		}
		return api.Connection{}, err
	}
	return m.APIConnection(), nil
}

// duplicateRequestError describes which way the existing row blocks a
// new request.
func duplicateRequestError(existing connection, requesterID int64) error {
	switch api.ConnectionStatus(existing.Status) {
	case api.ConnectionAccepted:
		return fmt.Errorf("already connected: %w", api.ErrDuplicateRequest)
	case api.ConnectionBlocked:
		return fmt.Errorf("connection not available: %w", api.ErrDuplicateRequest)
	default:
		if existing.RequesterID == requesterID {
			return fmt.Errorf("connection request already sent: %w", api.ErrDuplicateRequest)
		}
		return fmt.Errorf("connection request already received: %w", api.ErrDuplicateRequest)
	}
}

// GetConnection returns one connection by id.
func (pg *Postgres) GetConnection(ctx context.Context, id int64) (api.Connection, error) {
	var m connection
	err := pg.bun.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Connection{}, fmt.Errorf("connection: %w", api.ErrNotFound)
		}
		return api.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return m.APIConnection(), nil
}

// GetConnectionBetween returns the single row touching the unordered
// pair, in either direction.
func (pg *Postgres) GetConnectionBetween(ctx context.Context, userA, userB int64) (api.Connection, error) {
	var m connection
	err := pg.bun.NewSelect().
		Model(&m).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Connection{}, api.ErrNotFound
		}
		return api.Connection{}, fmt.Errorf("get connection between: %w", err)
	}
	return m.APIConnection(), nil
}

// SetConnectionStatus updates the lifecycle state and bumps updated_at.
func (pg *Postgres) SetConnectionStatus(ctx context.Context, id int64, status api.ConnectionStatus) (api.Connection, error) {
	res, err := pg.bun.NewUpdate().
		Model((*connection)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return api.Connection{}, fmt.Errorf("update connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return api.Connection{}, fmt.Errorf("connection: %w", api.ErrNotFound)
	}
	return pg.GetConnection(ctx, id)
}

// DeleteConnection removes the row, freeing the pair for a future
// request.
func (pg *Postgres) DeleteConnection(ctx context.Context, id int64) error {
	if _, err := pg.bun.NewDelete().Model((*connection)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

// ListConnections returns all rows touching the user, newest first,
// optionally filtered by status.
func (pg *Postgres) ListConnections(ctx context.Context, userID int64, status api.ConnectionStatus) ([]api.Connection, error) {
	var ms []connection
	sel := pg.bun.NewSelect().
		Model(&ms).
		Where("requester_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC", "id DESC")
	if status != "" {
		sel = sel.Where("status = ?", string(status))
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]api.Connection, len(ms))
	for i, m := range ms {
		out[i] = m.APIConnection()
	}
	return out, nil
}

// CountAcceptedConnections returns the accepted rows where the user is
// receiver (followers) and requester (following).
func (pg *Postgres) CountAcceptedConnections(ctx context.Context, userID int64) (followers, following int, err error) {
	followers, err = pg.bun.NewSelect().
		Model((*connection)(nil)).
		Where("receiver_id = ? AND status = ?", userID, string(api.ConnectionAccepted)).
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count followers: %w", err)
	}
	following, err = pg.bun.NewSelect().
		Model((*connection)(nil)).
		Where("requester_id = ? AND status = ?", userID, string(api.ConnectionAccepted)).
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count following: %w", err)
	}
	return followers, following, nil
}
