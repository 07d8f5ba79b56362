package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/globridge/social-engine/api"
	"github.com/uptrace/bun"
)

// InsertMessage inserts a direct message. A reply reference must point
// at an existing message between the same pair; anything else is
// rejected before the insert, in the same transaction.
func (pg *Postgres) InsertMessage(ctx context.Context, msg api.Message) (api.Message, error) {
	m := message{
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Body:           msg.Body,
		MessageType:    string(msg.Type),
		AttachmentURL:  msg.AttachmentURL,
		AttachmentName: msg.AttachmentName,
		AttachmentSize: msg.AttachmentSize,
		ReplyToID:      msg.ReplyToID,
		CreatedAt:      msg.CreatedAt,
	}
	err := pg.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if msg.ReplyToID != nil {
			var ref message
			err := tx.NewSelect().Model(&ref).Where("id = ?", *msg.ReplyToID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("reply target: %w", api.ErrInvalidParent)
			}
			if err != nil {
				return fmt.Errorf("check reply target: %w", err)
			}
			samePair := (ref.SenderID == msg.SenderID && ref.ReceiverID == msg.ReceiverID) ||
				(ref.SenderID == msg.ReceiverID && ref.ReceiverID == msg.SenderID)
			if !samePair {
				return fmt.Errorf("reply target outside conversation: %w", api.ErrInvalidParent)
			}
		}
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return api.Message{}, err
	}
	return m.APIMessage(), nil
}

// ListThread returns the non-deleted messages between the pair in
// creation order, ties broken by id.
func (pg *Postgres) ListThread(ctx context.Context, userID, partnerID int64) ([]api.Message, error) {
	var ms []message
	err := pg.bun.NewSelect().
		Model(&ms).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID).
		Where("NOT is_deleted").
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	out := make([]api.Message, len(ms))
	for i, m := range ms {
		out[i] = m.APIMessage()
	}
	return out, nil
}

// ReadConversation returns the thread and flips every unread message
// addressed to userID from partnerID to read. The update and the read
// share one transaction: all qualifying messages flip or none do.
func (pg *Postgres) ReadConversation(ctx context.Context, userID, partnerID int64) ([]api.Message, error) {
	var ms []message
	err := pg.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*message)(nil)).
			Set("is_read = TRUE").
			Set("read_at = now()").
			Where("receiver_id = ? AND sender_id = ?", userID, partnerID).
			Where("NOT is_read").
			Where("NOT is_deleted").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark conversation read: %w", err)
		}
		err = tx.NewSelect().
			Model(&ms).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, partnerID, partnerID, userID).
			Where("NOT is_deleted").
			Order("created_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("list conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]api.Message, len(ms))
	for i, m := range ms {
		out[i] = m.APIMessage()
	}
	return out, nil
}

// ListConversations groups the user's non-deleted messages by
// counterpart, keeping the latest message and an unread count each,
// most recent conversation first.
func (pg *Postgres) ListConversations(ctx context.Context, userID int64) ([]api.ConversationSummary, error) {
	type lastRow struct {
		PartnerID int64     `bun:"partner_id"`
		ID        int64     `bun:"id"`
		Body      string    `bun:"body"`
		CreatedAt time.Time `bun:"created_at"`
	}
	var last []lastRow
	err := pg.bun.NewRaw(
		`SELECT DISTINCT ON (partner_id) partner_id, id, body, created_at
		 FROM (
			SELECT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner_id,
			       body, created_at, id
			FROM messages
			WHERE (sender_id = ? OR receiver_id = ?) AND NOT is_deleted
		 ) t
		 ORDER BY partner_id, created_at DESC, id DESC`,
		userID, userID, userID,
	).Scan(ctx, &last)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	type unreadRow struct {
		SenderID int64 `bun:"sender_id"`
		Count    int   `bun:"count"`
	}
	var unread []unreadRow
	err = pg.bun.NewRaw(
		`SELECT sender_id, count(*) AS count
		 FROM messages
		 WHERE receiver_id = ? AND NOT is_read AND NOT is_deleted
		 GROUP BY sender_id`,
		userID,
	).Scan(ctx, &unread)
	if err != nil {
		return nil, fmt.Errorf("count unread per sender: %w", err)
	}
	unreadBySender := make(map[int64]int, len(unread))
	for _, u := range unread {
		unreadBySender[u.SenderID] = u.Count
	}

	// Most recent conversation first, equal timestamps broken by the
	// last message's id.
	sort.Slice(last, func(i, j int) bool {
		if !last[i].CreatedAt.Equal(last[j].CreatedAt) {
			return last[i].CreatedAt.After(last[j].CreatedAt)
		}
		return last[i].ID > last[j].ID
	})

	out := make([]api.ConversationSummary, len(last))
	for i, l := range last {
		out[i] = api.ConversationSummary{
			PartnerID:   l.PartnerID,
			LastMessage: l.Body,
			LastTime:    l.CreatedAt,
			UnreadCount: unreadBySender[l.PartnerID],
		}
	}
	return out, nil
}

// CountUnread counts messages addressed to the user that are unread
// and not deleted.
func (pg *Postgres) CountUnread(ctx context.Context, userID int64) (int, error) {
	n, err := pg.bun.NewSelect().
		Model((*message)(nil)).
		Where("receiver_id = ? AND NOT is_read AND NOT is_deleted", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkMessageRead flags one message addressed to receiverID as read.
// Already-read messages are a no-op.
func (pg *Postgres) MarkMessageRead(ctx context.Context, id, receiverID int64) error {
	var m message
	err := pg.bun.NewSelect().
		Model(&m).
		Where("id = ? AND receiver_id = ?", id, receiverID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("message: %w", api.ErrNotFound)
		}
		return fmt.Errorf("get message: %w", err)
	}
	if m.IsRead {
		return nil
	}
	_, err = pg.bun.NewUpdate().
		Model((*message)(nil)).
		Set("is_read = TRUE").
		Set("read_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// SoftDeleteMessage flags a message the sender owns as deleted. The
// row is never removed.
func (pg *Postgres) SoftDeleteMessage(ctx context.Context, id, senderID int64) error {
	res, err := pg.bun.NewUpdate().
		Model((*message)(nil)).
		Set("is_deleted = TRUE").
		Where("id = ? AND sender_id = ?", id, senderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message: %w", api.ErrNotFound)
	}
	return nil
}
