package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// notifyTimeout bounds the detached notification attempt.
const notifyTimeout = 10 * time.Second

// sendMessage persists a direct message and fires a best-effort
// notification to the receiver off the critical path. Notification
// failures are swallowed; the send never waits on them.
func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ToUserID       int64  `json:"to_user_id" validate:"required"`
		Body           string `json:"body" validate:"required"`
		MessageType    string `json:"message_type" validate:"omitempty,oneof=text image file system"`
		ReplyToID      *int64 `json:"reply_to_id"`
		AttachmentURL  string `json:"attachment_url"`
		AttachmentName string `json:"attachment_name"`
		AttachmentSize int64  `json:"attachment_size"`
	}

	sender, ok := a.requireUser(w, r)
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

	receiver, err := a.Users.GetUser(r.Context(), body.ToUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.fail(w, ErrUnknownRecipient, "")
			return
		}
		a.respondError(w, http.StatusInternalServerError, err, "Could not send message")
		return
	}

	msgType := MessageType(body.MessageType)
	if msgType == "" {
		msgType = MessageText
	}

	msg, err := a.Messages.InsertMessage(r.Context(), Message{
		SenderID:       sender.ID,
		ReceiverID:     receiver.ID,
		Body:           body.Body,
		Type:           msgType,
		AttachmentURL:  body.AttachmentURL,
		AttachmentName: body.AttachmentName,
		AttachmentSize: body.AttachmentSize,
		ReplyToID:      body.ReplyToID,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		a.fail(w, err, "Could not send message")
		return
	}

	if a.Notifier != nil {
		subject := fmt.Sprintf("New message from %s", sender.Name)
		text := fmt.Sprintf("You have a new message:\n\n%s\n\nLog in to reply.", msg.Body)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if !a.Notifier.Notify(ctx, receiver.Email, subject, text) {
				a.Logger.Info("Notification not delivered", "receiver_id", receiver.ID)
			}
		}()
	}

	a.respond(w, http.StatusCreated, msg)
}

// getThread returns the non-deleted messages between the caller and a
// partner in creation order. Unlike getConversation it has no side
// effects.
func (a *API) getThread(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []Message `json:"messages"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	partnerID, err := pathID(r, "partnerID")
	if err != nil {
		a.fail(w, fmt.Errorf("partner: %w", ErrNotFound), "")
		return
	}

	msgs, err := a.Messages.ListThread(r.Context(), user.ID, partnerID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load thread")
		return
	}

	a.respond(w, http.StatusOK, response{Messages: msgs})
}

// getConversation returns the thread and, atomically with the read,
// marks every unread message addressed to the caller from this partner
// as read. Viewing is the read receipt; there is no separate ack.
func (a *API) getConversation(w http.ResponseWriter, r *http.Request) {
	type response struct {
		PartnerID   int64     `json:"partner_id"`
		PartnerName string    `json:"partner_name"`
		Messages    []Message `json:"messages"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	partnerID, err := pathID(r, "partnerID")
	if err != nil {
		a.fail(w, fmt.Errorf("partner: %w", ErrNotFound), "")
		return
	}

	partner, err := a.Users.GetUser(r.Context(), partnerID)
	if err != nil {
		a.fail(w, err, "Could not load conversation")
		return
	}

	msgs, err := a.Messages.ReadConversation(r.Context(), user.ID, partnerID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load conversation")
		return
	}

	a.respond(w, http.StatusOK, response{
		PartnerID:   partner.ID,
		PartnerName: partner.Name,
		Messages:    msgs,
	})
}

// listConversations groups the caller's messages by counterpart,
// keeping the most recent message and an unread count per counterpart.
func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Conversations []ConversationSummary `json:"conversations"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	summaries, err := a.Messages.ListConversations(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list conversations")
		return
	}

	ids := make([]int64, len(summaries))
	for i, s := range summaries {
		ids[i] = s.PartnerID
	}
	partners, err := a.Users.GetUsers(r.Context(), ids)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list conversations")
		return
	}
	for i := range summaries {
		p := partners[summaries[i].PartnerID]
		summaries[i].PartnerName = p.Name
		summaries[i].PartnerRole = p.Role
	}

	a.respond(w, http.StatusOK, response{Conversations: summaries})
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	type response struct {
		UnreadCount int `json:"unread_count"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	n, err := a.Messages.CountUnread(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not count unread messages")
		return
	}

	a.respond(w, http.StatusOK, response{UnreadCount: n})
}

// markMessageRead flags one message addressed to the caller as read.
// Idempotent: re-reading an already-read message is a no-op.
func (a *API) markMessageRead(w http.ResponseWriter, r *http.Request) {
	type response struct {
		OK bool `json:"ok"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	messageID, err := pathID(r, "messageID")
	if err != nil {
		a.fail(w, fmt.Errorf("message: %w", ErrNotFound), "")
		return
	}

	if err := a.Messages.MarkMessageRead(r.Context(), messageID, user.ID); err != nil {
		a.fail(w, err, "Could not mark message read")
		return
	}

	a.respond(w, http.StatusOK, response{OK: true})
}

// deleteMessage soft-deletes a message the caller sent. The row stays;
// future thread and conversation reads skip it.
func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	type response struct {
		OK bool `json:"ok"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	messageID, err := pathID(r, "messageID")
	if err != nil {
		a.fail(w, fmt.Errorf("message: %w", ErrNotFound), "")
		return
	}

	if err := a.Messages.SoftDeleteMessage(r.Context(), messageID, user.ID); err != nil {
		a.fail(w, err, "Could not delete message")
		return
	}

	a.respond(w, http.StatusOK, response{OK: true})
}
