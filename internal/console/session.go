// Package console wires one session.Manager, one listsync.Synchronizer and
// one unread.Counter together per signed-in operator, and applies the
// cross-component rules: which conversation stays selected when the list
// changes, and which actions invalidate list freshness.
package console

import (
	"context"
	"errors"
	"fmt"
	"log"

	"support-console-backend/internal/chat"
	"support-console-backend/internal/dto"
	"support-console-backend/internal/listsync"
	"support-console-backend/internal/session"
	"support-console-backend/internal/transport"
	"support-console-backend/internal/unread"
)

type Session struct {
	OperatorID string

	manager *session.Manager
	lists   *listsync.Synchronizer
	counter *unread.Counter
}

func NewSession(client transport.Client, operatorID string, scope transport.Scope) *Session {
	return &Session{
		OperatorID: operatorID,
		manager:    session.New(client, operatorID),
		lists:      listsync.New(client),
		counter:    unread.New(client, scope),
	}
}

// SetOnChange forwards manager state transitions as renderable views.
func (s *Session) SetOnChange(fn func(dto.SessionView)) {
	s.manager.SetOnChange(func(snap session.Snapshot) {
		fn(s.view(snap))
	})
}

// SwitchChannel points the list at (channel, searchTerm) and reconciles the
// selection against the new list: kept by id when still present, otherwise
// the first conversation, otherwise cleared.
func (s *Session) SwitchChannel(ctx context.Context, channel chat.Channel, searchTerm string) (dto.SessionView, error) {
	list, err := s.lists.SetQuery(ctx, channel, searchTerm)
	if err != nil {
		return s.View(), err
	}
	return s.reconcileSelection(ctx, list)
}

// Search re-queries the current channel with a new term.
func (s *Session) Search(ctx context.Context, searchTerm string) (dto.SessionView, error) {
	channel, _ := s.lists.Query()
	return s.SwitchChannel(ctx, channel, searchTerm)
}

// SelectConversation opens a conversation from the current list. A selection
// that turns out to be deleted server-side clears back to no selection and
// triggers a list refresh.
func (s *Session) SelectConversation(ctx context.Context, conversationID string) (dto.SessionView, error) {
	var target *chat.Conversation
	for _, conv := range s.lists.Conversations() {
		if conv.ID == conversationID {
			c := conv
			target = &c
			break
		}
	}
	if target == nil {
		return s.View(), fmt.Errorf("conversation %s is not in the current list: %w", conversationID, transport.ErrNotFound)
	}

	if err := s.manager.Select(ctx, target); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			if list, refreshErr := s.lists.Refresh(ctx); refreshErr == nil {
				return s.reconcileSelection(ctx, list)
			}
		}
		return s.View(), err
	}
	return s.View(), nil
}

// Send delivers operator content to the open conversation, or bootstraps a
// new thread at target when nothing is selected. A successful send
// invalidates the list (the preview changed), so it is refreshed.
func (s *Session) Send(ctx context.Context, content, attachmentURL, target string) (chat.Message, error) {
	s.manager.SetComposeTarget(target)
	msg, err := s.manager.SendMessage(ctx, content, attachmentURL)
	if err != nil {
		return chat.Message{}, err
	}
	if _, err := s.lists.Refresh(ctx); err != nil {
		// The send itself succeeded; a stale list self-heals on the next
		// refresh trigger.
		log.Printf("console %s: list refresh after send: %v", s.OperatorID, err)
	}
	return msg, nil
}

// ClearSelection drops the open conversation without touching the list.
func (s *Session) ClearSelection(ctx context.Context) (dto.SessionView, error) {
	if err := s.manager.Select(ctx, nil); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

// Retry re-runs the failed history fetch for the current selection.
func (s *Session) Retry(ctx context.Context) (dto.SessionView, error) {
	if err := s.manager.Retry(ctx); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

// Counts fetches fresh per-channel unread totals.
func (s *Session) Counts(ctx context.Context) (transport.UnreadCounts, error) {
	return s.counter.Counts(ctx)
}

func (s *Session) View() dto.SessionView {
	return s.view(s.manager.Snapshot())
}

func (s *Session) reconcileSelection(ctx context.Context, list []chat.Conversation) (dto.SessionView, error) {
	next := listsync.Reconcile(list, s.manager.Snapshot().Selected)
	if err := s.manager.Select(ctx, next); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

func (s *Session) view(snap session.Snapshot) dto.SessionView {
	channel, term := s.lists.Query()
	view := dto.SessionView{
		Status:     snap.Status.String(),
		Channel:    string(channel),
		SearchTerm: term,
		Messages:   make([]dto.MessageRecord, 0, len(snap.Messages)),
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
	}
	if snap.Selected != nil {
		record := toConversationRecord(*snap.Selected)
		view.Selected = &record
	}
	for _, msg := range snap.Messages {
		view.Messages = append(view.Messages, toMessageRecord(msg))
	}
	for _, conv := range s.lists.Conversations() {
		view.Conversations = append(view.Conversations, toConversationRecord(conv))
	}
	return view
}
