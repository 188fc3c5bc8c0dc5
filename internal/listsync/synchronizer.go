// Package listsync produces the conversation list for the channel and search
// term the operator currently has open. It is pull-based: the console calls
// SetQuery when either input changes and Refresh when a send or mark-read
// elsewhere invalidates freshness. Whether the far side of the transport polls
// or pushes is not this package's concern.
package listsync

import (
	"context"
	"sync"

	"support-console-backend/internal/chat"
	"support-console-backend/internal/transport"
)

type Synchronizer struct {
	client transport.Client

	mu            sync.Mutex
	channel       chat.Channel
	searchTerm    string
	conversations []chat.Conversation
}

func New(client transport.Client) *Synchronizer {
	return &Synchronizer{client: client}
}

// SetQuery switches the list to (channel, searchTerm) and fetches it. The
// server's ordering is preserved as-is; no client-side re-sort happens here
// or anywhere downstream.
func (s *Synchronizer) SetQuery(ctx context.Context, channel chat.Channel, searchTerm string) ([]chat.Conversation, error) {
	if _, err := chat.ParseChannel(string(channel)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.channel = channel
	s.searchTerm = searchTerm
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Refresh re-fetches the list for the current query. On failure the previous
// list is kept so the picker does not blank out on a transient error.
func (s *Synchronizer) Refresh(ctx context.Context) ([]chat.Conversation, error) {
	s.mu.Lock()
	channel := s.channel
	term := s.searchTerm
	s.mu.Unlock()

	if channel == "" {
		return nil, &chat.ChannelError{Value: ""}
	}

	list, err := s.client.ListConversations(ctx, channel, term)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conversations = list
	s.mu.Unlock()

	return s.snapshot(), nil
}

func (s *Synchronizer) Query() (chat.Channel, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel, s.searchTerm
}

func (s *Synchronizer) Conversations() []chat.Conversation {
	return s.snapshot()
}

func (s *Synchronizer) snapshot() []chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Reconcile decides which conversation stays selected after the list changed.
// Selection is keyed by id, not list position: when the previous selection is
// still present its fresh record is returned, otherwise the first conversation
// of the new list, otherwise nil.
func Reconcile(list []chat.Conversation, selected *chat.Conversation) *chat.Conversation {
	if selected != nil {
		for i := range list {
			if list[i].ID == selected.ID {
				conv := list[i]
				return &conv
			}
		}
	}
	if len(list) > 0 {
		conv := list[0]
		return &conv
	}
	return nil
}
