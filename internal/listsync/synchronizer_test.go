package listsync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"support-console-backend/internal/chat"
	"support-console-backend/internal/transport"
)

type listCall struct {
	channel chat.Channel
	term    string
}

type fakeClient struct {
	transport.Client

	mu    sync.Mutex
	lists map[chat.Channel][]chat.Conversation
	calls []listCall
	err   error
}

func (f *fakeClient) ListConversations(ctx context.Context, channel chat.Channel, searchTerm string) ([]chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, listCall{channel: channel, term: searchTerm})
	if f.err != nil {
		return nil, f.err
	}
	return f.lists[channel], nil
}

func conv(id string) chat.Conversation {
	return chat.Conversation{ID: id, Channel: chat.ChannelPlayer}
}

func TestSetQueryRejectsInvalidChannel(t *testing.T) {
	s := New(&fakeClient{})
	_, err := s.SetQuery(context.Background(), chat.Channel("tenant"), "")
	var cerr *chat.ChannelError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *chat.ChannelError", err)
	}
}

func TestSwitchingChannelKeepsSearchTerm(t *testing.T) {
	f := &fakeClient{lists: map[chat.Channel][]chat.Conversation{
		chat.ChannelPlayer: {conv("p1")},
		chat.ChannelGuest:  {conv("g1")},
	}}
	s := New(f)

	if _, err := s.SetQuery(context.Background(), chat.ChannelPlayer, "smith"); err != nil {
		t.Fatalf("set query: %v", err)
	}
	if _, err := s.SetQuery(context.Background(), chat.ChannelGuest, "smith"); err != nil {
		t.Fatalf("switch channel: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) != 2 {
		t.Fatalf("list calls = %d, want 2", len(f.calls))
	}
	second := f.calls[1]
	if second.channel != chat.ChannelGuest || second.term != "smith" {
		t.Fatalf("second call = %+v, want guest channel with same term", second)
	}
}

func TestRefreshPreservesServerOrder(t *testing.T) {
	f := &fakeClient{lists: map[chat.Channel][]chat.Conversation{
		chat.ChannelPlayer: {conv("z"), conv("a"), conv("m")},
	}}
	s := New(f)

	list, err := s.SetQuery(context.Background(), chat.ChannelPlayer, "")
	if err != nil {
		t.Fatalf("set query: %v", err)
	}
	want := []string{"z", "a", "m"}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("list[%d] = %s, want %s (server order must be preserved)", i, list[i].ID, id)
		}
	}
}

func TestRefreshFailureKeepsPreviousList(t *testing.T) {
	f := &fakeClient{lists: map[chat.Channel][]chat.Conversation{
		chat.ChannelPlayer: {conv("p1")},
	}}
	s := New(f)
	if _, err := s.SetQuery(context.Background(), chat.ChannelPlayer, ""); err != nil {
		t.Fatalf("set query: %v", err)
	}

	f.mu.Lock()
	f.err = &transport.Error{Op: "list conversations", Err: errors.New("boom")}
	f.mu.Unlock()

	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := s.Conversations(); len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("previous list lost on failed refresh: %+v", got)
	}
}

func TestReconcile(t *testing.T) {
	list := []chat.Conversation{conv("a"), conv("b")}

	// Previous selection still present: identity wins over position, and the
	// fresh record is returned.
	prev := conv("b")
	prev.Unread = true
	if got := Reconcile(list, &prev); got == nil || got.ID != "b" || got.Unread {
		t.Fatalf("reconcile kept = %+v, want fresh record for b", got)
	}

	// Previous selection absent: fall back to the first conversation.
	gone := conv("zz")
	if got := Reconcile(list, &gone); got == nil || got.ID != "a" {
		t.Fatalf("reconcile fallback = %+v, want a", got)
	}

	// Empty list: no selection.
	if got := Reconcile(nil, &gone); got != nil {
		t.Fatalf("reconcile on empty list = %+v, want nil", got)
	}

	// No previous selection: first conversation.
	if got := Reconcile(list, nil); got == nil || got.ID != "a" {
		t.Fatalf("reconcile with no selection = %+v, want a", got)
	}
}
