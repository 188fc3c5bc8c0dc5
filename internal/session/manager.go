// Package session owns the single conversation an operator has open: its
// message list, its load status, and the fetch/mark-read/send side effects of
// moving between conversations. One Manager exists per operator session and is
// handed in wherever it is needed; nothing here is process-global.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"support-console-backend/internal/chat"
	"support-console-backend/internal/transport"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ErrNotReady reports a send attempted while the selected conversation's
// history is still loading or failed to load.
var ErrNotReady = errors.New("session: selected conversation not ready")

// Snapshot is a consistent copy of the session state, safe to hand to
// renderers and websocket pushes.
type Snapshot struct {
	Selected *chat.Conversation
	Messages []chat.Message
	Status   Status
	Err      error
}

type Manager struct {
	client     transport.Client
	operatorID string

	mu            sync.Mutex
	selected      *chat.Conversation
	messages      []chat.Message
	status        Status
	lastErr       error
	generation    uint64
	readInFlight  map[string]bool
	composeTarget string
	onChange      func(Snapshot)
}

func New(client transport.Client, operatorID string) *Manager {
	return &Manager{
		client:       client,
		operatorID:   operatorID,
		status:       StatusIdle,
		readInFlight: make(map[string]bool),
	}
}

// SetOnChange registers a listener invoked after every state transition with a
// fresh snapshot. The listener runs outside the manager's lock.
func (m *Manager) SetOnChange(fn func(Snapshot)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// SetComposeTarget addresses the counterpart of an implicitly created thread
// ("player:<id>", "affiliate:<id>", or empty for a guest thread).
func (m *Manager) SetComposeTarget(target string) {
	m.mu.Lock()
	m.composeTarget = strings.TrimSpace(target)
	m.mu.Unlock()
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Select opens a conversation: the session transitions to Loading before any
// I/O, the full history is fetched, and on success a mark-read is issued in
// the background. Selecting nil clears back to Idle. Re-selecting the
// conversation that is already open (loading or ready) issues no new fetch.
//
// Responses are applied last-writer-wins by selection identity: every select
// bumps a generation counter, and a fetch that completes after the operator
// has moved on is discarded rather than applied. That rule is what keeps a
// slow response for an abandoned conversation from overwriting the messages
// of the one now open.
func (m *Manager) Select(ctx context.Context, conv *chat.Conversation) error {
	if conv == nil {
		m.mu.Lock()
		m.generation++
		m.clearLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
		return nil
	}

	m.mu.Lock()
	if m.selected != nil && m.selected.ID == conv.ID &&
		(m.status == StatusLoading || m.status == StatusReady) {
		m.mu.Unlock()
		return nil
	}
	gen := m.beginLoadLocked(*conv)
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	return m.fetch(ctx, *conv, gen)
}

// Retry re-runs the history fetch for the selection that previously failed.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.status != StatusError || m.selected == nil {
		m.mu.Unlock()
		return nil
	}
	conv := *m.selected
	gen := m.beginLoadLocked(conv)
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	return m.fetch(ctx, conv, gen)
}

func (m *Manager) beginLoadLocked(conv chat.Conversation) uint64 {
	m.generation++
	m.selected = &conv
	m.messages = nil
	m.status = StatusLoading
	m.lastErr = nil
	return m.generation
}

func (m *Manager) fetch(ctx context.Context, conv chat.Conversation, gen uint64) error {
	start := time.Now()
	messages, err := m.client.FetchMessages(ctx, conv.ID)
	observeFetch(time.Since(start))

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		incStale()
		return nil
	}

	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			// The conversation disappeared server-side; drop the selection.
			m.clearLocked()
			snap := m.snapshotLocked()
			m.mu.Unlock()
			m.notify(snap)
			return err
		}
		m.status = StatusError
		m.messages = nil
		m.lastErr = err
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
		return err
	}

	m.messages = messages
	m.status = StatusReady
	m.lastErr = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	m.MarkRead(conv)
	return nil
}

// SendMessage delivers operator content to the selected conversation. With no
// selection it first creates a thread addressed at the compose target and
// adopts it. The message is appended only once the server echoes it back;
// there is no optimistic local copy, so ids and ordering always come from the
// server. On failure nothing is mutated and the caller keeps the content for
// a retry.
func (m *Manager) SendMessage(ctx context.Context, content, attachmentURL string) (chat.Message, error) {
	if strings.TrimSpace(content) == "" && attachmentURL == "" {
		return chat.Message{}, &chat.ValidationError{Field: "content", Reason: "empty without attachment"}
	}

	m.mu.Lock()
	selected := m.selected
	status := m.status
	target := m.composeTarget
	m.mu.Unlock()

	if selected == nil {
		return m.sendToNewThread(ctx, content, attachmentURL, target)
	}
	if status != StatusReady {
		return chat.Message{}, ErrNotReady
	}

	msg, err := m.client.SendMessage(ctx, transport.SendParams{
		ConversationID: selected.ID,
		SenderID:       m.operatorID,
		SenderType:     chat.SenderOperator,
		Content:        content,
		AttachmentURL:  attachmentURL,
	})
	if err != nil {
		return chat.Message{}, err
	}

	m.mu.Lock()
	if m.selected != nil && m.selected.ID == msg.ConversationID && m.status == StatusReady {
		m.messages = append(m.messages, msg)
		m.selected.LastMessage = &chat.Preview{
			Body:          msg.Content,
			At:            msg.CreatedAt,
			HasAttachment: msg.AttachmentURL != "",
		}
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	return msg, nil
}

func (m *Manager) sendToNewThread(ctx context.Context, content, attachmentURL, target string) (chat.Message, error) {
	created, err := m.client.CreateConversation(ctx, transport.CreateParams{
		InitialContent:      content,
		AttachmentURL:       attachmentURL,
		TargetParticipantID: target,
	})
	if err != nil {
		return chat.Message{}, err
	}

	m.mu.Lock()
	m.generation++
	conv := created.Conversation
	m.selected = &conv
	m.messages = []chat.Message{created.Message}
	m.status = StatusReady
	m.lastErr = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	return created.Message, nil
}

// MarkRead asks the server to clear the conversation's unread flag. It is
// fire-and-forget for the caller: failures are logged, never surfaced, and the
// local unread flag flips only after the server acknowledges. A second call
// while one is still in flight for the same conversation is a no-op.
func (m *Manager) MarkRead(conv chat.Conversation) {
	m.mu.Lock()
	if m.readInFlight[conv.ID] {
		m.mu.Unlock()
		return
	}
	m.readInFlight[conv.ID] = true
	m.mu.Unlock()

	go func() {
		err := m.client.MarkRead(context.Background(), conv.ID, chat.SenderOperator)

		m.mu.Lock()
		delete(m.readInFlight, conv.ID)
		if err != nil {
			m.mu.Unlock()
			log.Printf("session %s: mark read %s: %v", m.operatorID, conv.ID, err)
			return
		}
		if m.selected != nil && m.selected.ID == conv.ID {
			m.selected.Unread = false
		}
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
	}()
}

func (m *Manager) clearLocked() {
	m.selected = nil
	m.messages = nil
	m.status = StatusIdle
	m.lastErr = nil
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status: m.status,
		Err:    m.lastErr,
	}
	if m.selected != nil {
		conv := *m.selected
		snap.Selected = &conv
	}
	if len(m.messages) > 0 {
		snap.Messages = make([]chat.Message, len(m.messages))
		copy(snap.Messages, m.messages)
	}
	return snap
}

func (m *Manager) notify(snap Snapshot) {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
