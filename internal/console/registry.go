package console

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"support-console-backend/internal/dto"
	"support-console-backend/internal/model"
	"support-console-backend/internal/transport"
)

// Identity is the operator identity the auth layer resolved upstream. The
// console trusts it and does not re-check access itself.
type Identity struct {
	OperatorID  string
	Email       string
	Role        string
	AffiliateID string
}

// TokenStore holds the operator's current bearer token for outgoing platform
// calls. Each request refreshes it, so long-lived sessions keep working across
// token rotations.
type TokenStore struct {
	mu    sync.Mutex
	token string
}

func (t *TokenStore) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

func (t *TokenStore) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

// ClientFactory builds the transport for one operator session.
type ClientFactory func(tokens *TokenStore) transport.Client

// PushFunc delivers a session view to the operator's live connection.
type PushFunc func(operatorID string, view dto.SessionView)

type Registry struct {
	factory ClientFactory
	push    PushFunc

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session *Session
	tokens  *TokenStore
}

func NewRegistry(factory ClientFactory, push PushFunc) *Registry {
	return &Registry{
		factory:  factory,
		push:     push,
		sessions: make(map[string]*entry),
	}
}

// GetOrCreate returns the operator's session, creating it on first use. The
// bearer token is refreshed on every call.
func (r *Registry) GetOrCreate(identity Identity, token string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[identity.OperatorID]; ok {
		e.tokens.Set(token)
		return e.session
	}

	tokens := &TokenStore{}
	tokens.Set(token)

	scope := transport.Scope{}
	if identity.Role == model.RoleAffiliate {
		scope.AffiliateID = identity.AffiliateID
	}

	sess := NewSession(r.factory(tokens), identity.OperatorID, scope)
	if r.push != nil {
		operatorID := identity.OperatorID
		sess.SetOnChange(func(view dto.SessionView) {
			r.push(operatorID, view)
		})
	}

	r.sessions[identity.OperatorID] = &entry{session: sess, tokens: tokens}
	activeSessions.Set(float64(len(r.sessions)))
	return sess
}

// Drop removes an operator's session, e.g. on logout.
func (r *Registry) Drop(operatorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, operatorID)
	activeSessions.Set(float64(len(r.sessions)))
}

var activeSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "console_active_sessions",
		Help: "Operator sessions currently held by the console registry.",
	},
)

func init() {
	prometheus.MustRegister(activeSessions)
}
