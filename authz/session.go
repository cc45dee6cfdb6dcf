package authz

import "sync"

// Session owns the single active AccountContext for one caller session
// together with the stored access level/role pair. The context is
// replaced wholesale on scope switch and cleared on logout; subscribers
// are notified on every replacement so components holding derived
// permissions re-evaluate instead of polling.
type Session struct {
	mu         sync.Mutex
	current    *AccountContext
	stored     AccessLevel
	storedRole AccountRole
	subs       map[int]func(*AccountContext)
	nextSub    int
}

// NewSession creates a session for a caller authenticated with the given
// stored access level and role, not yet scoped to an account.
func NewSession(stored AccessLevel, storedRole AccountRole) *Session {
	return &Session{
		stored:     stored,
		storedRole: storedRole,
		subs:       make(map[int]func(*AccountContext)),
	}
}

// Replace installs a new account context and notifies subscribers.
func (s *Session) Replace(acct AccountContext) {
	s.mu.Lock()
	cp := acct
	s.current = &cp
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(&cp)
	}
}

// Clear drops the account context, as on logout, and notifies
// subscribers with a nil context.
func (s *Session) Clear() {
	s.mu.Lock()
	s.current = nil
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

// Current returns a copy of the active account context, or nil when the
// caller is not scoped to an account.
func (s *Session) Current() *AccountContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Subscribe registers a callback invoked on every context replacement or
// clear. The returned function cancels the subscription.
func (s *Session) Subscribe(fn func(*AccountContext)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Capabilities resolves the caller's effective capability set against
// the current context.
func (s *Session) Capabilities() CapabilitySet {
	s.mu.Lock()
	acct := s.current
	stored, storedRole := s.stored, s.storedRole
	s.mu.Unlock()
	return Resolve(acct, stored, storedRole)
}

// snapshotSubs must be called with s.mu held.
func (s *Session) snapshotSubs() []func(*AccountContext) {
	out := make([]func(*AccountContext), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
