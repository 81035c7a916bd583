package session

import (
	"sync"
	"time"
)

// Store keeps active calls in memory with per-conversation locking.
// Mutation for one conversation is serialized through Do, so redelivered
// or out-of-order webhooks for the same call never race; distinct calls
// proceed without contention beyond the brief index lookup.
type Store struct {
	mu    sync.Mutex
	calls map[string]*slot
}

type slot struct {
	mu   sync.Mutex
	call *Call
}

func NewStore() *Store {
	return &Store{calls: make(map[string]*slot)}
}

// Do runs fn with exclusive access to the conversation's call, creating
// the session if it does not exist (an unknown conversation on a speech
// event is an implicit create). callerNumber is only used on create.
func (s *Store) Do(conversationID, callerNumber string, now time.Time, fn func(*Call) error) error {
	s.mu.Lock()
	sl, ok := s.calls[conversationID]
	if !ok {
		sl = &slot{call: newCall(conversationID, callerNumber, now)}
		s.calls[conversationID] = sl
	}
	s.mu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.call)
}

// Get returns a point-in-time copy of a call, if present.
func (s *Store) Get(conversationID string) (Call, bool) {
	s.mu.Lock()
	sl, ok := s.calls[conversationID]
	s.mu.Unlock()
	if !ok {
		return Call{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return *sl.call, true
}

// Remove drops a conversation from the store.
func (s *Store) Remove(conversationID string) {
	s.mu.Lock()
	delete(s.calls, conversationID)
	s.mu.Unlock()
}

// Active returns copies of every non-ended call, for the ops API.
func (s *Store) Active() []Call {
	s.mu.Lock()
	slots := make([]*slot, 0, len(s.calls))
	for _, sl := range s.calls {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	var out []Call
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.call.Active() {
			out = append(out, *sl.call)
		}
		sl.mu.Unlock()
	}
	return out
}

// EvictIdle removes calls idle longer than timeout, ended tombstones
// included, and returns copies of the removed sessions that have not yet
// been flushed to customer memory. The store never writes call state;
// ending an evicted call is the caller's job.
func (s *Store) EvictIdle(now time.Time, timeout time.Duration) []Call {
	s.mu.Lock()
	type keyed struct {
		id string
		sl *slot
	}
	slots := make([]keyed, 0, len(s.calls))
	for id, sl := range s.calls {
		slots = append(slots, keyed{id: id, sl: sl})
	}
	s.mu.Unlock()

	var evicted []Call
	for _, k := range slots {
		k.sl.mu.Lock()
		call := k.sl.call
		if now.Sub(call.LastActivityAt) >= timeout {
			if !call.Flushed {
				evicted = append(evicted, *call)
			}
			s.Remove(k.id)
		}
		k.sl.mu.Unlock()
	}
	return evicted
}
