package query

// Subscription is one consumer's interest in one cache entry.  The consumer
// owns it and must Close it; the entry is retained for the engine's grace
// period after its last subscription closes.
//
// Updates is conflating: it holds at most one pending snapshot, and a newer
// snapshot replaces an unread older one.  A slow reader always sees the
// latest state, not every intermediate one.
type Subscription struct {
	engine *Engine
	ent    *entry
	ch     chan Snapshot

	// guarded by engine.mu
	last   Snapshot
	closed bool
}

func (s *Subscription) Key() Key {
	return s.ent.key
}

// Updates delivers snapshots after the one Current returned at subscription
// time.  It is closed by Close or by the engine's Dispose.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Current is the entry's present state, or the last state delivered if the
// subscription has been closed.
func (s *Subscription) Current() Snapshot {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	if s.closed {
		return s.last
	}
	return s.ent.snapshot()
}

// Refetch forces a fetch of the entry, sharing one already in flight.
func (s *Subscription) Refetch() error {
	return s.engine.refetch(s)
}

// Close releases the subscription.  It is safe to call more than once.
func (s *Subscription) Close() {
	s.engine.unsubscribe(s)
}

// deliverLocked replaces any unread snapshot with snap.  Only the engine
// sends, and only under its lock, so the loop terminates.
func (s *Subscription) deliverLocked(snap Snapshot) {
	s.last = snap
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *Subscription) detachLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
