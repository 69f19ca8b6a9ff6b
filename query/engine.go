/*
Package query is a declarative data-fetching cache.

Endpoints are registered once in a Registry.  An Engine keys cache entries
by endpoint name and serialized arguments, shares one in-flight request per
key, and hands subscribers snapshots of the entry as it moves through
loading, success and error.  Successful mutations invalidate entries by tag;
invalidated entries keep their data visible while they re-fetch.
*/
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/dep"
	"github.com/ts4z/fanvest/transport"
	"github.com/ts4z/fanvest/varz"
)

const (
	DefaultRetainFor = 60 * time.Second
	DefaultMaxIdle   = 256
)

var ErrDisposed = errors.New("query engine disposed")

var (
	cacheHits          = varz.NewInt("cacheHits")
	cacheMisses        = varz.NewInt("cacheMisses")
	fetchesStarted     = varz.NewInt("fetchesStarted")
	fetchesJoined      = varz.NewInt("fetchesJoined")
	fetchErrors        = varz.NewInt("fetchErrors")
	fetchesDiscarded   = varz.NewInt("fetchesDiscarded")
	invalidations      = varz.NewInt("invalidations")
	entriesInvalidated = varz.NewInt("entriesInvalidated")
	evictions          = varz.NewInt("evictions")
	mutations          = varz.NewInt("mutations")
	mutationFailures   = varz.NewInt("mutationFailures")
)

type EngineConfig struct {
	// Clock drives retention timers and entry timestamps.  Defaults to the
	// real clock.
	Clock clockwork.Clock

	// RetainFor is how long an entry with no subscribers stays cached.
	RetainFor time.Duration

	// MaxIdle bounds the number of unsubscribed entries kept around; the
	// least recently released is evicted first.
	MaxIdle int
}

// Key identifies a cache entry.
type Key struct {
	Endpoint string
	Args     string
}

func (k Key) String() string {
	return k.Endpoint + "(" + k.Args + ")"
}

func makeKey(name string, args any) (Key, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return Key{}, fmt.Errorf("can't serialize %s arguments: %w", name, err)
	}
	return Key{Endpoint: name, Args: string(b)}, nil
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Snapshot is an immutable view of an entry at one moment.  During a
// re-fetch Status is loading and Data still holds the last good value; after
// a failed re-fetch Err is set and Data is still the last good value.
type Snapshot struct {
	Key         Key
	Status      Status
	Data        any
	Err         error
	UpdatedAt   time.Time
	Stale       bool
	Subscribers int
	Tags        []Tag
}

type entry struct {
	key  Key
	ep   *Endpoint
	args any

	status    Status
	data      any
	err       error
	updatedAt time.Time
	tags      []Tag

	// gen counts invalidations.  A fetch that started at an older gen can't
	// clear stale.
	gen      uint64
	stale    bool
	inflight bool

	subs      map[*Subscription]struct{}
	idleTimer clockwork.Timer
	idleSeq   uint64
}

func (ent *entry) snapshot() Snapshot {
	return Snapshot{
		Key:         ent.key,
		Status:      ent.status,
		Data:        ent.data,
		Err:         ent.err,
		UpdatedAt:   ent.updatedAt,
		Stale:       ent.stale,
		Subscribers: len(ent.subs),
		Tags:        append([]Tag(nil), ent.tags...),
	}
}

// Engine is the cache.  Every operation on it is one atomic step under mu;
// network calls happen outside the lock and their completions are applied
// under it.
type Engine struct {
	reg       *Registry
	transport transport.Transport
	clock     clockwork.Clock
	retainFor time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	entries  map[Key]*entry
	idle     *lru.Cache[Key, struct{}]
	quiet    bool // suppresses idle-eviction callbacks we caused ourselves
	disposed bool
}

// NewEngine builds an engine on reg and seals it.
func NewEngine(reg *Registry, tr transport.Transport, cf *EngineConfig) *Engine {
	if cf == nil {
		cf = &EngineConfig{}
	}
	e := &Engine{
		reg:       dep.Required(reg),
		transport: dep.Required(tr),
		clock:     cf.Clock,
		retainFor: cf.RetainFor,
		entries:   make(map[Key]*entry),
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.retainFor <= 0 {
		e.retainFor = DefaultRetainFor
	}
	maxIdle := cf.MaxIdle
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	idle, err := lru.NewWithEvict[Key, struct{}](maxIdle, e.onIdleEvicted)
	if err != nil {
		log.Fatalf("can't create idle entry cache: %v", err)
	}
	e.idle = idle
	e.ctx, e.cancel = context.WithCancel(context.Background())
	reg.seal()
	return e
}

// Subscribe registers interest in the entry for (name, args).  If the entry
// is missing, stale or failed a fetch is started, unless one is already in
// flight.
// The returned subscription's Current is the state at subscription time;
// later changes arrive on Updates.
func (e *Engine) Subscribe(name string, args any) (*Subscription, error) {
	ep, err := e.reg.lookupKind(name, KindQuery)
	if err != nil {
		return nil, err
	}
	key, err := makeKey(name, args)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil, ErrDisposed
	}

	ent, ok := e.entries[key]
	if ok {
		cacheHits.Add(1)
	} else {
		cacheMisses.Add(1)
		ent = e.newEntryLocked(key, ep, args)
	}
	e.markBusyLocked(ent)

	// A failed entry is only kept for the subscribers that saw it fail; a
	// new subscriber gets another try.
	if (ent.stale || ent.status == StatusError) && !ent.inflight {
		e.startFetchLocked(ent)
	}

	sub := &Subscription{
		engine: e,
		ent:    ent,
		ch:     make(chan Snapshot, 1),
	}
	ent.subs[sub] = struct{}{}
	sub.last = ent.snapshot()
	return sub, nil
}

// Peek reads an entry without subscribing.  ok is false if nothing is cached.
func (e *Engine) Peek(name string, args any) (Snapshot, bool) {
	key, err := makeKey(name, args)
	if err != nil {
		return Snapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return ent.snapshot(), true
}

// Len is the number of cached entries, subscribed or not.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Invalidate marks every entry providing a covered tag as stale.  Entries
// with subscribers re-fetch now; the rest re-fetch on their next Subscribe.
// It returns the number of entries marked.
func (e *Engine) Invalidate(tags ...Tag) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return 0, ErrDisposed
	}
	return e.invalidateLocked(tags), nil
}

// Mutate performs a mutation.  Mutations are never cached or shared: every
// call is a request.  On success the endpoint's invalidation tags are
// applied before Mutate returns; on failure nothing is invalidated.
func (e *Engine) Mutate(ctx context.Context, name string, args any) (any, error) {
	ep, err := e.reg.lookupKind(name, KindMutation)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return nil, ErrDisposed
	}

	mutations.Add(1)
	result, err := e.run(ctx, ep, args)
	if err != nil {
		mutationFailures.Add(1)
		log.WithFields(log.Fields{"endpoint": name, "error": err}).Debug("query: mutation failed")
		return nil, err
	}

	tags := ep.Tags.Evaluate(args, result, nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return result, nil
	}
	n := e.invalidateLocked(tags)
	log.WithFields(log.Fields{"endpoint": name, "tags": joinTags(tags), "entries": n}).Debug("query: mutation invalidated")
	return result, nil
}

// Dispose cancels in-flight fetches, stops retention timers, closes every
// subscription and drops all entries.  Later calls fail with ErrDisposed.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.disposed = true
	e.cancel()
	for _, ent := range e.entries {
		if ent.idleTimer != nil {
			ent.idleTimer.Stop()
		}
		for sub := range ent.subs {
			sub.detachLocked()
		}
		ent.subs = nil
	}
	e.entries = make(map[Key]*entry)
	e.quiet = true
	e.idle.Purge()
	e.quiet = false
}

func (e *Engine) newEntryLocked(key Key, ep *Endpoint, args any) *entry {
	ent := &entry{
		key:   key,
		ep:    ep,
		args:  args,
		stale: true,
		subs:  make(map[*Subscription]struct{}),
	}
	if !ep.Tags.NeedsResult() {
		ent.tags = ep.Tags.Evaluate(args, nil, nil)
	}
	e.entries[key] = ent
	return ent
}

func (e *Engine) invalidateLocked(tags []Tag) int {
	if len(tags) == 0 {
		return 0
	}
	invalidations.Add(1)
	n := 0
	for _, ent := range e.entries {
		if !intersects(tags, ent.tags) {
			continue
		}
		n++
		ent.gen++
		ent.stale = true
		if len(ent.subs) > 0 {
			e.startFetchLocked(ent)
		}
	}
	entriesInvalidated.Add(int64(n))
	return n
}

// startFetchLocked begins a fetch unless one is already in flight for the
// entry, in which case the caller shares it.
func (e *Engine) startFetchLocked(ent *entry) {
	if ent.inflight {
		fetchesJoined.Add(1)
		return
	}
	fetchesStarted.Add(1)
	ent.inflight = true
	ent.status = StatusLoading
	e.broadcastLocked(ent)
	go e.fetch(ent, ent.gen)
}

func (e *Engine) fetch(ent *entry, gen uint64) {
	result, err := e.run(e.ctx, ent.ep, ent.args)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.completeLocked(ent, gen, result, err)
}

func (e *Engine) run(ctx context.Context, ep *Endpoint, args any) (any, error) {
	req, err := ep.Build(args)
	if err != nil {
		return nil, fmt.Errorf("can't build %s request: %w", ep.Name, err)
	}
	resp, err := e.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return ep.Decode(resp.Body)
}

func (e *Engine) completeLocked(ent *entry, gen uint64, result any, err error) {
	ent.inflight = false
	if e.disposed || e.entries[ent.key] != ent {
		fetchesDiscarded.Add(1)
		log.Printf("query: discarding result for evicted entry %v", ent.key)
		return
	}

	ent.updatedAt = e.clock.Now()
	if err != nil {
		fetchErrors.Add(1)
		ent.status = StatusError
		ent.err = err
		log.WithFields(log.Fields{"key": ent.key.String(), "error": err}).Warn("query: fetch failed")
	} else {
		ent.status = StatusSuccess
		ent.data = result
		ent.err = nil
	}
	if ent.ep.Tags.NeedsResult() {
		ent.tags = ent.ep.Tags.Evaluate(ent.args, result, err)
	}
	if gen == ent.gen {
		ent.stale = false
	}

	// Invalidated while we were fetching: what we got may predate the
	// mutation, so go again rather than report it as current.
	if ent.stale && len(ent.subs) > 0 {
		e.startFetchLocked(ent)
		return
	}
	e.broadcastLocked(ent)
}

func (e *Engine) broadcastLocked(ent *entry) {
	if len(ent.subs) == 0 {
		return
	}
	snap := ent.snapshot()
	for sub := range ent.subs {
		sub.deliverLocked(snap)
	}
}

// markBusyLocked takes an entry out of retention.
func (e *Engine) markBusyLocked(ent *entry) {
	if ent.idleTimer != nil {
		ent.idleTimer.Stop()
		ent.idleTimer = nil
	}
	ent.idleSeq++
	e.quiet = true
	e.idle.Remove(ent.key)
	e.quiet = false
}

// retainLocked starts the grace period for an entry that just lost its last
// subscriber.
func (e *Engine) retainLocked(ent *entry) {
	ent.idleSeq++
	seq := ent.idleSeq
	if ent.idleTimer != nil {
		ent.idleTimer.Stop()
	}
	ent.idleTimer = e.clock.AfterFunc(e.retainFor, func() { e.expire(ent, seq) })
	e.idle.Add(ent.key, struct{}{})
}

func (e *Engine) expire(ent *entry, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || e.entries[ent.key] != ent || ent.idleSeq != seq || len(ent.subs) > 0 {
		return
	}
	if ent.inflight {
		// Let the fetch land so a later subscriber can use it.
		e.retainLocked(ent)
		return
	}
	e.quiet = true
	e.idle.Remove(ent.key)
	e.quiet = false
	e.dropLocked(ent)
}

// onIdleEvicted runs when the idle LRU overflows.  It is only ever called
// from inside an engine method, so mu is already held.
func (e *Engine) onIdleEvicted(key Key, _ struct{}) {
	if e.quiet {
		return
	}
	if ent, ok := e.entries[key]; ok && len(ent.subs) == 0 {
		e.dropLocked(ent)
	}
}

func (e *Engine) dropLocked(ent *entry) {
	if ent.idleTimer != nil {
		ent.idleTimer.Stop()
		ent.idleTimer = nil
	}
	delete(e.entries, ent.key)
	evictions.Add(1)
	log.WithField("key", ent.key.String()).Debug("query: evicted")
}

func (e *Engine) unsubscribe(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sub.closed {
		return
	}
	sub.detachLocked()
	ent := sub.ent
	delete(ent.subs, sub)
	if len(ent.subs) == 0 && !e.disposed && e.entries[ent.key] == ent {
		e.retainLocked(ent)
	}
}

func (e *Engine) refetch(sub *Subscription) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	if sub.closed {
		return fmt.Errorf("refetch on closed subscription to %v", sub.ent.key)
	}
	e.startFetchLocked(sub.ent)
	return nil
}
