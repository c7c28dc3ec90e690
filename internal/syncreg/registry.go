// Package syncreg implements the spec.md §4.5 artifact sync registry: a
// reconciler that drives one live sync session per (artifact, peer) pair
// currently holding an active, non-expired grant, tearing sessions down
// as soon as they fall out of that effective set.
package syncreg

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/indranet/indra/internal/artifact"
	"github.com/indranet/indra/internal/ids"
)

// Pair identifies one (artifact, peer) sync target.
type Pair struct {
	Artifact artifact.ID
	Peer     ids.MemberId
}

// Session is a live per-(artifact, peer) sync subscription. Cancel stops
// the session cooperatively, per spec.md §5's cancellation-token model.
type Session struct {
	ID     uuid.UUID
	Pair   Pair
	cancel context.CancelFunc
}

// Registry tracks the currently-live set of Sessions and reconciles it
// against a target set computed from the artifact index's effective
// grants (spec.md I6).
type Registry struct {
	mu       sync.Mutex
	sessions map[Pair]*Session
	log      *logrus.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{sessions: make(map[Pair]*Session), log: log}
}

// Sessions returns a snapshot of every currently-live session.
func (r *Registry) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

// Reconcile computes the delta between the live session set and target,
// tearing down sessions no longer wanted and creating sessions for newly
// eligible pairs. start is invoked (with the session's own cancellable
// context) for every newly created session; it should drive the §4.2
// document-sync protocol for that pair until ctx is cancelled.
func (r *Registry) Reconcile(ctx context.Context, target map[Pair]struct{}, start func(ctx context.Context, s Session)) (created, torn []Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for pair, sess := range r.sessions {
		if _, want := target[pair]; !want {
			sess.cancel()
			delete(r.sessions, pair)
			torn = append(torn, pair)
			r.log.WithFields(logrus.Fields{"peer": sess.Pair.Peer, "op": "reconcile"}).Info("sync session torn down")
		}
	}

	for pair := range target {
		if _, exists := r.sessions[pair]; exists {
			continue
		}
		sctx, cancel := context.WithCancel(ctx)
		sess := &Session{ID: uuid.New(), Pair: pair, cancel: cancel}
		r.sessions[pair] = sess
		created = append(created, pair)
		r.log.WithFields(logrus.Fields{"peer": pair.Peer, "session": sess.ID, "op": "reconcile"}).Info("sync session created")
		if start != nil {
			go start(sctx, *sess)
		}
	}
	return created, torn
}

// TargetFromIndex derives the effective (artifact, peer) target set an
// owner's index implies, per spec.md I6: a session exists iff the
// artifact is Active and the peer holds an active, non-expired grant.
func TargetFromIndex(ix *artifact.Index, now int64) map[Pair]struct{} {
	target := make(map[Pair]struct{})
	for id, entry := range ix.Entries() {
		if entry.Status != artifact.StatusActive {
			continue
		}
		for _, g := range entry.Grants {
			if g.Member == ix.Owner {
				continue
			}
			if g.Grant.Valid(now) {
				target[Pair{Artifact: id, Peer: g.Member}] = struct{}{}
			}
		}
	}
	return target
}

// Stop cancels every live session and clears the registry, used by the
// node facade's stop() sequence.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pair, sess := range r.sessions {
		sess.cancel()
		delete(r.sessions, pair)
	}
}
