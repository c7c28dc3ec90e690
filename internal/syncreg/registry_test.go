package syncreg

import (
	"context"
	"sync"
	"testing"

	"github.com/indranet/indra/internal/artifact"
	"github.com/indranet/indra/internal/ids"
)

func member(b byte) ids.MemberId {
	var m ids.MemberId
	m[0] = b
	return m
}

func TestReconcileCreatesAndTearsDownSessions(t *testing.T) {
	reg := NewRegistry(nil)
	ctx := context.Background()

	var mu sync.Mutex
	started := map[Pair]bool{}
	start := func(sctx context.Context, s Session) {
		mu.Lock()
		started[s.Pair] = true
		mu.Unlock()
		<-sctx.Done()
	}

	var art artifact.ID
	art.Value[0] = 1
	p1 := Pair{Artifact: art, Peer: member(1)}
	p2 := Pair{Artifact: art, Peer: member(2)}

	created, torn := reg.Reconcile(ctx, map[Pair]struct{}{p1: {}, p2: {}}, start)
	if len(created) != 2 || len(torn) != 0 {
		t.Fatalf("expected 2 created, 0 torn, got %v %v", created, torn)
	}
	if len(reg.Sessions()) != 2 {
		t.Fatalf("expected 2 live sessions")
	}

	created, torn = reg.Reconcile(ctx, map[Pair]struct{}{p1: {}}, start)
	if len(created) != 0 || len(torn) != 1 || torn[0] != p2 {
		t.Fatalf("expected p2 torn down, got created=%v torn=%v", created, torn)
	}
	if len(reg.Sessions()) != 1 {
		t.Fatalf("expected 1 live session after reconcile, got %d", len(reg.Sessions()))
	}
}

func TestTargetFromIndexExcludesOwnerAndExpired(t *testing.T) {
	owner, peer, expired := member(1), member(2), member(3)
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ix := artifact.NewIndex(owner, store, nil, nil)

	id, err := ix.Share([]byte("hi"), "n", "text/plain", 1000, nil)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if err := ix.Grant(id, peer, artifact.ModeRevocable, nil, 1000, nil, nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	exp := int64(1010)
	if err := ix.Grant(id, expired, artifact.ModeTimed, &exp, 1000, nil, nil); err != nil {
		t.Fatalf("Grant timed: %v", err)
	}

	target := TargetFromIndex(ix, 2000)
	if _, ok := target[Pair{Artifact: id, Peer: owner}]; ok {
		t.Fatalf("expected owner excluded from sync target")
	}
	if _, ok := target[Pair{Artifact: id, Peer: peer}]; !ok {
		t.Fatalf("expected active grantee in sync target")
	}
	if _, ok := target[Pair{Artifact: id, Peer: expired}]; ok {
		t.Fatalf("expected expired grantee excluded from sync target")
	}
}
