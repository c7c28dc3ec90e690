package artifact

import (
	"testing"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

func member(b byte) ids.MemberId {
	var m ids.MemberId
	m[0] = b
	return m
}

func newTestIndex(t *testing.T, owner ids.MemberId) *Index {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewIndex(owner, store, nil, nil)
}

func TestShareThenOwnerAlwaysHasAccess(t *testing.T) {
	owner := member(1)
	ix := newTestIndex(t, owner)

	id, err := ix.Share([]byte("hello"), "note.txt", "text/plain", 1000, nil)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if !ix.HasAccess(owner, id, 1000) {
		t.Fatalf("expected owner to always have access")
	}
}

func TestRevocableRecallRemovesAccessButNotOwnerCopy(t *testing.T) {
	owner, grantee := member(1), member(2)
	ix := newTestIndex(t, owner)

	id, err := ix.Share([]byte("hello"), "note.txt", "text/plain", 1000, nil)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if err := ix.Grant(id, grantee, ModeRevocable, nil, 1000, nil, nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !ix.HasAccess(grantee, id, 1001) {
		t.Fatalf("expected grantee to have access before recall")
	}

	notes, err := ix.Recall(id)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(notes) != 1 || notes[0].Grantee != grantee {
		t.Fatalf("expected one recall notification for grantee, got %v", notes)
	}
	if ix.HasAccess(grantee, id, 1002) {
		t.Fatalf("expected grantee access revoked after recall")
	}
	entry, _ := ix.get(id)
	if entry.Status != StatusRecalled {
		t.Fatalf("expected Recalled status, got %v", entry.Status)
	}
}

func TestPermanentGrantSurvivesRecall(t *testing.T) {
	owner, grantee := member(1), member(2)
	ix := newTestIndex(t, owner)

	parent, err := ix.Share([]byte("root"), "root", "text/plain", 1000, nil)
	if err != nil {
		t.Fatalf("Share parent: %v", err)
	}
	child, err := ix.Share([]byte("child"), "child", "text/plain", 1000, &parent)
	if err != nil {
		t.Fatalf("Share child: %v", err)
	}
	if err := ix.Grant(child, grantee, ModePermanent, nil, 1000, nil, nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if _, err := ix.Recall(parent); err != nil {
		t.Fatalf("Recall: %v", err)
	}

	entry, _ := ix.get(child)
	if entry.Status != StatusRecalled {
		t.Fatalf("expected descendant recalled, got %v", entry.Status)
	}
	if _, ok := entry.GrantFor(grantee); !ok {
		t.Fatalf("expected permanent grant to survive recall")
	}
	// Permanent grants are legally irrevocable but an artifact marked
	// Recalled is never Active, so HasAccess still reports false: the
	// grant survives in the index bookkeeping, not as live access.
	if ix.HasAccess(grantee, child, 2000) {
		t.Fatalf("expected recalled artifact to deny access despite surviving permanent grant")
	}
}

func TestTimedGrantExpiry(t *testing.T) {
	owner, grantee := member(1), member(2)
	ix := newTestIndex(t, owner)

	id, err := ix.Share([]byte("hello"), "note.txt", "text/plain", 1000, nil)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	expiry := int64(1060)
	if err := ix.Grant(id, grantee, ModeTimed, &expiry, 1000, nil, nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if !ix.HasAccess(grantee, id, 1030) {
		t.Fatalf("expected access before expiry")
	}
	if ix.HasAccess(grantee, id, 1061) {
		t.Fatalf("expected access denied after expiry")
	}

	notes, err := ix.GCExpired(1120)
	if err != nil {
		t.Fatalf("GCExpired: %v", err)
	}
	if len(notes) != 1 || notes[0].Grantee != grantee {
		t.Fatalf("expected gc_expired notification, got %v", notes)
	}
	entry, _ := ix.get(id)
	if _, ok := entry.GrantFor(grantee); ok {
		t.Fatalf("expected expired grant removed by gc_expired")
	}
}

func TestAttachChildRejectsCycle(t *testing.T) {
	owner := member(1)
	ix := newTestIndex(t, owner)

	a, _ := ix.Share([]byte("a"), "a", "text/plain", 1000, nil)
	b, err := ix.Share([]byte("b"), "b", "text/plain", 1000, &a)
	if err != nil {
		t.Fatalf("Share b under a: %v", err)
	}

	if err := ix.AttachChild(b, a); err == nil || !errs.OfKind(err, errs.KindInvariant) {
		t.Fatalf("expected InvalidOperation attaching ancestor as child, got %v", err)
	}
	if err := ix.AttachChild(a, a); err == nil {
		t.Fatalf("expected InvalidOperation attaching artifact to itself")
	}
}

func TestRevokePermanentGrantFails(t *testing.T) {
	owner, grantee := member(1), member(2)
	ix := newTestIndex(t, owner)

	id, _ := ix.Share([]byte("hello"), "note.txt", "text/plain", 1000, nil)
	if err := ix.Grant(id, grantee, ModePermanent, nil, 1000, nil, nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := ix.Revoke(id, grantee); !errs.OfKind(err, errs.KindPermission) {
		t.Fatalf("expected PermanentGrant error, got %v", err)
	}
}

func TestTransferCreatesMirrorWithRevocableGrantBack(t *testing.T) {
	owner, newOwner := member(1), member(2)
	ix := newTestIndex(t, owner)

	id, _ := ix.Share([]byte("hello"), "note.txt", "text/plain", 1000, nil)
	mirror, err := ix.Transfer(id, newOwner, 2000)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if mirror.Status != StatusActive {
		t.Fatalf("expected mirror entry to be Active")
	}
	if g, ok := mirror.GrantFor(owner); !ok || g.Mode != ModeRevocable {
		t.Fatalf("expected Revocable grant back to original owner, got %v ok=%v", g, ok)
	}
	entry, _ := ix.get(id)
	if entry.Status != StatusTransferred {
		t.Fatalf("expected original entry marked Transferred")
	}

	if _, err := ix.Transfer(id, owner, 2001); !errs.OfKind(err, errs.KindPermission) {
		t.Fatalf("expected AlreadySelf-style permission error transferring to self, got %v", err)
	}
}
