// Index implements spec.md §4.4: the owner's home-realm ArtifactIndex
// document is the sole authority on status, grants, and tree links; the
// blob store (store.go) never makes access decisions.
package artifact

import (
	"github.com/sirupsen/logrus"

	"github.com/indranet/indra/internal/crdt"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// Reseal re-wraps an artifact's raw symmetric key to a grantee's KEM
// public key. It is an injected boundary (parallel to keystore.KEM) since
// this package never touches the concrete post-quantum primitive.
type Reseal func(rawKey []byte, recipientKEMPublicKey []byte) ([]byte, error)

// Notification is emitted by operations that must tell a remote grantee
// their access changed (spec.md §4.4 grant/recall/gc_expired). The node
// facade is responsible for turning these into realm.Content messages.
type Notification struct {
	Artifact ID
	Grantee  ids.MemberId
	Recalled bool
}

// Index is the owner's ArtifactIndex document plus the operations that
// mutate it.
type Index struct {
	Owner ids.MemberId

	doc   *crdt.Document[ID, Entry]
	store *Store
	rekey Reseal
	log   *logrus.Logger
}

// NewIndex builds an empty index for owner. rekey may be nil, in which
// case grants are recorded without a per-grantee sealed key (suitable for
// tests and for artifacts with no symmetric key at all).
func NewIndex(owner ids.MemberId, store *Store, rekey Reseal, log *logrus.Logger) *Index {
	if log == nil {
		log = logrus.New()
	}
	return &Index{
		Owner: owner,
		doc:   crdt.NewDocument[ID, Entry](crdt.LWW[ID, Entry](), nil),
		store: store,
		rekey: rekey,
		log:   log,
	}
}

// Document exposes the underlying CRDT document for sync/broadcast.
func (ix *Index) Document() *crdt.Document[ID, Entry] { return ix.doc }

func (ix *Index) get(id ID) (Entry, bool) { return ix.doc.Get(id) }

func (ix *Index) put(id ID, e Entry) error {
	_, err := ix.doc.Update(ix.Owner, id, func(Entry, bool) Entry { return e })
	return err
}

// Share puts data into the blob store and creates an Entry for it, with a
// reflexive Permanent self-grant recording the owner's own access,
// optionally linked under parent (table: share | bytes, name, mime, mode).
func (ix *Index) Share(data []byte, name, mime string, now int64, parent *ID) (ID, error) {
	id, size, err := ix.store.Put(data)
	if err != nil {
		return ID{}, err
	}

	entry := Entry{
		ID:        id,
		Name:      name,
		MimeType:  mime,
		Size:      size,
		CreatedAt: now,
		Status:    StatusActive,
		Provenance: Provenance{
			Kind:           ProvenanceOriginal,
			OriginalAuthor: ix.Owner,
			Timestamp:      now,
		},
	}
	entry = entry.withGrant(ix.Owner, Grant{Mode: ModePermanent, GrantedAt: now, GrantedBy: ix.Owner})

	if parent != nil {
		if _, ok := ix.get(*parent); !ok {
			return ID{}, errs.New("artifact.Share", errs.InvalidOperation, nil)
		}
		entry.Parent = *parent
		entry.HasParent = true
	}

	if err := ix.put(id, entry); err != nil {
		return ID{}, err
	}
	ix.log.WithFields(logrus.Fields{"artifact": id, "name": name}).Info("artifact shared")
	return id, nil
}

// Grant adds grantee's access record, sealing the artifact's symmetric key
// to their KEM public key if a Reseal function and raw key were supplied.
func (ix *Index) Grant(id ID, grantee ids.MemberId, mode Mode, expiry *int64, now int64, rawKey, grantKEMPublic []byte) error {
	entry, ok := ix.get(id)
	if !ok {
		return errs.New("artifact.Grant", errs.ArtifactNotFound, nil)
	}
	if entry.Status != StatusActive {
		return errs.New("artifact.Grant", errs.InvalidOperation, nil)
	}
	if mode == ModeTransfer {
		return errs.New("artifact.Grant", errs.InvalidMode, nil)
	}
	if mode == ModeTimed && expiry == nil {
		return errs.New("artifact.Grant", errs.InvalidMode, nil)
	}
	if _, already := entry.GrantFor(grantee); already {
		return errs.New("artifact.Grant", errs.AlreadyGranted, nil)
	}

	g := Grant{Mode: mode, GrantedAt: now, GrantedBy: ix.Owner}
	if expiry != nil {
		g.Expiry = *expiry
		g.HasExpiry = true
	}
	if ix.rekey != nil && rawKey != nil {
		sealed, err := ix.rekey(rawKey, grantKEMPublic)
		if err != nil {
			return errs.New("artifact.Grant", errs.Crypto, err)
		}
		g.SealedKey = sealed
	}

	entry = entry.withGrant(grantee, g)
	return ix.put(id, entry)
}

// Revoke removes grantee's access iff it is Revocable or Timed.
func (ix *Index) Revoke(id ID, grantee ids.MemberId) error {
	entry, ok := ix.get(id)
	if !ok {
		return errs.New("artifact.Revoke", errs.ArtifactNotFound, nil)
	}
	g, ok := entry.GrantFor(grantee)
	if !ok {
		return errs.New("artifact.Revoke", errs.NotGranted, nil)
	}
	if g.Mode == ModePermanent {
		return errs.New("artifact.Revoke", errs.PermanentGrant, nil)
	}
	return ix.put(id, entry.withoutGrant(grantee))
}

// Transfer marks id Transferred and returns the mirror Entry the caller
// must install into newOwner's own index: a fresh Entry owned by
// newOwner carrying a Revocable grant back to this node, with provenance
// Received. Cross-index installation is the node facade's job (it is
// delivered via a realm.Content message), since this Index only has
// authority over its own owner's document.
func (ix *Index) Transfer(id ID, newOwner ids.MemberId, now int64) (Entry, error) {
	if newOwner == ix.Owner {
		return Entry{}, errs.New("artifact.Transfer", errs.AlreadySelf, nil)
	}
	entry, ok := ix.get(id)
	if !ok {
		return Entry{}, errs.New("artifact.Transfer", errs.ArtifactNotFound, nil)
	}

	transferred := entry
	transferred.Status = StatusTransferred
	if err := ix.put(id, transferred); err != nil {
		return Entry{}, err
	}

	mirror := Entry{
		ID:        id,
		Name:      entry.Name,
		MimeType:  entry.MimeType,
		Size:      entry.Size,
		CreatedAt: now,
		Status:    StatusActive,
		Provenance: Provenance{
			Kind:           ProvenanceReceived,
			OriginalAuthor: entry.Provenance.OriginalAuthor,
			Timestamp:      now,
		},
	}
	mirror = mirror.withGrant(newOwner, Grant{Mode: ModePermanent, GrantedAt: now, GrantedBy: newOwner})
	mirror = mirror.withGrant(ix.Owner, Grant{Mode: ModeRevocable, GrantedAt: now, GrantedBy: newOwner})
	return mirror, nil
}

// descendants returns every entry whose parent chain passes through id,
// computed by BFS over the local index (cycle-safe: I1 guarantees the
// parent graph is acyclic, so this always terminates).
func (ix *Index) descendants(id ID) []ID {
	all := ix.doc.Read()
	var out []ID
	frontier := []ID{id}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for candID, e := range all {
			if e.HasParent && e.Parent == cur {
				out = append(out, candID)
				frontier = append(frontier, candID)
			}
		}
	}
	return out
}

// Recall marks id Recalled, strips its non-permanent grants, and cascades
// to every descendant, returning notifications for every grantee whose
// access actually changed.
func (ix *Index) Recall(id ID) ([]Notification, error) {
	entry, ok := ix.get(id)
	if !ok {
		return nil, errs.New("artifact.Recall", errs.ArtifactNotFound, nil)
	}

	var notes []Notification
	recallOne := func(e Entry) error {
		for _, g := range e.Grants {
			if g.Grant.Mode != ModePermanent {
				notes = append(notes, Notification{Artifact: e.ID, Grantee: g.Member, Recalled: true})
			}
		}
		e.Status = StatusRecalled
		e = e.withoutNonPermanentGrants()
		return ix.put(e.ID, e)
	}

	if err := recallOne(entry); err != nil {
		return nil, err
	}
	for _, descID := range ix.descendants(id) {
		desc, ok := ix.get(descID)
		if !ok {
			continue
		}
		if err := recallOne(desc); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// isDescendant reports whether candidate is a descendant of ancestor,
// walking candidate's own parent chain.
func (ix *Index) isDescendant(ancestor, candidate ID) bool {
	cur := candidate
	for {
		e, ok := ix.get(cur)
		if !ok || !e.HasParent {
			return false
		}
		if e.Parent == ancestor {
			return true
		}
		cur = e.Parent
	}
}

// AttachChild sets child.parent = parent, refusing any operation that
// would create a cycle (spec.md §8 property 7).
func (ix *Index) AttachChild(parent, child ID) error {
	if parent == child {
		return errs.New("artifact.AttachChild", errs.InvalidOperation, nil)
	}
	if ix.isDescendant(child, parent) {
		return errs.New("artifact.AttachChild", errs.InvalidOperation, nil)
	}
	childEntry, ok := ix.get(child)
	if !ok {
		return errs.New("artifact.AttachChild", errs.ArtifactNotFound, nil)
	}
	if _, ok := ix.get(parent); !ok {
		return errs.New("artifact.AttachChild", errs.ArtifactNotFound, nil)
	}
	childEntry.Parent = parent
	childEntry.HasParent = true
	return ix.put(child, childEntry)
}

// DetachChild clears child.parent iff it currently points to parent.
func (ix *Index) DetachChild(parent, child ID) error {
	childEntry, ok := ix.get(child)
	if !ok {
		return errs.New("artifact.DetachChild", errs.ArtifactNotFound, nil)
	}
	if !childEntry.HasParent || childEntry.Parent != parent {
		return nil
	}
	childEntry.HasParent = false
	childEntry.Parent = ID{}
	return ix.put(child, childEntry)
}

// GCExpired removes every Timed grant whose expiry has passed, returning
// a notification per affected grantee (spec.md §4.4 gc_expired).
func (ix *Index) GCExpired(now int64) ([]Notification, error) {
	var notes []Notification
	for id, entry := range ix.doc.Read() {
		changed := false
		kept := make([]GrantEntry, 0, len(entry.Grants))
		for _, g := range entry.Grants {
			if g.Grant.Mode == ModeTimed && g.Grant.HasExpiry && now > g.Grant.Expiry {
				notes = append(notes, Notification{Artifact: id, Grantee: g.Member, Recalled: true})
				changed = true
				continue
			}
			kept = append(kept, g)
		}
		if !changed {
			continue
		}
		entry.Grants = kept
		if err := ix.put(id, entry); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// HasAccess reports whether member has effective access to id at time t,
// per spec.md §4.4: owner, direct grant (respecting Timed expiry), or
// inherited access through an ancestor, and only while the artifact (or
// the ancestor granting access) is Active.
func (ix *Index) HasAccess(member ids.MemberId, id ID, t int64) bool {
	entry, ok := ix.get(id)
	if !ok {
		return false
	}
	if entry.Status != StatusActive {
		return false
	}
	if member == ix.Owner {
		return true
	}
	if g, ok := entry.GrantFor(member); ok && g.Valid(t) {
		return true
	}
	if entry.HasParent {
		return ix.HasAccess(member, entry.Parent, t)
	}
	return false
}

// Entries returns a snapshot of every entry currently in the index.
func (ix *Index) Entries() map[ID]Entry { return ix.doc.Read() }
