package node

import (
	"context"
	"time"

	"github.com/indranet/indra/internal/artifact"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/realm"
	"github.com/indranet/indra/internal/syncreg"
)

// Share puts data into the blob store and records an Entry for it in the
// home index, optionally linked under parent.
func (n *Node) Share(data []byte, name, mime string, parent *artifact.ID) (artifact.ID, error) {
	id, err := n.homeIndex.Share(data, name, mime, nowFunc().Unix(), parent)
	if err != nil {
		return artifact.ID{}, err
	}
	n.reconcileSync(context.Background())
	return id, nil
}

// Grant records grantee's access to id and notifies them over their
// inbox realm.
func (n *Node) Grant(id artifact.ID, grantee ids.MemberId, mode artifact.Mode, expiry *int64, rawKey, grantKEMPublic []byte) error {
	if err := n.homeIndex.Grant(id, grantee, mode, expiry, nowFunc().Unix(), rawKey, grantKEMPublic); err != nil {
		return err
	}
	n.notifyArtifact(grantee, id, false)
	n.reconcileSync(context.Background())
	return nil
}

// Revoke removes grantee's access to id, if revocable.
func (n *Node) Revoke(id artifact.ID, grantee ids.MemberId) error {
	if err := n.homeIndex.Revoke(id, grantee); err != nil {
		return err
	}
	n.notifyArtifact(grantee, id, true)
	n.reconcileSync(context.Background())
	return nil
}

// Transfer marks id Transferred locally and returns the mirror entry the
// new owner's own node must install into its index (delivered as an
// inbox notification here; installing it into newOwner's homeIndex is
// that node's own responsibility upon receipt).
func (n *Node) Transfer(id artifact.ID, newOwner ids.MemberId) (artifact.Entry, error) {
	mirror, err := n.homeIndex.Transfer(id, newOwner, nowFunc().Unix())
	if err != nil {
		return artifact.Entry{}, err
	}
	n.notifyTransfer(newOwner, mirror)
	n.reconcileSync(context.Background())
	return mirror, nil
}

// Recall marks id (and its descendants) Recalled, stripping non-permanent
// grants, and notifies every affected grantee.
func (n *Node) Recall(id artifact.ID) ([]artifact.Notification, error) {
	notes, err := n.homeIndex.Recall(id)
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		n.notifyArtifact(note.Grantee, note.Artifact, true)
		n.emit(Event{Kind: EventArtifactNotification, Notification: &note})
	}
	n.reconcileSync(context.Background())
	return notes, nil
}

// AttachChild links child under parent in the home index.
func (n *Node) AttachChild(parent, child artifact.ID) error {
	return n.homeIndex.AttachChild(parent, child)
}

// DetachChild unlinks child from parent in the home index.
func (n *Node) DetachChild(parent, child artifact.ID) error {
	return n.homeIndex.DetachChild(parent, child)
}

// notifyArtifact tells grantee over their inbox realm that their access
// to id changed: granted, or recalled/revoked.
func (n *Node) notifyArtifact(grantee ids.MemberId, id artifact.ID, recalled bool) {
	kind := realm.ContentArtifactGranted
	if recalled {
		kind = realm.ContentArtifactRecalled
	}
	content := realm.Content{Kind: kind, ArtifactID: id.Value[:]}
	if err := n.publishInbox(grantee, content); err != nil {
		n.log.WithFields(loggerFields(ids.InboxRealm(grantee), err)).Warn("node: artifact notification failed")
	}
}

// notifyTransfer tells newOwner over their inbox realm that a tree has
// been handed to them, carrying the mirror entry's artifact id; the
// grantee's own node resolves access by syncing the home index it now
// has a Permanent grant against.
func (n *Node) notifyTransfer(newOwner ids.MemberId, mirror artifact.Entry) {
	content := realm.Content{Kind: realm.ContentArtifactGranted, ArtifactID: mirror.ID.Value[:], ArtifactName: mirror.Name}
	if err := n.publishInbox(newOwner, content); err != nil {
		n.log.WithFields(loggerFields(ids.InboxRealm(newOwner), err)).Warn("node: transfer notification failed")
	}
}

// publishInbox sends a self-authored, sequence-less notification content
// directly over recipient's inbox gossip topic, bypassing the local realm
// message log since the sender is not a member of that inbox realm.
func (n *Node) publishInbox(recipient ids.MemberId, content realm.Content) error {
	msg := realm.Message{Content: content, Timestamp: nowFunc().Unix(), Sender: n.Self, SenderName: n.DisplayName}
	return n.broadcastMessage(ids.InboxRealm(recipient), msg)
}

// gcLoop periodically sweeps expired Timed grants from the home index,
// notifying affected grantees, until ctx is cancelled.
func (n *Node) gcLoop(ctx context.Context) {
	ticker := time.NewTicker(n.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			notes, err := n.homeIndex.GCExpired(nowFunc().Unix())
			if err != nil {
				n.log.WithError(err).Warn("node: gc_expired failed")
				continue
			}
			for _, note := range notes {
				n.notifyArtifact(note.Grantee, note.Artifact, true)
				n.emit(Event{Kind: EventArtifactNotification, Notification: &note})
			}
		case <-ctx.Done():
			return
		}
	}
}

// reconcileLoop periodically reconciles the live sync-session set against
// the home index's currently effective grants.
func (n *Node) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(n.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.reconcileSync(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (n *Node) reconcileSync(ctx context.Context) {
	target := syncreg.TargetFromIndex(n.homeIndex, nowFunc().Unix())
	n.syncReg.Reconcile(ctx, target, n.startSyncSession)
}
