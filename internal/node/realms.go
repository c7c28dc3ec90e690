package node

import (
	"context"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/realm"
)

func (n *Node) getRealm(id ids.RealmId) (*realm.Realm, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	r, ok := n.realms[id]
	return r, ok
}

func (n *Node) putRealm(r *realm.Realm) {
	n.mu.Lock()
	n.realms[r.ID] = r
	n.mu.Unlock()
}

// CreateRealm builds (or returns, if already known) the peer-set realm
// for members, a structural realm whose id is derived from the member
// set itself (spec.md I5) so every member computes the same id
// independently.
func (n *Node) CreateRealm(ctx context.Context, members []ids.MemberId) (*realm.Realm, error) {
	id := ids.ComputePeerRealm(members)
	if r, ok := n.getRealm(id); ok {
		return r, nil
	}
	r := realm.NewPeerSetRealm(n.Self, members)
	n.putRealm(r)
	r.Activate()
	if err := n.subscribeRealm(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// JoinRealm joins a general realm known by id (typically learned from an
// invite code), with no fixed structural membership.
func (n *Node) JoinRealm(ctx context.Context, id ids.RealmId) (*realm.Realm, error) {
	if r, ok := n.getRealm(id); ok {
		return r, nil
	}
	r := realm.NewGeneralRealm(id, n.Self)
	n.putRealm(r)
	r.Activate()
	if err := n.subscribeRealm(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

// LeaveRealm unsubscribes this replica from id's gossip topic. Per the
// resolved Open Question on peer-set realms, leave is a local unsubscribe
// only: a peer-set realm's identity is its membership, so the realm
// continues to exist for every other member regardless of this call.
func (n *Node) LeaveRealm(id ids.RealmId) error {
	r, ok := n.getRealm(id)
	if !ok {
		return errs.New("node.LeaveRealm", errs.RealmNotFound, nil)
	}
	if _, err := r.Leave(nowFunc()); err != nil {
		return err
	}
	n.transport.Unsubscribe(id)
	return nil
}

// realmsOf lists every realm currently known locally in which member
// appears, the RealmLister sentiment.Block needs without importing this
// package's realm map directly.
func (n *Node) realmsOf(member ids.MemberId) []ids.RealmId {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []ids.RealmId
	for id, r := range n.realms {
		if r.IsMember(member) {
			out = append(out, id)
		}
	}
	return out
}

// subscribeRealm binds realmID's gossip topic and spawns a supervised
// reader goroutine that folds every inbound message into that realm's
// log, per spec.md §5 ("no task blocks the transport reader").
func (n *Node) subscribeRealm(ctx context.Context, realmID ids.RealmId) error {
	ch, err := n.transport.Subscribe(realmID)
	if err != nil {
		return err
	}
	n.sup.spawn(ctx, "realm-reader:"+hexRealm(realmID), func(taskCtx context.Context) {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				n.handleInbound(realmID, msg.Data)
			case <-taskCtx.Done():
				return
			}
		}
	})
	return nil
}

func hexRealm(id ids.RealmId) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 8)
	for i := 0; i < 4; i++ {
		out[i*2] = hexDigits[id[i]>>4]
		out[i*2+1] = hexDigits[id[i]&0x0f]
	}
	return string(out)
}
