package sentiment

import (
	"github.com/sirupsen/logrus"

	"github.com/indranet/indra/internal/ids"
)

// RealmLeaver leaves a realm by id; the node facade supplies the concrete
// implementation (Node.LeaveRealm in internal/node) so this package never
// depends on the realm package directly.
type RealmLeaver func(realm ids.RealmId) error

// RealmLister returns every realm id in which member currently appears,
// as observed locally; supplied by the node facade.
type RealmLister func(member ids.MemberId) []ids.RealmId

// BlockResult summarizes the effect of Block, for logging/notification.
type BlockResult struct {
	Target      ids.MemberId
	LeftRealms  []ids.RealmId
	FailedLeave map[ids.RealmId]error
}

// Block runs the three-step cascade from spec.md §4.6 and §8 property 8:
// (1) set sentiment to -1, (2) remove the contact locally, (3) leave
// every realm in which target currently appears. A block never mutates
// the peer's state directly — only this replica's contacts document and
// this replica's own realm membership.
func Block(b *Book, target ids.MemberId, realmsOf RealmLister, leave RealmLeaver, log *logrus.Logger) (BlockResult, error) {
	if log == nil {
		log = logrus.New()
	}
	if err := b.SetSentiment(target, -1); err != nil {
		return BlockResult{}, err
	}
	if err := b.Remove(target); err != nil {
		return BlockResult{}, err
	}

	result := BlockResult{Target: target, FailedLeave: make(map[ids.RealmId]error)}
	for _, realmID := range realmsOf(target) {
		if err := leave(realmID); err != nil {
			result.FailedLeave[realmID] = err
			log.WithFields(logrus.Fields{"realm": realmID, "target": target}).Warn("block cascade: failed to leave realm")
			continue
		}
		result.LeftRealms = append(result.LeftRealms, realmID)
	}
	log.WithFields(logrus.Fields{"target": target, "realms_left": len(result.LeftRealms)}).Info("block cascade complete")
	return result, nil
}
