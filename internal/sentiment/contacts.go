// Package sentiment implements spec.md §4.6: the local contacts document
// and the two operations that drive the node's immune system — sentiment
// valuation and the block cascade. Sentiment and block actions only ever
// mutate the local replica; they propagate through ordinary gossip
// replication like any other CRDT change, never the other party's state.
package sentiment

import (
	"github.com/sirupsen/logrus"

	"github.com/indranet/indra/internal/crdt"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// Status is a contact's confirmation state.
type Status uint8

const (
	StatusPending Status = iota
	StatusConfirmed
)

// Entry is the spec.md §3 ContactEntry.
type Entry struct {
	Member      ids.MemberId
	DisplayName string
	AddedAt     int64
	Status      Status
	Sentiment   int8 // one of {-1, 0, +1}
	Relayable   bool
	Notes       string
	HasNotes    bool
}

// Book is the contacts realm's document: a CRDT keyed by contact
// MemberId, written only by the local member (spec.md "only the local
// member" — so no self-write guard is needed beyond always passing Self
// as the writer).
type Book struct {
	Self ids.MemberId
	doc  *crdt.Document[ids.MemberId, Entry]
	log  *logrus.Logger
}

// NewBook builds an empty contacts book for self.
func NewBook(self ids.MemberId, log *logrus.Logger) *Book {
	if log == nil {
		log = logrus.New()
	}
	return &Book{
		Self: self,
		doc:  crdt.NewDocument[ids.MemberId, Entry](crdt.LWW[ids.MemberId, Entry](), nil),
		log:  log,
	}
}

// Document exposes the underlying CRDT document for sync/broadcast.
func (b *Book) Document() *crdt.Document[ids.MemberId, Entry] { return b.doc }

// Get returns the contact entry for member, if any.
func (b *Book) Get(member ids.MemberId) (Entry, bool) { return b.doc.Get(member) }

// All returns a snapshot of every contact entry.
func (b *Book) All() map[ids.MemberId]Entry { return b.doc.Read() }

// AddPending records a not-yet-confirmed contact.
func (b *Book) AddPending(member ids.MemberId, displayName string, now int64) error {
	_, err := b.doc.Update(b.Self, member, func(old Entry, existed bool) Entry {
		if existed {
			return old
		}
		return Entry{Member: member, DisplayName: displayName, AddedAt: now, Status: StatusPending}
	})
	return err
}

// Confirm marks member Confirmed, used once a direct-connect or encounter
// handshake completes.
func (b *Book) Confirm(member ids.MemberId) error {
	_, err := b.doc.Update(b.Self, member, func(old Entry, existed bool) Entry {
		if !existed {
			old = Entry{Member: member}
		}
		old.Status = StatusConfirmed
		return old
	})
	return err
}

// SetSentiment writes self's own sentiment edge toward contact. value
// must be one of {-1, 0, +1}.
func (b *Book) SetSentiment(contact ids.MemberId, value int8) error {
	if value < -1 || value > 1 {
		return errs.New("sentiment.SetSentiment", errs.InvalidOperation, nil)
	}
	_, err := b.doc.Update(b.Self, contact, func(old Entry, existed bool) Entry {
		if !existed {
			old = Entry{Member: contact}
		}
		old.Sentiment = value
		return old
	})
	return err
}

// SetRelayable toggles whether self propagates a relayed view of its own
// {-1,+1} edges for contact to its neighbors.
func (b *Book) SetRelayable(contact ids.MemberId, relayable bool) error {
	_, err := b.doc.Update(b.Self, contact, func(old Entry, existed bool) Entry {
		if !existed {
			old = Entry{Member: contact}
		}
		old.Relayable = relayable
		return old
	})
	return err
}

// Remove is step 2 of the block cascade. It overwrites contact's entry
// with a tombstone that keeps only the member id and a sentiment of -1;
// the entry stays in the document, so Get still returns it. The write is
// a local mutation that other replicas pick up via the usual LWW merge.
func (b *Book) Remove(contact ids.MemberId) error {
	_, err := b.doc.Update(b.Self, contact, func(Entry, bool) Entry {
		return Entry{Member: contact, Sentiment: -1}
	})
	return err
}
