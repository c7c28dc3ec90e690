package realm

import (
	"testing"
	"time"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

func TestSendAssignsIncreasingSequence(t *testing.T) {
	a := member(1)
	r := NewPeerSetRealm(a, []ids.MemberId{a})
	now := time.Unix(0, 0)

	m1, err := r.Send(a, "ada", Content{Kind: ContentText, Text: "hi"}, nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := r.Send(a, "ada", Content{Kind: ContentText, Text: "again"}, nil, nil, now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if m1.Sequence != 1 || m2.Sequence != 2 {
		t.Fatalf("expected sequences 1,2, got %d,%d", m1.Sequence, m2.Sequence)
	}
}

func TestReceiveRejectsBadSignature(t *testing.T) {
	a, b := member(1), member(2)
	r := NewPeerSetRealm(a, []ids.MemberId{a, b})
	msg, err := r.Send(b, "bob", Content{Kind: ContentText, Text: "hi"}, nil, nil, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Receive(msg, func(sender ids.MemberId, m Message) bool { return false })
	if !errs.OfKind(err, errs.KindAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestReceiveOrdersMessagesBySequenceRegardlessOfArrivalOrder(t *testing.T) {
	a, b := member(1), member(2)
	sender := NewPeerSetRealm(b, []ids.MemberId{a, b})
	m1, _ := sender.Send(b, "bob", Content{Kind: ContentText, Text: "first"}, nil, nil, time.Unix(0, 0))
	m2, _ := sender.Send(b, "bob", Content{Kind: ContentText, Text: "second"}, nil, nil, time.Unix(1, 0))

	recv := NewPeerSetRealm(a, []ids.MemberId{a, b})
	if _, err := recv.Receive(m2, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := recv.Receive(m1, nil); err != nil {
		t.Fatal(err)
	}
	got := recv.Messages(b)
	if len(got) != 2 || got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Fatalf("expected causal order regardless of arrival order, got %+v", got)
	}
}

func TestReceiveDuplicateSequenceIsIdempotent(t *testing.T) {
	a, b := member(1), member(2)
	sender := NewPeerSetRealm(b, []ids.MemberId{a, b})
	m1, _ := sender.Send(b, "bob", Content{Kind: ContentText, Text: "hi"}, nil, nil, time.Unix(0, 0))

	recv := NewPeerSetRealm(a, []ids.MemberId{a, b})
	first, err := recv.Receive(m1, nil)
	if err != nil || !first {
		t.Fatalf("expected first receive to be new: ok=%v err=%v", first, err)
	}
	second, err := recv.Receive(m1, nil)
	if err != nil || second {
		t.Fatalf("expected duplicate receive to be a no-op: ok=%v err=%v", second, err)
	}
	if len(recv.Messages(b)) != 1 {
		t.Fatalf("expected exactly one message after duplicate receive")
	}
}

func TestUnreadCountReflectsReadPosition(t *testing.T) {
	a, b := member(1), member(2)
	r := NewPeerSetRealm(a, []ids.MemberId{a, b})
	r.Send(b, "bob", Content{Kind: ContentText, Text: "1"}, nil, nil, time.Unix(0, 0))
	r.Send(b, "bob", Content{Kind: ContentText, Text: "2"}, nil, nil, time.Unix(1, 0))

	if got := r.UnreadCount(a); got != 2 {
		t.Fatalf("expected unread count 2 before any read position is set, got %d", got)
	}
	if err := r.AdvanceReadPosition(a, 1); err != nil {
		t.Fatal(err)
	}
	if got := r.UnreadCount(a); got != 1 {
		t.Fatalf("expected unread count 1 after advancing read position to 1, got %d", got)
	}
}
