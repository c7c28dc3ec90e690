package encounter

import (
	"testing"
	"time"

	"github.com/indranet/indra/internal/ids"
)

func member(b byte) ids.MemberId {
	var m ids.MemberId
	m[0] = b
	return m
}

func TestBothSidesDeriveSameTopicWithinWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := NewSession("847293", now)
	b := NewSession("847293", now)
	if a.Topic != b.Topic {
		t.Fatalf("expected identical topic for same code and window")
	}
}

func TestIntroduceProducesSameDMRealmBothWays(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	alice, bob := member(1), member(2)

	sessA := NewSession("847293", now)
	sessA.ReceiveKeys(bob, []byte("bob-sign"), []byte("bob-kem"))
	realmFromA, err := sessA.Introduce(alice)
	if err != nil {
		t.Fatalf("Introduce (alice): %v", err)
	}

	sessB := NewSession("847293", now)
	sessB.ReceiveKeys(alice, []byte("alice-sign"), []byte("alice-kem"))
	realmFromB, err := sessB.Introduce(bob)
	if err != nil {
		t.Fatalf("Introduce (bob): %v", err)
	}

	if realmFromA != realmFromB {
		t.Fatalf("expected symmetric DM realm id")
	}
}

func TestIntroduceBeforeKeyExchangeFails(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sess := NewSession("847293", now)
	if _, err := sess.Introduce(member(1)); err == nil {
		t.Fatalf("expected error introducing before keys exchanged")
	}
}
