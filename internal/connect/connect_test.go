package connect

import "testing"
import "github.com/indranet/indra/internal/ids"

func member(b byte) ids.MemberId {
	var m ids.MemberId
	m[0] = b
	return m
}

func TestIsInitiatorIsUnique(t *testing.T) {
	a, b := member(1), member(200)
	if IsInitiator(a, b) == IsInitiator(b, a) {
		t.Fatalf("expected exactly one side to initiate")
	}
}

func TestBothSidesAgreeOnDMRealm(t *testing.T) {
	a, b := member(1), member(200)
	attemptFromA := NewAttempt(a, b)
	attemptFromB := NewAttempt(b, a)
	if attemptFromA.DMRealm() != attemptFromB.DMRealm() {
		t.Fatalf("expected symmetric DM realm id")
	}
	if attemptFromA.Initiator == attemptFromB.Initiator {
		t.Fatalf("expected exactly one attempt to be the initiator")
	}
}

func TestResponderAdvancesOnEncapsulation(t *testing.T) {
	a, b := member(1), member(200)
	responder := NewAttempt(a, b) // a < b, so a is the responder
	if responder.Initiator {
		t.Fatalf("expected a to be the responder")
	}
	if err := responder.ReceiveEncapsulation(); err != nil {
		t.Fatalf("ReceiveEncapsulation: %v", err)
	}
	if responder.Phase != PhaseEstablished {
		t.Fatalf("expected established phase, got %v", responder.Phase)
	}
}
