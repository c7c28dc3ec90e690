package ids

import (
	"testing"
	"time"
)

func memberFrom(b byte) MemberId {
	var m MemberId
	m[0] = b
	return m
}

func TestComputePeerRealmInvariantUnderPermutationAndDuplication(t *testing.T) {
	a, b, c := memberFrom(1), memberFrom(2), memberFrom(3)

	r1 := ComputePeerRealm([]MemberId{a, b, c})
	r2 := ComputePeerRealm([]MemberId{c, b, a})
	r3 := ComputePeerRealm([]MemberId{a, a, b, c, c})

	if r1 != r2 {
		t.Fatalf("permutation mismatch: %x != %x", r1, r2)
	}
	if r1 != r3 {
		t.Fatalf("duplication mismatch: %x != %x", r1, r3)
	}
}

func TestComputePeerRealmDiffersByMembership(t *testing.T) {
	a, b, c := memberFrom(1), memberFrom(2), memberFrom(3)
	r1 := ComputePeerRealm([]MemberId{a, b})
	r2 := ComputePeerRealm([]MemberId{a, b, c})
	if r1 == r2 {
		t.Fatalf("expected different realms for different membership")
	}
}

func TestDMStoryIDSymmetric(t *testing.T) {
	a, b := memberFrom(7), memberFrom(9)
	if DMStoryID(a, b) != DMStoryID(b, a) {
		t.Fatalf("expected symmetric dm story id")
	}
}

func TestHomeAndInboxRealmsDifferPerMember(t *testing.T) {
	a, b := memberFrom(1), memberFrom(2)
	if HomeRealm(a) == HomeRealm(b) {
		t.Fatalf("expected distinct home realms")
	}
	if HomeRealm(a) == InboxRealm(a) {
		t.Fatalf("expected home and inbox realms to differ for the same member")
	}
}

func TestEncounterTopicsToleratesOneWindowOfSkew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	earlier := now.Add(-45 * time.Second)

	curNow, prevNow := EncounterTopics("847293", now)
	curEarlier, prevEarlier := EncounterTopics("847293", earlier)

	// The two parties are at most one window apart, so one of each pair
	// must line up.
	matched := curNow == curEarlier || curNow == prevEarlier || prevNow == curEarlier
	if !matched {
		t.Fatalf("expected overlapping window between now and now-45s")
	}
}

func TestIsValidEncounterTopicRejectsStaleWindow(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	topic, _ := EncounterTopics("000000", base)
	farFuture := base.Add(10 * time.Minute)
	if IsValidEncounterTopic("000000", topic, farFuture) {
		t.Fatalf("expected topic to expire well past the tolerance window")
	}
}
