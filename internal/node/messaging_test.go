package node

import (
	"reflect"
	"testing"

	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/realm"
)

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	var sender ids.MemberId
	sender[0] = 7
	replyTo := [32]byte{9, 9}

	msg := realm.Message{
		ID:         [32]byte{1, 2, 3},
		Sender:     sender,
		SenderName: "alice",
		Content: realm.Content{
			Kind: realm.ContentText,
			Text: "buy milk",
		},
		Timestamp:  1_700_000_000,
		Sequence:   42,
		ReplyTo:    replyTo,
		HasReplyTo: true,
		References: [][32]byte{{4, 5, 6}},
	}

	encoded, err := encodeMessage(msg)
	if err != nil {
		t.Fatalf("encodeMessage: %v", err)
	}
	decoded, err := decodeMessage(encoded)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	// rlp decodes an empty string or list into an empty, non-nil slice, so
	// the Content slices left nil above come back empty rather than nil.
	want := msg
	want.Content.Data = []byte{}
	want.Content.ArtifactID = []byte{}
	want.Content.ExtensionPayload = []byte{}
	want.Content.GalleryItems = [][]byte{}
	want.Content.RecoveryManifest = []byte{}
	if !reflect.DeepEqual(want, decoded) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", decoded, want)
	}
}

func TestEncodeDecodeMessageWithoutReplyTo(t *testing.T) {
	msg := realm.Message{Content: realm.Content{Kind: realm.ContentSystem}, Timestamp: 5}
	encoded, err := encodeMessage(msg)
	if err != nil {
		t.Fatalf("encodeMessage: %v", err)
	}
	decoded, err := decodeMessage(encoded)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if decoded.HasReplyTo {
		t.Fatalf("expected HasReplyTo false to round trip as false")
	}
}
