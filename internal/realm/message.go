package realm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// ContentKind discriminates the Content variants from spec.md §3. A flat
// struct (rather than an interface) keeps Content directly RLP-encodable
// and lets Extension round-trip its payload verbatim without this
// package needing to understand it.
type ContentKind uint8

const (
	ContentText ContentKind = iota
	ContentBinary
	ContentArtifact
	ContentReaction
	ContentSystem
	ContentExtension
	ContentImage
	ContentInlineArtifact
	ContentGallery
	ContentArtifactGranted
	ContentArtifactRecalled
	ContentRecoveryRequest
	ContentRecoveryManifest
)

// Content is the tagged-union payload of a Message. Only the fields
// relevant to Kind are meaningful; the rest are zero.
type Content struct {
	Kind ContentKind

	Text string // Text

	Data     []byte // Binary, Image
	MimeType string // Binary, Image, InlineArtifact

	ArtifactID   []byte // Artifact, InlineArtifact, ArtifactGranted, ArtifactRecalled
	ArtifactName string // Artifact, InlineArtifact

	ReactionTarget [32]byte // Reaction
	Emoji          string   // Reaction

	ExtensionType    string // Extension: unknown type_names preserved verbatim
	ExtensionPayload []byte

	GalleryItems   [][]byte // Gallery
	GalleryCaption string

	RecoveryManifest []byte // RecoveryRequest, RecoveryManifest
}

// Message is one realm message, per spec.md §3.
type Message struct {
	ID         [32]byte
	Sender     ids.MemberId
	SenderName string
	Content    Content
	Timestamp  int64
	Sequence   uint64
	ReplyTo    [32]byte
	HasReplyTo bool
	References [][32]byte
}

type senderLog struct {
	messages    []Message
	nextSeq     uint64
	maxObserved uint64
}

// messageState is embedded into Realm lazily — kept in its own file so
// message handling reads independently of the presence/document code.
type messageState struct {
	mu  sync.Mutex
	bySender map[ids.MemberId]*senderLog
}

func (r *Realm) msgState() *messageState {
	r.msgOnce.Do(func() {
		r.msg = &messageState{bySender: make(map[ids.MemberId]*senderLog)}
	})
	return r.msg
}

// Send appends a new message to self's own per-sender log, assigning the
// next sequence number and the local wall-clock timestamp.
func (r *Realm) Send(self ids.MemberId, senderName string, content Content, replyTo *[32]byte, references [][32]byte, now time.Time) (Message, error) {
	st := r.msgState()
	st.mu.Lock()
	defer st.mu.Unlock()

	log, ok := st.bySender[self]
	if !ok {
		log = &senderLog{}
		st.bySender[self] = log
	}
	log.nextSeq++

	msg := Message{
		Sender:     self,
		SenderName: senderName,
		Content:    content,
		Timestamp:  now.Unix(),
		Sequence:   log.nextSeq,
		References: references,
	}
	if replyTo != nil {
		msg.ReplyTo = *replyTo
		msg.HasReplyTo = true
	}
	msg.ID = hashMessage(msg)

	log.messages = append(log.messages, msg)
	if msg.Sequence > log.maxObserved {
		log.maxObserved = msg.Sequence
	}
	return msg, nil
}

// Receive validates and records a message from a remote sender. verify
// checks msg's signature against the sender's declared signing key; a
// nil verify skips the check (used in tests). Messages are kept in
// causal (sequence) order per sender; a duplicate sequence is a no-op,
// matching the idempotent-apply contract used elsewhere in this module.
func (r *Realm) Receive(msg Message, verify func(sender ids.MemberId, msg Message) bool) (bool, error) {
	if verify != nil && !verify(msg.Sender, msg) {
		return false, errs.New("realm.Receive", errs.InvalidSignature, fmt.Errorf("signature mismatch for sender %x", msg.Sender))
	}

	st := r.msgState()
	st.mu.Lock()
	defer st.mu.Unlock()

	log, ok := st.bySender[msg.Sender]
	if !ok {
		log = &senderLog{}
		st.bySender[msg.Sender] = log
	}
	for _, existing := range log.messages {
		if existing.Sequence == msg.Sequence {
			return false, nil
		}
	}
	log.messages = append(log.messages, msg)
	sort.Slice(log.messages, func(i, j int) bool { return log.messages[i].Sequence < log.messages[j].Sequence })
	if msg.Sequence > log.maxObserved {
		log.maxObserved = msg.Sequence
	}
	return true, nil
}

// Messages returns sender's message log in causal order.
func (r *Realm) Messages(sender ids.MemberId) []Message {
	st := r.msgState()
	st.mu.Lock()
	defer st.mu.Unlock()
	log, ok := st.bySender[sender]
	if !ok {
		return nil
	}
	out := make([]Message, len(log.messages))
	copy(out, log.messages)
	return out
}

// totalObservedSequence sums the highest observed sequence across every
// sender: the realm-wide message count this replica has seen, used as
// the numerator for unread-count computation.
func (r *Realm) totalObservedSequence() uint64 {
	st := r.msgState()
	st.mu.Lock()
	defer st.mu.Unlock()
	var total uint64
	for _, log := range st.bySender {
		total += log.maxObserved
	}
	return total
}

// UnreadCount is max_observed_sequence - read_positions[self], per
// spec.md §4.3, where max_observed_sequence is the realm-wide total
// across every sender's per-sender sequence (sequences are per-sender,
// not globally ordered, but read position is tracked as a single
// aggregate progress counter per member).
func (r *Realm) UnreadCount(self ids.MemberId) uint64 {
	total := r.totalObservedSequence()
	read, _ := r.ReadPositions.Get(self)
	if read >= total {
		return 0
	}
	return total - read
}

func hashMessage(m Message) [32]byte {
	var buf bytes.Buffer
	buf.WriteString("indras:message:")
	buf.Write(m.Sender[:])
	buf.WriteString(m.SenderName)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], m.Sequence)
	buf.Write(seqBuf[:])
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(m.Timestamp))
	buf.Write(tsBuf[:])
	buf.WriteByte(byte(m.Content.Kind))
	buf.WriteString(m.Content.Text)
	buf.Write(m.Content.Data)
	buf.Write(m.Content.ArtifactID)
	buf.WriteString(m.Content.ExtensionType)
	buf.Write(m.Content.ExtensionPayload)
	return blake3.Sum256(buf.Bytes())
}
