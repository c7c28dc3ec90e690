package keystore

import (
	"testing"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/testutil"
)

func TestGenerateKeyMaterialSizes(t *testing.T) {
	m, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(m.SigningPublicKey) != SigningPublicKeySize {
		t.Fatalf("signing public key size = %d, want %d", len(m.SigningPublicKey), SigningPublicKeySize)
	}
	if len(m.SigningPrivateKey) != SigningPrivateKeySize {
		t.Fatalf("signing private key size = %d, want %d", len(m.SigningPrivateKey), SigningPrivateKeySize)
	}
	if len(m.KEMPublicKey) != KEMPublicKeySize {
		t.Fatalf("kem public key size = %d, want %d", len(m.KEMPublicKey), KEMPublicKeySize)
	}
	if len(m.KEMPrivateKey) != KEMPrivateKeySize {
		t.Fatalf("kem private key size = %d, want %d", len(m.KEMPrivateKey), KEMPrivateKeySize)
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	m, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := Seal("correct horse battery staple", m)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := Open("correct horse battery staple", blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(got.SigningPrivateKey) != string(m.SigningPrivateKey) {
		t.Fatalf("signing private key mismatch after round trip")
	}
	if string(got.KEMPrivateKey) != string(m.KEMPrivateKey) {
		t.Fatalf("kem private key mismatch after round trip")
	}
}

func TestOpenWithWrongSecretFailsAuthentication(t *testing.T) {
	m, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := Seal("right secret", m)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Open("wrong secret", blob)
	if err == nil {
		t.Fatalf("expected error opening with wrong secret")
	}
	if !errs.OfKind(err, errs.KindAuthentication) {
		t.Fatalf("expected KindAuthentication, got %v", err)
	}
}

func TestNormalizePassStoryToleratesCaseAndSpacing(t *testing.T) {
	words := make([]string, PassStorySlots)
	for i := range words {
		words[i] = "Word"
	}
	words[0] = "  Word  with   spaces "

	normalized, err := NormalizePassStory(words)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	lower := make([]string, PassStorySlots)
	copy(lower, words)
	lower[0] = "word with spaces"
	for i := 1; i < len(lower); i++ {
		lower[i] = "word"
	}
	want, err := NormalizePassStory(lower)
	if err != nil {
		t.Fatal(err)
	}
	if normalized != want {
		t.Fatalf("expected normalization to be case/spacing-insensitive: %q vs %q", normalized, want)
	}
}

func TestNormalizePassStoryRejectsWrongWordCount(t *testing.T) {
	if _, err := NormalizePassStory([]string{"only", "two"}); err == nil {
		t.Fatalf("expected error for wrong word count")
	}
}

func TestSealOpenViaPassStory(t *testing.T) {
	words := make([]string, PassStorySlots)
	for i := range words {
		words[i] = "slot"
	}
	secret, err := NormalizePassStory(words)
	if err != nil {
		t.Fatal(err)
	}
	m, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := Seal(secret, m)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(secret, blob); err != nil {
		t.Fatalf("open via pass-story secret: %v", err)
	}
}

func TestWriteReadSealedBlobRoundTrip(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	m, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := Seal("secret", m)
	if err != nil {
		t.Fatal(err)
	}
	path := sb.Path("keystore.json")
	if err := WriteSealedBlob(path, blob); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSealedBlob(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got.Ciphertext) != string(blob.Ciphertext) {
		t.Fatalf("ciphertext mismatch after round trip")
	}
}
