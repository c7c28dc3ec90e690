package keystore

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/indranet/indra/internal/errs"
)

// Argon2id tuning. Memory-hard and CPU-hard enough to make offline
// guessing of a passphrase or pass-story expensive on commodity hardware,
// without making normal unlocks noticeably slow.
const (
	argonTime    = 4
	argonMemory  = 256 * 1024 // KiB
	argonThreads = 4
	saltSize     = 16
)

// SealedBlob is a member's encrypted key material as it is written to
// disk: a random salt, a random nonce, and the ChaCha20-Poly1305
// ciphertext of the RLP-encoded KeyMaterial.
type SealedBlob struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Seal derives a key from secret (a passphrase, or the output of
// NormalizePassStory) via Argon2id and encrypts material under it.
func Seal(secret string, material KeyMaterial) (SealedBlob, error) {
	plain, err := rlp.EncodeToBytes(&material)
	if err != nil {
		return SealedBlob{}, errs.New("keystore.Seal", errs.Serialization, err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return SealedBlob{}, errs.New("keystore.Seal", errs.Crypto, err)
	}
	aead, err := chacha20poly1305.New(deriveKey(secret, salt))
	if err != nil {
		return SealedBlob{}, errs.New("keystore.Seal", errs.Crypto, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return SealedBlob{}, errs.New("keystore.Seal", errs.Crypto, err)
	}

	ciphertext := aead.Seal(nil, nonce, plain, nil)
	return SealedBlob{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Open reverses Seal. A wrong secret or corrupted blob is reported as
// errs.StoryAuth, not errs.Crypto — from the caller's point of view this
// is an authentication failure, not an infrastructure fault.
func Open(secret string, blob SealedBlob) (KeyMaterial, error) {
	aead, err := chacha20poly1305.New(deriveKey(secret, blob.Salt))
	if err != nil {
		return KeyMaterial{}, errs.New("keystore.Open", errs.Crypto, err)
	}
	plain, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return KeyMaterial{}, errs.New("keystore.Open", errs.StoryAuth, fmt.Errorf("incorrect passphrase or pass-story: %w", err))
	}
	var material KeyMaterial
	if err := rlp.DecodeBytes(plain, &material); err != nil {
		return KeyMaterial{}, errs.New("keystore.Open", errs.Serialization, err)
	}
	return material, nil
}
