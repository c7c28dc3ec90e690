// Package keystore seals and unseals a member's key material behind a
// passphrase or 23-word pass-story, per spec.md §6. The post-quantum
// primitives themselves (ML-DSA-65 signatures, ML-KEM-768 encapsulation)
// are treated as an opaque black box: this package only knows their
// declared key/signature/ciphertext sizes and moves the bytes around —
// concrete (de)serialization, signing and encapsulation are supplied by
// whatever Signer/KEM implementation the node is built with.
package keystore

// Declared sizes for ML-DSA-65 and ML-KEM-768, the module's designated
// post-quantum primitives. Fixed so wire formats and storage layouts can
// be sized statically without depending on a concrete implementation.
const (
	SigningPublicKeySize  = 1952
	SigningPrivateKeySize = 4032
	SignatureSize         = 3309

	KEMPublicKeySize    = 1184
	KEMPrivateKeySize   = 2400
	KEMCiphertextSize   = 1088
	KEMSharedSecretSize = 32
)

// KeyMaterial is a member's full key set: an ML-DSA-65 signing keypair and
// an ML-KEM-768 encapsulation keypair, both opaque byte blobs of the
// declared sizes above.
type KeyMaterial struct {
	SigningPublicKey  []byte
	SigningPrivateKey []byte
	KEMPublicKey      []byte
	KEMPrivateKey     []byte
}

// Signer is satisfied by a concrete ML-DSA-65 implementation. This package
// never calls it directly — it exists so callers can depend on an
// interface instead of a specific PQ library.
type Signer interface {
	Public() []byte
	Sign(msg []byte) ([]byte, error)
}

// KEM is satisfied by a concrete ML-KEM-768 implementation.
type KEM interface {
	Public() []byte
	Encapsulate() (ciphertext, sharedSecret []byte, err error)
	Decapsulate(ciphertext []byte) ([]byte, error)
}
