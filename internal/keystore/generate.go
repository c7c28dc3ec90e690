package keystore

import (
	"crypto/rand"

	"github.com/indranet/indra/internal/errs"
)

// GenerateKeyMaterial produces fresh, randomly-sized-correct key material.
// It is a placeholder for a concrete ML-DSA-65/ML-KEM-768 keypair
// generator: real signing/encapsulation keys have internal algebraic
// structure this package has no business knowing about, so it only
// guarantees the declared sizes and randomness of the bytes, leaving a
// real Signer/KEM implementation to replace this call at the point the
// module is wired to one.
func GenerateKeyMaterial() (KeyMaterial, error) {
	m := KeyMaterial{
		SigningPublicKey:  make([]byte, SigningPublicKeySize),
		SigningPrivateKey: make([]byte, SigningPrivateKeySize),
		KEMPublicKey:      make([]byte, KEMPublicKeySize),
		KEMPrivateKey:     make([]byte, KEMPrivateKeySize),
	}
	for _, buf := range [][]byte{m.SigningPublicKey, m.SigningPrivateKey, m.KEMPublicKey, m.KEMPrivateKey} {
		if _, err := rand.Read(buf); err != nil {
			return KeyMaterial{}, errs.New("keystore.GenerateKeyMaterial", errs.Crypto, err)
		}
	}
	return m, nil
}
