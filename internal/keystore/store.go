package keystore

import (
	"encoding/json"
	"os"

	"github.com/indranet/indra/internal/errs"
)

// sealedBlobFile is the on-disk JSON form of a SealedBlob (fields are
// byte slices, which encoding/json renders as base64 — adequate for a
// single small file written once per unlock cycle).
type sealedBlobFile struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// WriteSealedBlob writes blob to path as indented JSON, owner-readable
// only.
func WriteSealedBlob(path string, blob SealedBlob) error {
	out, err := json.MarshalIndent(sealedBlobFile{Salt: blob.Salt, Nonce: blob.Nonce, Ciphertext: blob.Ciphertext}, "", "  ")
	if err != nil {
		return errs.New("keystore.WriteSealedBlob", errs.Serialization, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return errs.New("keystore.WriteSealedBlob", errs.Io, err)
	}
	return nil
}

// ReadSealedBlob reads a blob previously written by WriteSealedBlob.
func ReadSealedBlob(path string) (SealedBlob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SealedBlob{}, errs.New("keystore.ReadSealedBlob", errs.Io, err)
	}
	var f sealedBlobFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return SealedBlob{}, errs.New("keystore.ReadSealedBlob", errs.Serialization, err)
	}
	return SealedBlob{Salt: f.Salt, Nonce: f.Nonce, Ciphertext: f.Ciphertext}, nil
}
