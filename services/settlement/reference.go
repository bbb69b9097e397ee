package settlement

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/nomadmarket/nomadledger/errors"
)

const referenceBytes = 32

// NewReference returns 32 random bytes from the system CSPRNG as 64 hex characters.
func NewReference() (string, error) {
	return newReferenceFrom(rand.Reader)
}

func newReferenceFrom(r io.Reader) (string, error) {
	b := make([]byte, referenceBytes)

	if _, err := io.ReadFull(r, b); err != nil {
		return "", errors.NewProcessingError("failed to generate settlement reference", err)
	}

	return hex.EncodeToString(b), nil
}
