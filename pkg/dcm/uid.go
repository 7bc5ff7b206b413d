package dcm

import (
	"math/big"

	"github.com/google/uuid"
)

// NewUID returns a UUID derived UID (PS3.5 B.2): "2.25." followed by the
// UUID as an unsigned decimal integer.
func NewUID() string {
	u := uuid.New()
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}

// UIDFromName returns a stable UUID derived UID for name, so repeated
// derivations of the same source produce the same identifier.
func UIDFromName(name string) string {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}
