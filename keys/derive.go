package keys

import (
	"bytes"
	"crypto/sha256"

	"xdao.co/zpass/zkcrypto"
)

const roleKDFLabel = "zpass-keys-v1"

// DeriveRoleKey deterministically derives a role-specific private key from
// root. The same root and role always give the same key.
func DeriveRoleKey(p zkcrypto.Provider, root zkcrypto.PrivateKey, role string) (zkcrypto.PrivateKey, error) {
	if err := CheckRole(role); err != nil {
		return zkcrypto.PrivateKey{}, err
	}
	seed := root.Seed()
	h := sha256.New()
	_, _ = h.Write(seed[:])
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(roleKDFLabel))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	return p.NewPrivateKey(bytes.NewReader(h.Sum(nil)))
}
