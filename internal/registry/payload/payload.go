// Package payload produces the canonical byte string an admin signs to
// authorize one mint. The signer CLI and the verifying gate share this
// single implementation; any drift between them would break every
// signature, so the format is pinned by a golden test.
//
// Layout, in order:
//
//	"wrapreg.v1\x00"          domain-separation prefix
//	u32 BE length ‖ instance  registry deployment identity
//	u32 BE length ‖ user      recipient account
//	u64 BE period             issuance period
//	u32 BE length ‖ archetype wrap archetype label
//	content hash              fixed 32 bytes
//
// Length prefixes make the encoding injective: no two distinct field
// tuples share a byte string, so a signature authorizes exactly one
// tuple on exactly one instance.
package payload

import (
	"encoding/binary"

	id "wrapregistry/pkg/domain"
)

const prefix = "wrapreg.v1\x00"

// Canonicalize encodes one mint authorization tuple.
func Canonicalize(instance id.InstanceID, user id.AccountID, period uint64, archetype string, hash [32]byte) []byte {
	size := len(prefix) +
		4 + len(instance) +
		4 + len(user) +
		8 +
		4 + len(archetype) +
		len(hash)

	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	buf = appendLenPrefixed(buf, string(instance))
	buf = appendLenPrefixed(buf, string(user))
	buf = binary.BigEndian.AppendUint64(buf, period)
	buf = appendLenPrefixed(buf, archetype)
	buf = append(buf, hash[:]...)
	return buf
}

func appendLenPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
