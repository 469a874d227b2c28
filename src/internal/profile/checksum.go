package profile

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Checksum returns a BLAKE3 digest of the profile's canonical serialized
// form. Equal digests mean identical canonical content, independent of
// XML well-formedness. The digest is only returned to the caller; it is
// not stored in SyncLog entries or anywhere else by the store.
func Checksum(p *Profile, sp *SyncProfile) (string, error) {
	data, err := marshalProfile(p, sp)
	if err != nil {
		return "", err
	}
	hasher := blake3.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
