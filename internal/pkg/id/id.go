package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// staged uploads listed in arrival order in temp dirs and S3 prefixes.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
