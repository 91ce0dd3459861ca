package shared

import (
	"crypto/rand"
	"fmt"
	"time"
)

// refAlphabet excludes characters that are easy to misread on a printed
// slip (0/O, 1/I/L, etc).
const refAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const refSuffixLen = 4

// GenerateReference builds a human-transcribable document number of the
// form PREFIX-YYYYMMDD-HHMMSS-XXXX. The timestamp prefix keeps numbers
// sortable by creation time; the random suffix disambiguates documents
// created within the same second. Callers are expected to re-check
// uniqueness against storage and regenerate on the (vanishingly rare)
// collision.
func GenerateReference(prefix string, t time.Time) string {
	buf := make([]byte, refSuffixLen)
	// crypto/rand.Read only fails if the OS entropy source is broken,
	// at which point nothing else works either.
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("reference generation: %v", err))
	}
	suffix := make([]byte, refSuffixLen)
	for i, b := range buf {
		suffix[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, t.Format("20060102-150405"), suffix)
}
