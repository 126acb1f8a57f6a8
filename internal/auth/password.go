package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltBytes   = 32
	digestBytes = 32
	recordSep   = "$"
)

// CodecParams are the Argon2id cost parameters. They must stay fixed for the
// lifetime of stored records since the record format does not carry them.
type CodecParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultCodecParams follows the OWASP Argon2id baseline.
var DefaultCodecParams = CodecParams{Time: 2, MemoryKiB: 19 * 1024, Threads: 1}

// Codec hashes and verifies passwords as "<salt hex>$<digest hex>".
type Codec struct {
	params CodecParams
}

// NewCodec builds a codec, substituting defaults for zero parameters.
func NewCodec(params CodecParams) *Codec {
	if params.Time == 0 {
		params.Time = DefaultCodecParams.Time
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultCodecParams.MemoryKiB
	}
	if params.Threads == 0 {
		params.Threads = DefaultCodecParams.Threads
	}
	return &Codec{params: params}
}

// Hash derives a record for password under a fresh random salt.
func (c *Codec) Hash(password string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)
	return salt + recordSep + hex.EncodeToString(c.digest(salt, password)), nil
}

// Verify reports whether password matches record. Malformed records never match.
func (c *Codec) Verify(password, record string) bool {
	salt, digestHex, ok := strings.Cut(record, recordSep)
	if !ok || salt == "" || digestHex == "" || strings.Contains(digestHex, recordSep) {
		return false
	}
	if _, err := hex.DecodeString(salt); err != nil {
		return false
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil || len(want) != digestBytes {
		return false
	}
	return subtle.ConstantTimeCompare(c.digest(salt, password), want) == 1
}

func (c *Codec) digest(salt, password string) []byte {
	return argon2.IDKey([]byte(password), []byte(salt), c.params.Time, c.params.MemoryKiB, c.params.Threads, digestBytes)
}
