// Package shortcode produces candidate short codes. Generators don't check
// uniqueness — that is the service's job, backed by the storage layer's
// unique constraint.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet is the base62 character set used for generated codes. It keeps
// codes URL-safe without percent-encoding.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const defaultLength = 7

// Generator produces candidate short codes from a random source.
type Generator interface {
	// Generate returns a new candidate short code. Successive calls are
	// independent; collisions are possible and must be handled by the caller.
	Generate() (string, error)
}

// NanoidGenerator generates base62 codes of a fixed length using nanoid's
// random source.
type NanoidGenerator struct {
	length int
}

// NewNanoidGenerator creates a generator producing codes of the given length.
// Non-positive lengths fall back to the default of 7 characters.
func NewNanoidGenerator(length int) *NanoidGenerator {
	if length <= 0 {
		length = defaultLength
	}

	return &NanoidGenerator{length: length}
}

func (g *NanoidGenerator) Generate() (string, error) {
	const op = "shortcode.NanoidGenerator.Generate"

	code, err := gonanoid.Generate(alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

var _ Generator = (*NanoidGenerator)(nil)
