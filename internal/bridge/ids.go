package bridge

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDGenerator produces session identifiers.  Uniqueness is probabilistic only.
type IDGenerator interface {
	NewID() string
}

// ShortIDGenerator produces 6 character base36 identifiers, zero padded
type ShortIDGenerator struct{}

const (
	shortIDLength = 6
	// 36^6
	shortIDSpace = 2176782336
)

func (ShortIDGenerator) NewID() string {
	id := strconv.FormatInt(rand.Int64N(shortIDSpace), 36)
	return strings.Repeat("0", shortIDLength-len(id)) + id
}

// UUIDGenerator produces random (version 4) UUID strings
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// IDGeneratorByName returns the generator for a configured name.  Unknown names fall back to the short generator.
func IDGeneratorByName(name string) IDGenerator {
	switch strings.ToLower(name) {
	case "uuid":
		return UUIDGenerator{}
	default:
		return ShortIDGenerator{}
	}
}
