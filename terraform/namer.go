// terraform/namer.go
package terraform

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

const (
	NamingRandom        = "random"
	NamingDeterministic = "deterministic"

	idPrefix = "firewall-"
	idLength = 8
	idChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Namer produces the Terraform resource label of one emitted block. The
// parts identify the block (target, policy name, indexes, rule content).
type Namer interface {
	ResourceID(parts ...string) string
}

// RandomNamer draws a fresh suffix for every block. Suffixes are not
// checked against files written earlier.
type RandomNamer struct {
	rng *rand.Rand
}

// NewRandomNamer uses src when given, otherwise the runtime's global source.
func NewRandomNamer(src rand.Source) *RandomNamer {
	if src == nil {
		return &RandomNamer{}
	}
	return &RandomNamer{rng: rand.New(src)}
}

func (n *RandomNamer) ResourceID(...string) string {
	var sb strings.Builder
	sb.WriteString(idPrefix)
	for i := 0; i < idLength; i++ {
		var k int
		if n.rng != nil {
			k = n.rng.IntN(len(idChars))
		} else {
			k = rand.IntN(len(idChars))
		}
		sb.WriteByte(idChars[k])
	}
	return sb.String()
}

// namespace scopes the name-based UUIDs of DeterministicNamer.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rahulwagh/policymig/resources"))

// DeterministicNamer derives the suffix from the block's identity, so
// regenerating an unchanged policy yields the same labels.
type DeterministicNamer struct{}

func (DeterministicNamer) ResourceID(parts ...string) string {
	id := uuid.NewSHA1(namespace, []byte(strings.Join(parts, "\x00")))
	return idPrefix + strings.ReplaceAll(id.String(), "-", "")[:idLength]
}

// NewNamer returns the namer configured by name.
func NewNamer(naming string) (Namer, error) {
	switch naming {
	case "", NamingRandom:
		return NewRandomNamer(nil), nil
	case NamingDeterministic:
		return DeterministicNamer{}, nil
	default:
		return nil, fmt.Errorf("unknown naming scheme %q (want %s or %s)", naming, NamingRandom, NamingDeterministic)
	}
}
