package channel

import (
	"fmt"
	"strings"
	"unicode"
)

// Scheme is the only address scheme understood by a Context.
const Scheme = "inproc://"

// Kind selects the messaging pattern of an endpoint.
type Kind int

const (
	// Pair connects exactly two endpoints, each able to send and receive.
	Pair Kind = iota
)

func (k Kind) String() string {
	switch k {
	case Pair:
		return "pair"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Validate returns ErrUnsupportedKind for kinds a Context cannot create.
func (k Kind) Validate() error {
	if k != Pair {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
	}
	return nil
}

// ParseAddress checks addr and returns the name part after the scheme.
func ParseAddress(addr string) (string, error) {
	name, ok := strings.CutPrefix(addr, Scheme)
	if !ok {
		return "", fmt.Errorf("%w: %q: expected %s<name>", ErrInvalidAddress, addr, Scheme)
	}
	if name == "" {
		return "", fmt.Errorf("%w: %q: empty name", ErrInvalidAddress, addr)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q: name contains whitespace", ErrInvalidAddress, addr)
	}
	return name, nil
}
