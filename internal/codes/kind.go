// Package codes defines the code kinds probed against the catalog and the
// exhaustive, ordered code space each kind enumerates.
package codes

import (
	"fmt"
	"strings"
)

// Kind selects which code family is being crawled.
type Kind int

// Supported kinds.
const (
	KindCarrier Kind = iota + 1
	KindAirport
)

// Kinds returns every kind in crawl order.
func Kinds() []Kind {
	return []Kind{KindCarrier, KindAirport}
}

// String returns the lowercase kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindCarrier:
		return "carrier"
	case KindAirport:
		return "airport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CodeLength is the number of characters in a code of this kind.
func (k Kind) CodeLength() int {
	switch k {
	case KindCarrier:
		return 2
	case KindAirport:
		return 3
	default:
		return 0
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindCarrier || k == KindAirport
}

// ParseKind maps a user-supplied name to a Kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "carrier", "airline":
		return KindCarrier, nil
	case "airport", "air":
		return KindAirport, nil
	default:
		return 0, fmt.Errorf("unknown code kind %q (want carrier or airport)", raw)
	}
}
