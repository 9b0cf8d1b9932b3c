package library

import "strings"

// Kind names one of the three collections a book can belong to.
type Kind string

const (
	KindFavorites Kind = "favorites"
	KindReading   Kind = "reading"
	KindRead      Kind = "read"
)

// Kinds lists every collection in promotion order, lowest priority first.
var Kinds = []Kind{KindFavorites, KindReading, KindRead}

// legacyKinds maps the query values used by the original library endpoint.
var legacyKinds = map[string]Kind{
	"favoritos": KindFavorites,
	"lendo":     KindReading,
	"lidos":     KindRead,
}

// ParseKind converts a user supplied collection name into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch Kind(name) {
	case KindFavorites, KindReading, KindRead:
		return Kind(name), nil
	}
	if k, ok := legacyKinds[name]; ok {
		return k, nil
	}
	return "", InvalidCollectionKind(s)
}

// Valid reports whether k is one of the known collections.
func (k Kind) Valid() bool {
	return k.rank() >= 0
}

// rank orders collections for promotion: favorites < reading < read.
func (k Kind) rank() int {
	switch k {
	case KindFavorites:
		return 0
	case KindReading:
		return 1
	case KindRead:
		return 2
	default:
		return -1
	}
}

func (k Kind) String() string {
	return string(k)
}
