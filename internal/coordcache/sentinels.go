package coordcache

// sentinel is an identity-unique marker type. Two sentinels are never equal
// to each other or to any value a deserializer could legitimately produce,
// because equality here is pointer identity, not structural comparison.
type sentinel struct {
	name string
}

func (s *sentinel) String() string {
	return s.name
}

var (
	// UseDefault is returned by a Deserializer to force a StaticEntry or
	// directory child slot back to its default value with valid=false.
	UseDefault = &sentinel{name: "USE_DEFAULT"}

	// static is the internal Directory-slot marker meaning "resolve this
	// mapped path through the StaticEntry table, not this Directory's own
	// deserializer". Never observable by readers; FetchDirectoryValues
	// resolves it before returning.
	static = &sentinel{name: "STATIC"}
)

// isSentinel reports whether v is one of the package's identity-unique
// markers, which must never be handed back to a caller as a cache value.
func isSentinel(v any) bool {
	return v == UseDefault || v == static
}
