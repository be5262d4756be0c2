package resource

// Filter decides whether a resource may enter a slot.
// Implementations must be pure.
type Filter interface {
	Matches(t *Type, meta Metadata) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(t *Type, meta Metadata) bool

// Matches calls f.
func (f FilterFunc) Matches(t *Type, meta Metadata) bool {
	return f(t, meta)
}

// Always admits everything.
func Always() Filter {
	return FilterFunc(func(*Type, Metadata) bool { return true })
}

// Never admits nothing.
func Never() Filter {
	return FilterFunc(func(*Type, Metadata) bool { return false })
}

// Equals admits t with any metadata.
func Equals(t *Type) Filter {
	return FilterFunc(func(other *Type, _ Metadata) bool { return other == t })
}

// EqualsExact admits t only with metadata equal to meta. A nil meta matches
// only resources without metadata; it is not a wildcard.
func EqualsExact(t *Type, meta Metadata) Filter {
	meta = Strip(meta)
	return FilterFunc(func(other *Type, otherMeta Metadata) bool {
		return other == t && Equal(meta, otherMeta)
	})
}

// AnyOf admits any of the listed types, ignoring metadata.
func AnyOf(types ...*Type) Filter {
	set := make(map[*Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return FilterFunc(func(other *Type, _ Metadata) bool {
		_, ok := set[other]
		return ok
	})
}

// Not inverts f.
func Not(f Filter) Filter {
	return FilterFunc(func(t *Type, meta Metadata) bool { return !f.Matches(t, meta) })
}

// And admits only what every filter admits. And() admits everything.
func And(filters ...Filter) Filter {
	return FilterFunc(func(t *Type, meta Metadata) bool {
		for _, f := range filters {
			if !f.Matches(t, meta) {
				return false
			}
		}
		return true
	})
}

// Or admits what any filter admits. Or() admits nothing.
func Or(filters ...Filter) Filter {
	return FilterFunc(func(t *Type, meta Metadata) bool {
		for _, f := range filters {
			if f.Matches(t, meta) {
				return true
			}
		}
		return false
	})
}

// HasMetadata admits any type whose metadata carries every key of want with
// an equal value. Extra keys are ignored. An empty want admits everything.
func HasMetadata(want Metadata) Filter {
	want = Strip(want)
	return FilterFunc(func(_ *Type, meta Metadata) bool {
		for k, v := range want {
			got, ok := meta[k]
			if !ok || !valuesEqual(v, got) {
				return false
			}
		}
		return true
	})
}
