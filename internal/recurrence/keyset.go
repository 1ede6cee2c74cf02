package recurrence

// KeySet is a set of natural keys already accounted for by a store.
type KeySet map[string]struct{}

// NewKeySet builds a set from the given keys, ignoring empty ones.
func NewKeySet(keys ...string) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set.Add(key)
	}
	return set
}

// Add inserts key. Empty keys are ignored.
func (s KeySet) Add(key string) {
	if key == "" {
		return
	}
	s[key] = struct{}{}
}

// Has reports whether key is present.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Merge adds every key of other to s.
func (s KeySet) Merge(other KeySet) {
	for key := range other {
		s[key] = struct{}{}
	}
}

// Remove deletes key from the set.
func (s KeySet) Remove(key string) {
	delete(s, key)
}
