package enumeration

// SeenSet tracks record identifiers already delivered during a single run.
// It only ever grows and lives for the lifetime of the run, so memory is
// proportional to the number of distinct records enumerated. That is fine
// for tens of thousands of records but is a hard scaling limit for
// single-pass, non-resumable deduplication.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet creates an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add marks id as seen and reports whether it was not seen before.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether id has been seen.
func (s *SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of distinct identifiers seen.
func (s *SeenSet) Len() int { return len(s.ids) }
