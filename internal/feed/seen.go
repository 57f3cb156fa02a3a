package feed

// seenSet is a bounded insertion-ordered set; the oldest ids are evicted
// once max is exceeded.
type seenSet struct {
	max   int
	order []string
	set   map[string]struct{}
}

func newSeenSet(max int) *seenSet {
	if max <= 0 {
		max = 5000
	}
	return &seenSet{max: max, set: make(map[string]struct{})}
}

func (s *seenSet) Has(id string) bool {
	_, ok := s.set[id]
	return ok
}

// Add inserts id and reports whether it was new.
func (s *seenSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.set[id]; ok {
		return false
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) <= s.max {
		return true
	}
	overflow := len(s.order) - s.max
	for _, old := range s.order[:overflow] {
		delete(s.set, old)
	}
	s.order = append([]string(nil), s.order[overflow:]...)
	return true
}

// Remove drops id so it can be added again.
func (s *seenSet) Remove(id string) {
	if _, ok := s.set[id]; !ok {
		return
	}
	delete(s.set, id)
	for i, x := range s.order {
		if x == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *seenSet) Len() int { return len(s.order) }
