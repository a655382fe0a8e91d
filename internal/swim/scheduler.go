package swim

// probeScheduler holds the round-robin-with-random-insertion probe-target
// list described in spec §4.3. The local node is never present in it.
type probeScheduler struct {
	list []Node
	idx  int
	rnd  RandSource
}

func newProbeScheduler(rnd RandSource) *probeScheduler {
	return &probeScheduler{rnd: rnd}
}

// insert adds a non-local member at a uniformly random position. If the
// chosen index falls at or before the current cursor, the cursor advances
// so the new entry isn't skipped nor re-pinged immediately.
func (s *probeScheduler) insert(n Node) {
	for _, existing := range s.list {
		if existing.Key() == n.Key() {
			return
		}
	}
	insertIdx := 0
	if len(s.list) > 0 {
		insertIdx = s.rnd.Intn(len(s.list) + 1)
	}
	s.list = append(s.list, Node{})
	copy(s.list[insertIdx+1:], s.list[insertIdx:])
	s.list[insertIdx] = n
	if insertIdx <= s.idx {
		s.idx = (s.idx + 1) % len(s.list)
	}
}

// remove drops a member (on death). If removed before the cursor, the
// cursor decrements; if it lands exactly at the new length, it wraps to 0.
func (s *probeScheduler) remove(n Node) {
	r := -1
	for i, existing := range s.list {
		if existing.Key() == n.Key() {
			r = i
			break
		}
	}
	if r == -1 {
		return
	}
	s.list = append(s.list[:r], s.list[r+1:]...)
	if r < s.idx {
		s.idx--
	}
	if len(s.list) == 0 {
		s.idx = 0
	} else if s.idx >= len(s.list) {
		s.idx = 0
	}
}

// next returns the next probe target and advances the cursor, reshuffling
// the list when a full traversal completes (spec §4.3, mirroring SWIM §4.3).
func (s *probeScheduler) next() (Node, bool) {
	if len(s.list) == 0 {
		return Node{}, false
	}
	target := s.list[s.idx]
	s.idx++
	if s.idx >= len(s.list) {
		s.idx = 0
		s.rnd.Shuffle(len(s.list), func(i, j int) {
			s.list[i], s.list[j] = s.list[j], s.list[i]
		})
	}
	return target, true
}

func (s *probeScheduler) contains(n Node) bool {
	for _, existing := range s.list {
		if existing.Key() == n.Key() {
			return true
		}
	}
	return false
}

func (s *probeScheduler) size() int { return len(s.list) }
