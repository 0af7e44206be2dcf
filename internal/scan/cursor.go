package scan

// progress tracks which universe positions have finished so the cursor only
// ever advances over a contiguous prefix. With workers completing out of
// order, position N may finish before N-1; committing N then would let a
// crash skip N-1 on resume.
type progress struct {
	next int          // first position not yet contiguous
	done map[int]bool // completed positions at or beyond next
}

func newProgress(start int) *progress {
	return &progress{
		next: start,
		done: make(map[int]bool),
	}
}

// mark records position idx as completed and returns the new contiguous
// frontier: the index just past the last contiguous completed position.
// Returns frontier == start value until the prefix actually grows.
func (p *progress) mark(idx int) int {
	p.done[idx] = true
	for p.done[p.next] {
		delete(p.done, p.next)
		p.next++
	}
	return p.next
}

// frontier returns the current contiguous frontier without marking
func (p *progress) frontier() int {
	return p.next
}
