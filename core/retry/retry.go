package retry

// Policy is a bounded retry budget: a fixed number of recovery attempts
// before the caller escalates to a different remedy. It is not safe for
// concurrent use; wrap it in the owner's synchronization.
type Policy struct {
	ceiling int
	used    int
}

// NewPolicy creates a Policy allowing up to ceiling attempts.
func NewPolicy(ceiling int) *Policy {
	if ceiling < 0 {
		ceiling = 0
	}
	return &Policy{ceiling: ceiling}
}

// Attempt consumes one attempt. It returns false when the budget is already
// exhausted, in which case nothing is consumed.
func (p *Policy) Attempt() bool {
	if p.used >= p.ceiling {
		return false
	}
	p.used++
	return true
}

// Exhausted reports whether the budget is used up.
func (p *Policy) Exhausted() bool {
	return p.used >= p.ceiling
}

// Used returns how many attempts have been consumed.
func (p *Policy) Used() int {
	return p.used
}

// Ceiling returns the configured attempt ceiling.
func (p *Policy) Ceiling() int {
	return p.ceiling
}

// Reset restores the full budget, e.g. when a new track becomes current.
func (p *Policy) Reset() {
	p.used = 0
}
