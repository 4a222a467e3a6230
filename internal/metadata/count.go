package metadata

import "fmt"

// Count is a number of examples that is either known exactly or only
// bounded. The zero value is the fully unknown count [0, ∞).
type Count struct {
	min     int
	max     int
	bounded bool
}

// ExactCount returns a count known to be n.
func ExactCount(n int) Count {
	if n < 0 {
		n = 0
	}
	return Count{min: n, max: n, bounded: true}
}

// AtLeast returns a count with a lower bound and no upper bound.
func AtLeast(n int) Count {
	if n < 0 {
		n = 0
	}
	return Count{min: n}
}

// AtMost returns a count bounded above by n.
func AtMost(n int) Count {
	return Between(0, n)
}

// Between returns the inclusive range [lo, hi].
func Between(lo, hi int) Count {
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		lo, hi = hi, lo
		if lo < 0 {
			lo = 0
		}
	}
	return Count{min: lo, max: hi, bounded: true}
}

// UnknownCount returns the count that carries no information.
func UnknownCount() Count {
	return Count{}
}

// Min returns the lower bound.
func (c Count) Min() int {
	return c.min
}

// Max returns the upper bound and whether there is one.
func (c Count) Max() (int, bool) {
	return c.max, c.bounded
}

// IsExact reports whether the count is known exactly.
func (c Count) IsExact() bool {
	return c.bounded && c.min == c.max
}

// IsUnknown reports whether the count carries no information at all.
func (c Count) IsUnknown() bool {
	return !c.bounded && c.min == 0
}

// Add returns the count of the concatenation of two example sets.
func (c Count) Add(o Count) Count {
	r := Count{min: c.min + o.min}
	if c.bounded && o.bounded {
		r.max = c.max + o.max
		r.bounded = true
	}
	return r
}

// Union returns the smallest range that contains both counts.
func (c Count) Union(o Count) Count {
	r := Count{min: min(c.min, o.min)}
	if c.bounded && o.bounded {
		r.max = max(c.max, o.max)
		r.bounded = true
	}
	return r
}

// CanReach reports whether the count may be at least n.
func (c Count) CanReach(n int) bool {
	return !c.bounded || c.max >= n
}

func (c Count) String() string {
	switch {
	case c.IsExact():
		return fmt.Sprintf("%d", c.min)
	case c.IsUnknown():
		return "?"
	case !c.bounded:
		return fmt.Sprintf(">=%d", c.min)
	default:
		return fmt.Sprintf("[%d..%d]", c.min, c.max)
	}
}
