package port

// Quick fix priorities. Lower values are more important.
const (
	PriorityHigh    = 1
	PriorityDefault = 5
	PriorityLow     = 9
)

// QuickFix is a deferred repair for a metadata error. Nothing in the
// propagation engine applies fixes; callers do, and must propagate again
// afterwards.
type QuickFix interface {
	// Priority ranks fixes of one error; lower is more important
	Priority() int

	// Significant reports whether applying the fix restructures the graph
	// or otherwise changes more than a single parameter
	Significant() bool

	Description() string

	Apply() error
}

type quickFix struct {
	priority    int
	significant bool
	description string
	apply       func() error
}

// NewQuickFix creates a fix that runs apply when invoked.
func NewQuickFix(priority int, description string, apply func() error) QuickFix {
	return &quickFix{priority: priority, description: description, apply: apply}
}

// NewSignificantQuickFix creates a fix that changes the graph structure.
func NewSignificantQuickFix(priority int, description string, apply func() error) QuickFix {
	return &quickFix{priority: priority, significant: true, description: description, apply: apply}
}

func (f *quickFix) Priority() int { return f.priority }
func (f *quickFix) Significant() bool { return f.significant }
func (f *quickFix) Description() string { return f.description }

func (f *quickFix) Apply() error {
	if f.apply == nil {
		return nil
	}
	return f.apply()
}
