// Package model provides value objects for task status and priority.
package model

// Status represents the lifecycle state of a task.
type Status string

// Task statuses. Exactly these three values are ever persisted.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether the status is one of the three known values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// String returns the persisted string form of the status.
func (s Status) String() string {
	return string(s)
}

// Display returns a human-readable display name.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// Icon returns a short text icon for the status.
func (s Status) Icon() string {
	switch s {
	case StatusTodo:
		return "[ ]"
	case StatusInProgress:
		return "[~]"
	case StatusDone:
		return "[x]"
	}
	return "[?]"
}

// Cycle advances the status: todo -> in_progress -> done -> todo.
// It is total: an unknown status is treated as todo and advances from there.
func (s Status) Cycle() Status {
	switch s {
	case StatusTodo:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	case StatusDone:
		return StatusTodo
	}
	return StatusInProgress
}

// Toggle flips directly between done and not-done, bypassing in_progress.
func (s Status) Toggle() Status {
	if s == StatusDone {
		return StatusTodo
	}
	return StatusDone
}

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", NewValidationError("invalid status: " + s)
	}
	return st, nil
}

// Priority represents the display priority tier derived from story points.
type Priority string

// Priority tiers, highest first.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityTrivial  Priority = "trivial"
)

// String returns the persisted string form of the priority.
func (p Priority) String() string {
	return string(p)
}

// Display returns a capitalized display name.
func (p Priority) Display() string {
	switch p {
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	case PriorityTrivial:
		return "Trivial"
	}
	return string(p)
}

// PriorityFromStoryPoints derives the priority tier from story points.
// The mapping is total: zero and negative story points clamp to trivial.
func PriorityFromStoryPoints(points int) Priority {
	switch {
	case points >= 13:
		return PriorityCritical
	case points >= 8:
		return PriorityHigh
	case points >= 5:
		return PriorityMedium
	case points >= 3:
		return PriorityLow
	default:
		return PriorityTrivial
	}
}
