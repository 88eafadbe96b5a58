package status

// Status represents deck generation job status
type Status int

const (
	// Pending value
	Pending Status = iota + 1
	// Transcribing value
	Transcribing
	// Analyzing value
	Analyzing
	// Editing value
	Editing
	// Generating value
	Generating
	// Completed value
	Completed
	// Failed value
	Failed
	// Cancelled value
	Cancelled
)

var (
	statusName = map[Status]string{Pending: "pending", Transcribing: "transcribing",
		Analyzing: "analyzing", Editing: "editing", Generating: "generating",
		Completed: "completed", Failed: "failed", Cancelled: "cancelled"}
	nameStatus = map[string]Status{"pending": Pending, "transcribing": Transcribing,
		"analyzing": Analyzing, "editing": Editing, "generating": Generating,
		"completed": Completed, "failed": Failed, "cancelled": Cancelled}
)

// Name returns string value of the status
func Name(st Status) string {
	return statusName[st]
}

// From parses status from string
func From(st string) Status {
	return nameStatus[st]
}

// Terminal indicates no further transition is allowed
func Terminal(st Status) bool {
	return st == Completed || st == Failed || st == Cancelled
}

// ValidTransition enforces the allowed job state machine edges
func ValidTransition(from, to Status) bool {
	if Terminal(from) {
		return false
	}
	if to == Failed || to == Cancelled {
		return true
	}
	switch from {
	case Pending:
		return to == Transcribing
	case Transcribing:
		return to == Analyzing
	case Analyzing:
		return to == Editing || to == Generating
	case Editing:
		return to == Editing || to == Generating
	case Generating:
		return to == Completed
	}
	return false
}
