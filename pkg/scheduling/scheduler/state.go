package scheduler

// State is the lifecycle state of a Job.
type State int32

const (
	// StateNew jobs have been created but their body has not started.
	StateNew State = iota

	// StateActive jobs are running their body.
	StateActive

	// StateCompleting jobs finished their body normally and wait for children.
	StateCompleting

	// StateCanceling jobs were cancelled or failed and wait for children.
	StateCanceling

	// StateCompleted is the terminal state of a job that finished normally.
	StateCompleted

	// StateCancelled is the terminal state of a job that was cancelled or failed.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateCompleting:
		return "completing"
	case StateCanceling:
		return "canceling"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is StateCompleted or StateCancelled.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// next lists the legal transitions; every path is monotonic.
var next = map[State][]State{
	StateNew:        {StateActive, StateCanceling},
	StateActive:     {StateCompleting, StateCanceling},
	StateCompleting: {StateCompleted},
	StateCanceling:  {StateCancelled},
}

func (s State) canMoveTo(to State) bool {
	for _, allowed := range next[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TaskState describes how a job's task relates to the worker pool.
type TaskState int32

const (
	// Runnable tasks are queued for a worker.
	Runnable TaskState = iota

	// Running tasks hold a worker.
	Running

	// Parked tasks wait on a channel, timer or join without holding a worker.
	Parked

	// Terminal tasks have finished their body.
	Terminal
)

func (s TaskState) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Parked:
		return "parked"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}
