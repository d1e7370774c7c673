package actor

// State is the life-cycle state of an [Actor].
type State int32

const (
	// Stopped: no workers, submissions refused (or trigger a lazy start).
	Stopped State = iota
	// Starting: the queue accepts tasks, workers are being spawned.
	Starting
	// Started: workers are running and the queue accepts tasks.
	Started
	// Stopping: submissions are refused, workers drain or abandon the queue.
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StartPolicy controls when an actor spawns its workers.
type StartPolicy int

const (
	// Lazy actors start on the first submitted task.
	Lazy StartPolicy = iota
	// Eager actors are started by New.
	Eager
)

func (p StartPolicy) String() string {
	if p == Eager {
		return "eager"
	}
	return "lazy"
}
