package agent

// State is the phase a run is in.
type State int

const (
	Building State = iota
	Inferring
	Parsing
	Dispatching
	Done
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Inferring:
		return "inferring"
	case Parsing:
		return "parsing"
	case Dispatching:
		return "dispatching"
	case Done:
		return "done"
	}
	return "unknown"
}

// LoopState tracks one run's progress. Step counts completed steps.
type LoopState struct {
	Step       int
	MaxSteps   int
	State      State
	Terminated bool
}
