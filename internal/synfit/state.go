package synfit

// State is the stage an Engine has reached.
type State int

const (
	Initialized State = iota
	Sampled
	LibraryBuilt
	Iterating
	Scored
	BestFitSelected
	Failed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Sampled:
		return "sampled"
	case LibraryBuilt:
		return "library_built"
	case Iterating:
		return "iterating"
	case Scored:
		return "scored"
	case BestFitSelected:
		return "best_fit_selected"
	case Failed:
		return "failed"
	}
	return "unknown"
}
