package synfit

import "context"

// RowEvent reports one scored grid point.
type RowEvent struct {
	RunID string
	Index int
	// Done counts the rows scored so far, including this one.
	Done  int
	Total int
	Names []string
	Row   Row
}

// Observer is notified while a fit runs. Calls may come from several
// goroutines at once.
type Observer interface {
	StateChanged(ctx context.Context, runID string, state State)
	RowScored(ctx context.Context, ev RowEvent)
}
