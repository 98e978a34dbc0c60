package events

const RunCompletedTopic = "pipeline:run_completed"

// RunCompleted is published after every pipeline run with its counters.
type RunCompleted struct {
	Scraped     int
	FilteredOut int
	Duplicates  int
	Delivered   int
	Failed      int
	Duration    float64 // seconds
}
