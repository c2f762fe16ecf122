package model

// ExportState is the remote export job state. The server reports
// created and started as request acknowledgements; processing is
// re-observed until a terminal state.
type ExportState string

const (
	ExportStateCreated    ExportState = "created"
	ExportStateStarted    ExportState = "started"
	ExportStateProcessing ExportState = "processing"
	ExportStateDone       ExportState = "done"
	ExportStateFailed     ExportState = "failed"
)

// Terminal reports whether the state ends the poll loop.
func (s ExportState) Terminal() bool {
	return s == ExportStateDone || s == ExportStateFailed
}
