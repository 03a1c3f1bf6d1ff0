package loom

// RunStatus is the lifecycle state of one agent run.
// Terminal states are absorbing: no transition leaves them.
type RunStatus string

const (
	// RunPending means the run is known but has not started streaming.
	RunPending RunStatus = "pending"

	// RunRunning means the run's event sequence is flowing.
	RunRunning RunStatus = "running"

	// RunFinished means the remote side reported successful completion.
	RunFinished RunStatus = "finished"

	// RunErrored means the run ended with an error, remote or local.
	RunErrored RunStatus = "errored"
)

// Terminal reports whether the status is absorbing.
func (s RunStatus) Terminal() bool {
	return s == RunFinished || s == RunErrored
}
