package pipeline

import (
	"fmt"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"
)

type State string

const (
	StateIdle        State = "idle"
	StateExtracting  State = "extracting"
	StateClassifying State = "classifying"
	StatePersisting  State = "persisting"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
)

var transitions = map[State][]State{
	StateIdle:        {StateExtracting, StateClassifying, StateFailed},
	StateExtracting:  {StateClassifying, StateFailed},
	StateClassifying: {StatePersisting, StateFailed},
	StatePersisting:  {StateSucceeded, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) canMoveTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Result is the outcome of a single capture run.
type Result struct {
	CaptureID string
	State     State
	Record    *models.JobRecord
	Row       *models.SheetRow
	Err       error
}

func (r *Result) advance(next State) {
	if !r.State.canMoveTo(next) {
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", r.State, next))
	}
	r.State = next
}

func (r *Result) fail(err error) *Result {
	r.Err = err
	r.advance(StateFailed)
	return r
}

// Success is true only once the row has been accepted by the webhook.
func (r *Result) Success() bool {
	return r.State == StateSucceeded
}

// Reply is the wire form returned to whoever triggered the capture.
func (r *Result) Reply() models.CaptureReply {
	reply := models.CaptureReply{
		Success:   r.Success(),
		CaptureID: r.CaptureID,
		State:     string(r.State),
	}
	if r.Success() {
		reply.Data = r.Record
	} else {
		reply.Error = errors.Message(r.Err)
	}
	return reply
}
