package local

import "fmt"

// State is a step of the local pipeline.
type State string

const (
	StateReceived          State = "RECEIVED"
	StatePreprocessed      State = "PREPROCESSED"
	StateFirstPassOCR      State = "FIRST_PASS_OCR"
	StateProfileDetected   State = "PROFILE_DETECTED"
	StateGatekeeperChecked State = "GATEKEEPER_CHECKED"
	StateROIRefined        State = "ROI_REFINED"
	StateNoROI             State = "NO_ROI"
	StateFieldsParsed      State = "FIELDS_PARSED"
	StateScored            State = "SCORED"
	StateDone              State = "DONE"
	StateRejected          State = "REJECTED"
	StateFailed            State = "ERROR"
)

// StateError records the state the pipeline was in when it failed.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("local pipeline failed in %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
