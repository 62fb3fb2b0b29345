package shim

// Stage is a step of the per-request dispatch state machine.
type Stage int

const (
	StageReceived Stage = iota
	StageRequestValidating
	StageRequestRejected
	StageDispatching
	StageHandlerRunning
	StageHandlerFaulted
	StageResponseCoercing
	StageResponseValidating
	StageResponseSkipped
	StageResponseRejected
	StageCompleted
)

var stageNames = map[Stage]string{
	StageReceived:           "Received",
	StageRequestValidating:  "RequestValidating",
	StageRequestRejected:    "RequestRejected",
	StageDispatching:        "Dispatching",
	StageHandlerRunning:     "HandlerRunning",
	StageHandlerFaulted:     "HandlerFaulted",
	StageResponseCoercing:   "ResponseCoercing",
	StageResponseValidating: "ResponseValidating",
	StageResponseSkipped:    "ResponseSkipped",
	StageResponseRejected:   "ResponseRejected",
	StageCompleted:          "Completed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether no further stage follows s.
func (s Stage) Terminal() bool {
	switch s {
	case StageRequestRejected, StageHandlerFaulted, StageResponseRejected, StageCompleted:
		return true
	}
	return false
}

// StageHook observes the stages a request passes through. It is called synchronously on the
// request goroutine and must not block.
type StageHook func(operationID string, stage Stage)
