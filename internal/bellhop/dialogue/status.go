package dialogue

// Status is the terminal outcome tag of one evaluation. It is echoed back to
// the webhook caller as {"status": ...} and is the only thing Evaluate
// returns; every failure mode maps onto a tag rather than an error.
type Status string

const (
	// StatusOK acknowledges a delivery with no actionable message.
	StatusOK Status = "ok"
	// StatusWaitingCustomer means the customer prompt was (re)sent.
	StatusWaitingCustomer Status = "waiting for customer"
	// StatusWaitingJob means a job candidate list was offered.
	StatusWaitingJob Status = "waiting for job"
	// StatusWaitingAction means the action menu was offered.
	StatusWaitingAction Status = "waiting for action"
	// StatusNoJobs means the chosen scope matched no jobs; the step did not
	// advance.
	StatusNoJobs Status = "no jobs"
	// StatusInvalidSelection, StatusInvalidJob and StatusInvalidAction mean
	// the input was not recognized at the current step; the step did not
	// change.
	StatusInvalidSelection Status = "invalid selection"
	StatusInvalidJob       Status = "invalid job"
	StatusInvalidAction    Status = "invalid action"
	// StatusTriggered concludes a trigger branch, successful or not; the
	// session is cleared either way.
	StatusTriggered Status = "triggered"
	// StatusStatus reports a status check; the session is untouched.
	StatusStatus Status = "status"
	// StatusTerminated means the sender ended the dialogue.
	StatusTerminated Status = "terminated"
	// StatusHandled covers a session step value no branch recognizes.
	StatusHandled Status = "handled"
	// StatusError is returned for any unexpected internal fault.
	StatusError Status = "error"
)
