package handler

// ProposeRequest is the body for POST /activities.
type ProposeRequest struct {
	CapitalRequired uint64 `json:"capital_required"`
}

// DeployRequest is the body for POST /admin/activities/{id}/deploy. A zero
// amount activates the already-deployed capital without a top-up.
type DeployRequest struct {
	Amount uint64 `json:"amount,omitempty"`
}

// CompleteRequest is the body for POST /activities/{id}/complete. Outcome is
// signed: positive for profit, negative for loss.
type CompleteRequest struct {
	Outcome int64 `json:"outcome"`
}
