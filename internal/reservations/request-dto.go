package reservations

// CancelRequest optionally overrides the audit details of a cancellation
type CancelRequest struct {
	Source string `json:"source" binding:"omitempty,max=32"`
	Reason string `json:"reason" binding:"omitempty,max=255"`
}
