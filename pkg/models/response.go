package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// RouteResponse is returned by the route endpoint.
type RouteResponse struct {
	LeadID   string           `json:"lead_id"`
	Assignee *Rep             `json:"assignee,omitempty"`
	RuleID   string           `json:"rule_id,omitempty"`
	Strategy string           `json:"strategy,omitempty"`
	Routed   bool             `json:"routed"`
	Stored   int              `json:"stored"`
	Actions  []FollowUpAction `json:"actions"`
}

// SuggestedActionsResponse is returned by the preview endpoint.
type SuggestedActionsResponse struct {
	LeadID  string           `json:"lead_id"`
	Actions []FollowUpAction `json:"actions"`
}
