package driving

import "context"

// ComponentStatus is the reachability of one external collaborator.
type ComponentStatus struct {
	// Name identifies the component, e.g. "embedding".
	Name string

	// Detail describes the component, e.g. the model name.
	Detail string

	// Err is nil when the component answered.
	Err error
}

// HealthService checks external collaborators.
type HealthService interface {
	// Check pings every collaborator and reports each result.
	Check(ctx context.Context) []ComponentStatus
}
