package topology

import (
	"fmt"
	"time"
)

// CallErrorKind classifies terminal provider-call failures
type CallErrorKind string

const (
	// CallRejected covers validation failures and any other error the
	// provider reports as final for this request
	CallRejected CallErrorKind = "rejected"

	// CallThrottled means the provider refused the call due to rate
	// limiting even after the gateway's own retry policy gave up
	CallThrottled CallErrorKind = "throttled"

	// CallNotFound means a referenced resource does not exist on the
	// provider side
	CallNotFound CallErrorKind = "not-found"
)

// ProviderCallError is a terminal failure of one gateway call, surfaced
// verbatim to the orchestrator. The orchestrator never retries these.
type ProviderCallError struct {
	Kind CallErrorKind
	Code string
	Err  error
}

func (e *ProviderCallError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider call %s (%s): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("provider call %s: %v", e.Kind, e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

// ReadinessTimeoutError is returned by WaitUntilReady when the polled
// resource never reached its usable state within the bound
type ReadinessTimeoutError struct {
	Kind       ResourceKind
	ResourceID string
	Waited     time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("%s %s not ready after %s", e.Kind, e.ResourceID, e.Waited)
}

// OrchestrationError reports the first failing provisioning step. It
// carries the partial Topology built before the failure so the caller can
// decide what to reconcile; the orchestrator performs no compensating
// deletes itself.
type OrchestrationError struct {
	Step     string
	State    State
	Topology *Topology
	Err      error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("provisioning step %q failed in state %s: %v", e.Step, e.State, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }
