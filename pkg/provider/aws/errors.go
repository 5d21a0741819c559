package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/diegogrr/vpcweaver/pkg/topology"
)

// classifyCallError maps an AWS SDK error to the orchestrator's terminal
// call-error taxonomy. The SDK's own retry middleware has already given
// up by the time an error reaches here, so everything is final for this
// attempt.
func classifyCallError(err error) *topology.ProviderCallError {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &topology.ProviderCallError{Kind: topology.CallRejected, Err: err}
	}

	code := apiErr.ErrorCode()
	kind := topology.CallRejected
	switch {
	case code == "Throttling" || code == "ThrottlingException" || code == "RequestLimitExceeded":
		kind = topology.CallThrottled
	case strings.HasSuffix(code, ".NotFound") || code == "ResourceNotFoundException":
		kind = topology.CallNotFound
	}
	return &topology.ProviderCallError{Kind: kind, Code: code, Err: err}
}
