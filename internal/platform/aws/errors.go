package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/imamik/stackctl/internal/provisioning"
)

// API error codes that mean the resource is gone.
var notFoundCodes = []string{
	"InvalidVpcID.NotFound",
	"InvalidSubnetID.NotFound",
	"InvalidNetworkAclID.NotFound",
	"InvalidGroup.NotFound",
	"InvalidGroupId.Malformed",
	"InvalidInstanceID.NotFound",
	"ClusterNotFoundException",
	"ServiceNotFoundException",
	"ServiceNotActiveException",
	"LoadBalancerNotFound",
	"NoSuchHostedZone",
}

// API error codes that mean a create collided with an existing resource.
var alreadyExistsCodes = []string{
	"InvalidGroup.Duplicate",
	"InvalidSubnet.Conflict",
	"DuplicateLoadBalancerName",
	"InvalidPermission.Duplicate",
}

// API error codes worth another attempt. DependencyViolation clears once
// dependent resources finish deleting.
var retryableCodes = []string{
	"DependencyViolation",
	"RequestLimitExceeded",
	"Throttling",
	"ThrottlingException",
	"PriorRequestNotComplete",
	"ResourceInUseException",
	"IncorrectState",
}

// hasErrorCode reports whether err is an API error with one of codes.
func hasErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, provisioning.ErrNotFound) || hasErrorCode(err, notFoundCodes...)
}

// IsRetryable checks if an error is transient.
func IsRetryable(err error) bool {
	return hasErrorCode(err, retryableCodes...)
}

// mapError wraps API errors so callers can match them against the
// provisioning sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case hasErrorCode(err, notFoundCodes...):
		return fmt.Errorf("%s: %w", op, errors.Join(provisioning.ErrNotFound, err))
	case hasErrorCode(err, alreadyExistsCodes...):
		return fmt.Errorf("%s: %w", op, errors.Join(provisioning.ErrAlreadyExists, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
