package tenant

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidTenant is returned when a tenant identifier has an invalid format.
var ErrInvalidTenant = errors.New("invalid tenant id")

const maxTenantIDLength = 128

// Tenant identifiers end up in blob store keys, so the charset is
// restricted: no path separators, no leading dot.
var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]*$`)

// ValidateTenantID checks a tenant identifier for use in state and blob keys.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenant
	}
	if len(tenantID) > maxTenantIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidTenant, maxTenantIDLength)
	}
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}
	return nil
}
