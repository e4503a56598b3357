package core

import (
	"errors"
	"fmt"

	"github.com/huangsam/flowlens/schema"
)

// Remediation links returned with terminal results.
const (
	MetricSettingsLink      = "/settings/metrics"
	IntegrationSettingsLink = "/settings/integrations"
)

// ConfigurationError covers unknown sprints, missing metric bindings, unsupported
// metrics and invalid filters. It ends a request with NOT_CONFIGURED.
type ConfigurationError struct {
	Reason string
	Link   string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IntegrationAbsentError ends a request with NO_INTEGRATION.
type IntegrationAbsentError struct {
	OrgID  string
	Source schema.Source
	Link   string
}

func (e *IntegrationAbsentError) Error() string {
	return fmt.Sprintf("no active %s integration for organization %q", e.Source, e.OrgID)
}

// GeneralComputationError wraps any other failure with the phase it happened in.
type GeneralComputationError struct {
	Phase schema.Phase
	Err   error
}

func (e *GeneralComputationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *GeneralComputationError) Unwrap() error { return e.Err }

func configError(reason string, err error) error {
	return &ConfigurationError{Reason: reason, Link: MetricSettingsLink, Err: err}
}

func generalError(phase schema.Phase, err error) error {
	var general *GeneralComputationError
	if errors.As(err, &general) {
		return err
	}
	return &GeneralComputationError{Phase: phase, Err: err}
}

// IsExpected reports whether err is a terminal configuration or integration error
// rather than a bug.
func IsExpected(err error) bool {
	var cfgErr *ConfigurationError
	var intErr *IntegrationAbsentError
	return errors.As(err, &cfgErr) || errors.As(err, &intErr)
}
