// Package provider maintains the registry of verification providers and
// executes verification calls against them.
package provider

import (
	"strings"
	"time"

	"realname/internal/method"
	"realname/pkg/domain"
	dErrors "realname/pkg/domain-errors"
)

// Type identifies the kind of upstream a provider fronts.
type Type string

const (
	TypeGovernment Type = "government"
	TypeCarrier    Type = "carrier"
	TypeBank       Type = "bank"
	TypeAggregator Type = "aggregator"
)

// Provider is one external verification endpoint. SupportedMethods is an
// explicit allow-list, never derived from the provider type.
type Provider struct {
	ID               domain.ProviderID
	Name             string
	Code             string
	Type             Type
	SupportedMethods []method.Method
	Endpoint         string
	SecretConfig     map[string]string
	Active           bool
	Priority         int
	Valid            bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// New validates and constructs a provider. Code is the globally unique
// identifier used for signer selection and audit trails.
func New(name, code string, typ Type, methods []method.Method, endpoint string, priority int) (*Provider, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider code is required")
	}
	if name = strings.TrimSpace(name); name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider name is required")
	}
	if priority < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider priority must not be negative")
	}
	if len(methods) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider must support at least one method")
	}
	for _, m := range methods {
		if !m.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown method %q", m)
		}
	}

	now := time.Now()
	return &Provider{
		ID:               domain.NewProviderID(),
		Name:             name,
		Code:             code,
		Type:             typ,
		SupportedMethods: methods,
		Endpoint:         endpoint,
		SecretConfig:     map[string]string{},
		Active:           true,
		Priority:         priority,
		Valid:            true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Supports reports whether the provider's allow-list contains m.
func (p *Provider) Supports(m method.Method) bool {
	for _, supported := range p.SupportedMethods {
		if supported == m {
			return true
		}
	}
	return false
}

// Selectable reports whether the provider may receive traffic for m.
func (p *Provider) Selectable(m method.Method) bool {
	return p.Active && p.Valid && p.Supports(m)
}

// Result is the uniform outcome of one verification call.
type Result struct {
	ID               domain.ResultID
	RequestID        string
	Success          bool
	Confidence       *float64 // nil when the provider reports none
	ErrorCode        string
	ErrorMessage     string
	ResponseData     map[string]any
	LatencyMs        int64
	ProviderID       domain.ProviderID
	AuthenticationID domain.AuthenticationID
	CreatedAt        time.Time
}
