package services

import (
	"context"
)

// Provider is an external dependency the engine reports health for
type Provider interface {
	// Type returns the service type name
	Type() string

	// HealthCheck checks if the service is available
	HealthCheck(ctx context.Context) error
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	serviceType string
}

// Type returns the service type
func (p *BaseProvider) Type() string {
	return p.serviceType
}

// PingFunc checks one dependency
type PingFunc func(ctx context.Context) error

// FuncProvider adapts a ping function (e.g. a repository's Ping) to Provider
type FuncProvider struct {
	BaseProvider
	ping PingFunc
}

// NewFuncProvider creates a provider of the given type backed by ping
func NewFuncProvider(serviceType string, ping PingFunc) *FuncProvider {
	return &FuncProvider{
		BaseProvider: BaseProvider{serviceType: serviceType},
		ping:         ping,
	}
}

// HealthCheck runs the ping function
func (p *FuncProvider) HealthCheck(ctx context.Context) error {
	return p.ping(ctx)
}
