// Package gateway defines the Gateway capability (C7): the collaborator
// interface that exposes a service-configuration job's port to the outside
// world. The gateway dataplane itself is out of scope (spec.md §11
// Non-goals); this package gives process_gateways (C5) something to drive.
package gateway

import "context"

// ServiceRegistration is what process_gateways (C5) asks the Gateway
// capability to route traffic to.
type ServiceRegistration struct {
	RunName  string
	Hostname string
	Backend  string // instance hostname:port the gateway should proxy to
}

// Gateway is implemented by the gateway dataplane collaborator.
type Gateway interface {
	// RegisterService points hostname at a running service job's backend.
	RegisterService(ctx context.Context, reg ServiceRegistration) error
	// UnregisterService removes a previously registered route, once its job
	// terminates.
	UnregisterService(ctx context.Context, runName string) error
	// SetConfig pushes gateway-wide configuration (TLS, wildcard domain).
	SetConfig(ctx context.Context, key, value string) error
}
