// Package transport bridges the service config to the modular transport
// registry in github.com/drblury/wormhole/transport.
package transport

import (
	registry "github.com/drblury/wormhole/transport"
)

// Capabilities is an alias for the registry Capabilities.
type Capabilities = registry.Capabilities

// GetCapabilities returns the capabilities registered for a transport name.
func GetCapabilities(transportName string) Capabilities {
	return registry.GetCapabilities(transportName)
}

// Names lists the registered transports.
func Names() []string {
	return registry.DefaultRegistry.Names()
}
