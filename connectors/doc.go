// Package connectors pulls day-ahead prices from remote APIs and turns them
// into the today/tomorrow series consumed by the service. Concrete clients
// live in subpackages and are built from configuration by connectors/factory.
package connectors
