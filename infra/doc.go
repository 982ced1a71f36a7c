// Package infra contains technical adapters such as the MQTT client, the
// zerolog logger, metrics exporters, the SQLite history store and the Sentry
// monitor. They implement the interfaces defined in the core packages.
package infra
