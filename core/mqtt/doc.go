// Package mqtt defines the broker-facing interfaces used by the service to
// receive prices, forecasts and battery readings and to publish states.
package mqtt
