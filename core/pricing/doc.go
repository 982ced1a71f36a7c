// Package pricing adapts day-ahead price payloads from Nord Pool, ENTSO-e and
// Tibber into canonical price intervals. Adapters are selected by format name
// through a factory registry; "auto" detects the format from the payload.
package pricing
