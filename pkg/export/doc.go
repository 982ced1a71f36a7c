// Package export writes window selections as JSON or CSV.
package export
