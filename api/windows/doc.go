// Package windows serves the latest window calculations over HTTP.
package windows
