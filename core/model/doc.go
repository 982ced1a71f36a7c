// Package model holds the value types shared by the window calculation engine,
// the price adapters and the service layer.
package model
