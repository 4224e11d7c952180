// Package urls holds the documentation links printed in troubleshooting
// hints, so they can be updated in one place.
//
// Usage:
//
//	printer.PrintError("Connection Failed", err, "See "+urls.TTSMQTT)
package urls
