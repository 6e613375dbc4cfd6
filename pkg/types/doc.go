// Package types defines the public API of the schedule store: configuration,
// the Provider and Store interfaces, request and result values, change
// notifications, and the sentinel errors callers match with errors.Is.
package types
