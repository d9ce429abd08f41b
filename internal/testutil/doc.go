// Package testutil contains helpers used across tests to substitute the
// completion backend. They are not intended for production usage.
package testutil
