// Package fake provides an in-memory implementation of
// provisioning.Provider for tests.
//
// Provider keeps every resource in maps guarded by a mutex, records the
// name of each call in order, and lets tests inject failures per method.
package fake
