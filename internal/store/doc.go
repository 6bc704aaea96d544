// Package store declares the persistence contracts for configuration
// overrides, projects and artifacts, the sentinel errors shared by every
// implementation, and the transaction helper used by the services.
package store
