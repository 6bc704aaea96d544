// Package service contains the application use cases that span more than
// one store. It coordinates the stores in internal/store with the settings
// resolvers and applies transaction boundaries where an operation must be
// atomic.
//
// Services return store and domain sentinel errors unchanged in the chain so
// the API layer can map them to status codes with errors.Is.
package service
