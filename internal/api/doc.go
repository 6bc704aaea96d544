// Package api implements the HTTP handlers for the settings and project
// endpoints. Handlers translate requests into calls on the settings
// resolvers and the project service, and map their errors to status codes
// without exposing internal detail to clients.
package api
