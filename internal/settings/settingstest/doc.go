// Package settingstest provides in-memory override and project stores for
// tests of the settings resolvers and their callers.
package settingstest
