// Package settings resolves the application's layered configuration.
//
// A declarative defaults document (YAML) describes every configuration item,
// whether it may be edited at runtime and whether it belongs to a project
// rather than to the whole installation. Edited values are persisted as
// override rows, globally or per project, and merged over the defaults on
// every read.
package settings
