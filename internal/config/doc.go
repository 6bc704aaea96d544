// Package config loads the process configuration (listen port, log level,
// database connection, defaults file location, scheduler) with viper and
// validates it with struct tags.
package config
