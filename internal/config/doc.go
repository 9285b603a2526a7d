// Package config loads settings for the privatise CLI and its script host.
//
// Settings come from three places, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, by default $XDG_CONFIG_HOME/privatise/config.toml
//  3. Environment variables prefixed with PRIVATISE_
//
// Example file:
//
//	[log]
//	level = "debug"
//	format = "logfmt"
//
//	[script]
//	timeout = "2s"
//	watch_debounce = "250ms"
//
// Unknown keys are rejected so typos surface as a ParseError with the
// position of the offending line.
package config
