// Package config defines lovepack build settings and helpers to load, override,
// validate and save them.
//
// Settings come from a YAML file (lovepack.yaml by default), then LOVEPACK_*
// environment variables, then command-line flags; Validate fills defaults and
// rejects anything the pipeline cannot run with.
package config
