// Package core carries the shared CLI state and manifest environment setup.
package core

// EnvPrefix namespaces all devpin environment variables.
const EnvPrefix = "DEVPIN_"

// Flags are the global flags shared by every subcommand.
type Flags struct {
	LogLevel       string
	ConfigFilePath string
}
