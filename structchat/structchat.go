// Package structchat holds application-wide defaults shared by the engine,
// its configuration layer and the command line.
package structchat

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName = "structchat"

	// DefaultAttempts is the budget shared by network retries and
	// self-correction rounds. The two counters are independent.
	DefaultAttempts = 3

	// DefaultLabel tags persisted exchanges that carry no instruction.
	DefaultLabel = "single_conversation"

	DefaultEnvPrefix    = "STRUCTCHAT"
	DefaultDatabaseType = "sqlite"
)

var (
	DefaultConfigPath  = filepath.Join(userConfigDir(), DefaultAppName)
	DefaultDatabaseDSN = filepath.Join(userConfigDir(), DefaultAppName, "audit.db")
	DefaultSchemaDir   = filepath.Join(userConfigDir(), DefaultAppName, "schemas")
)

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}
