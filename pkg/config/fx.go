package config

import (
	"os"

	"go.uber.org/fx"
)

// Module provides the loaded *Config to the application. When warden.yaml
// does not exist a nil config is provided so commands that do not need one
// (help, version, test fixtures) still run; commands that do need it guard
// with their own check.
var Module = fx.Module("config", fx.Provide(
	func() (*Config, error) {
		if _, err := os.Stat(DefaultFile); os.IsNotExist(err) {
			return nil, nil
		}
		return LoadConfigFile(DefaultFile)
	},
))
