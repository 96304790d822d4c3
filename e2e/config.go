package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// GATEWAY_ADDR points at a running gateway, e.g. "localhost:8080".
	// The suite is skipped when it is unset.
	GatewayAddr string `envconfig:"GATEWAY_ADDR"`
	// E2E_TOKEN_A / E2E_TOKEN_B are connection tokens of two distinct
	// provisioned accounts on that gateway.
	TokenA string `envconfig:"E2E_TOKEN_A"`
	TokenB string `envconfig:"E2E_TOKEN_B"`
	// E2E_DEBUG_JSON allows dumping full envelope bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
