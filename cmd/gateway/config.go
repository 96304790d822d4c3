package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	InspectPort       int           `env:"INSPECT_PORT,default=8090"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=256"`
	MaxFrameSize      int64         `env:"MAX_FRAME_SIZE,default=4096"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

// CharacterRune narrows the mask replacement to a single rune.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
