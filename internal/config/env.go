package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings taken from the environment. Command-line flags win
// over these when both are given.
type Env struct {
	DataDir   string `env:"RKADAPT_DATA_DIR" envDefault:".rkadapt"`
	LogLevel  string `env:"RKADAPT_LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"RKADAPT_LOG_FORMAT" envDefault:"text"`
	Workers   int    `env:"RKADAPT_WORKERS" envDefault:"4"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadEnv() (*Env, error) {
	e := &Env{}
	if err := ParseEnv(e); err != nil {
		return nil, err
	}
	return e, nil
}
