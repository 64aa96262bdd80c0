package config

import "errors"

var (
	ErrConfigFileRead  = errors.New("failed to read config file")
	ErrConfigUnmarshal = errors.New("failed to unmarshal config")
)
