package main

import (
	"fmt"
	"regexp"
	"strings"
)

type Config struct {
	Server             string `env:"MM_SERVER,required=true"`
	Port               int    `env:"MM_PORT,default=443"`
	Username           string `env:"MM_USER,required=true"`
	Password           string `env:"MM_PASSWORD,required=true"`
	Team               string `env:"MM_TEAM"`
	Ignore             string `env:"MM_IGNORE"`
	Prefix             string `env:"MM_CHAT_PREFIX,default=🗨️"`
	DisableNotify      bool   `env:"MM_NO_NOTIFY,default=false"`
	SignalTarget       string `env:"MM_SIGNAL_TARGET,default=i3blocks"`
	InsecureSkipVerify bool   `env:"MM_NO_VERIFY,default=false"`
	LogLevel           string `env:"LOG_LEVEL,default=warn"`

	ignore *regexp.Regexp
}

// Validate compiles the ignore pattern and normalizes the prefix; the
// notification summary adds its own separating space.
func (c *Config) Validate() error {
	c.Prefix = strings.TrimSpace(c.Prefix)
	if c.Ignore != "" {
		pattern, err := regexp.Compile(c.Ignore)
		if err != nil {
			return fmt.Errorf("invalid MM_IGNORE pattern: %w", err)
		}
		c.ignore = pattern
	}
	return nil
}

// IgnorePattern returns the pattern compiled by Validate, or nil when unset.
func (c *Config) IgnorePattern() *regexp.Regexp {
	return c.ignore
}
