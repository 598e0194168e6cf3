package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type Config struct {
	Server             string        `env:"MM_SERVER,required=true"`
	Port               int           `env:"MM_PORT,default=443"`
	Username           string        `env:"MM_USER,required=true"`
	Password           string        `env:"MM_PASSWORD,required=true"`
	Team               string        `env:"MM_TEAM"`
	Ignore             string        `env:"MM_IGNORE"`
	Format             string        `env:"MM_STATUS_FORMAT,default=i3blocks"`
	Prefix             string        `env:"MM_CHAT_PREFIX,default=🗨️"`
	ChannelColor       string        `env:"MM_CHANNEL_COLOR,default=#00FF00"`
	UserColor          string        `env:"MM_USER_COLOR,default=#FF4488"`
	RefreshInterval    time.Duration `env:"MM_REFRESH_INTERVAL,default=60s"`
	RestartInterval    time.Duration `env:"MM_RESTART_INTERVAL,default=5s"`
	InsecureSkipVerify bool          `env:"MM_NO_VERIFY,default=false"`
	LogLevel           string        `env:"LOG_LEVEL,default=warn"`

	ignore *regexp.Regexp
}

// Validate rejects settings that would only surface mid-loop: a broken
// ignore pattern or a malformed color must stop the program at startup.
// It also normalizes the prefix; the renderers add their own separating
// space, so surrounding whitespace in the env value would double up.
func (c *Config) Validate() error {
	c.Prefix = strings.TrimSpace(c.Prefix)
	if c.Ignore != "" {
		pattern, err := regexp.Compile(c.Ignore)
		if err != nil {
			return fmt.Errorf("invalid MM_IGNORE pattern: %w", err)
		}
		c.ignore = pattern
	}
	if !hexColorPattern.MatchString(c.ChannelColor) {
		return fmt.Errorf("invalid MM_CHANNEL_COLOR %q", c.ChannelColor)
	}
	if !hexColorPattern.MatchString(c.UserColor) {
		return fmt.Errorf("invalid MM_USER_COLOR %q", c.UserColor)
	}
	return nil
}

// IgnorePattern returns the pattern compiled by Validate, or nil when unset.
func (c *Config) IgnorePattern() *regexp.Regexp {
	return c.ignore
}
