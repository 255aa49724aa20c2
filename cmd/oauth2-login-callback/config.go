package main

import (
	"time"

	"github.com/wrale/oauth2-login-callback/internal/provider"
)

// Config holds server configuration loaded from environment variables.
// DISCORD_CLIENT_SECRET is optional at startup; while it is unset /health
// reports unhealthy and logins fail with a misconfiguration error.
type Config struct {
	Port              int           `envconfig:"PORT" default:"8080"`
	ClientID          string        `envconfig:"DISCORD_CLIENT_ID" required:"true"`
	ClientSecret      string        `envconfig:"DISCORD_CLIENT_SECRET"`
	RedirectURI       string        `envconfig:"DISCORD_REDIRECT_URI" required:"true"`
	APIURL            string        `envconfig:"DISCORD_API_URL" default:"https://discord.com/api"`
	AuthorizeURL      string        `envconfig:"DISCORD_AUTHORIZE_URL" default:"https://discord.com/oauth2/authorize"`
	Scopes            []string      `envconfig:"DISCORD_SCOPES" default:"identify,guilds"`
	UpstreamTimeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"5s"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"35s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"LOG_FORMAT" default:"json"`
}

// Provider returns the Discord client settings
func (c Config) Provider() provider.Config {
	return provider.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		APIURL:       c.APIURL,
		AuthorizeURL: c.AuthorizeURL,
		Scopes:       c.Scopes,
		Timeout:      c.UpstreamTimeout,
	}
}
