package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags overlays Config with command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      session validity without "remember me", minutes
//	-k int      bcrypt cost
//	-o string   comma-separated CORS origins
//	-m string   permission required for /metrics ("" disables)
//
// Arguments are filtered through flagx.FilterArgs first so flags owned by
// other parsers (-c/-config) do not cause errors here.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-k", "-o", "-m"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity without remember-me (in minutes)")
	fs.IntVar(&config.PasswordHashCost, "k", config.PasswordHashCost, "bcrypt cost")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "comma-separated CORS origins")
	fs.StringVar(&config.MetricsPermission, "m", config.MetricsPermission, "permission required for /metrics")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
		case "o":
			config.AllowedOrigins = splitList(*origins)
		}
	})
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
