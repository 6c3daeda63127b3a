package config

import (
	"flag"
	"os"
	"time"

	"github.com/messagely/messagely/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   PostgreSQL DSN
//	-s string   session-token signing secret
//	-t int      session token validity, minutes
//	-w int      reset-code validity window, minutes
//	-f int      bcrypt work factor
//	-l int      reset code length
//
// Args are first filtered with flagx.FilterArgs so flags owned by other
// components (such as -c/-config) do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-w", "-f", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SigningSecret, "s", config.SigningSecret, "signing secret")

	sessionTokenValidity := fs.Int("t", 0, "session_token_validity (in minutes)")
	resetWindow := fs.Int("w", 0, "reset_window (in minutes)")

	fs.IntVar(&config.PasswordWorkFactor, "f", config.PasswordWorkFactor, "bcrypt work factor")
	fs.IntVar(&config.ResetCodeLength, "l", config.ResetCodeLength, "reset code length")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// The duration flags are minutes-granular, so they only overwrite the
	// finer-grained env/JSON values when actually passed.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTokenValidity = time.Duration(*sessionTokenValidity) * time.Minute
		case "w":
			config.ResetWindow = time.Duration(*resetWindow) * time.Minute
		}
	})
}
