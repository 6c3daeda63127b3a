package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables take precedence over it.
//
// Recognized variables:
//
//	ENDPOINT_ADDR, DATABASE_DSN, SIGNING_SECRET,
//	SESSION_TOKEN_VALIDITY_MS, PASSWORD_WORK_FACTOR, RESET_WINDOW_MS,
//	RESET_CODE_LENGTH, RESET_CODE_ALPHABET,
//	TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_PHONE,
//	TWILIO_BASE_ENDPOINT
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setMillis := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = time.Duration(n) * time.Millisecond
			}
		}
	}

	setString("ENDPOINT_ADDR", &config.EndpointAddr)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SIGNING_SECRET", &config.SigningSecret)
	setMillis("SESSION_TOKEN_VALIDITY_MS", &config.SessionTokenValidity)
	setInt("PASSWORD_WORK_FACTOR", &config.PasswordWorkFactor)
	setMillis("RESET_WINDOW_MS", &config.ResetWindow)
	setInt("RESET_CODE_LENGTH", &config.ResetCodeLength)
	setString("RESET_CODE_ALPHABET", &config.ResetCodeAlphabet)
	setString("TWILIO_ACCOUNT_SID", &config.TwilioAccountSID)
	setString("TWILIO_AUTH_TOKEN", &config.TwilioAuthToken)
	setString("TWILIO_FROM_PHONE", &config.TwilioFromPhone)
	setString("TWILIO_BASE_ENDPOINT", &config.TwilioBaseEndpoint)
}
