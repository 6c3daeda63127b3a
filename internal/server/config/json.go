package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/messagely/messagely/internal/flagx"
	"github.com/messagely/messagely/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Interval fields use
// timex.Duration so a file may express them either as strings such as "30m"
// or as integer nanoseconds. After unmarshalling, set fields are copied into
// the runtime Config.
type JsonConfig struct {
	EndpointAddr         string          `json:"endpoint_addr"`
	DatabaseDSN          string          `json:"database_dsn"`
	SigningSecret        string          `json:"signing_secret"`
	SessionTokenValidity *timex.Duration `json:"session_token_validity"`
	PasswordWorkFactor   *int            `json:"password_work_factor"`
	ResetWindow          *timex.Duration `json:"reset_window"`
	ResetCodeLength      *int            `json:"reset_code_length"`
	ResetCodeAlphabet    string          `json:"reset_code_alphabet"`
	TwilioAccountSID     string          `json:"twilio_account_sid"`
	TwilioAuthToken      string          `json:"twilio_auth_token"`
	TwilioFromPhone      string          `json:"twilio_from_phone"`
	TwilioBaseEndpoint   string          `json:"twilio_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c or -config command-line flags;
// when neither is set, no file is loaded. An unreadable or malformed file
// panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SigningSecret != "" {
		config.SigningSecret = c.SigningSecret
	}
	if c.SessionTokenValidity != nil {
		config.SessionTokenValidity = time.Duration(c.SessionTokenValidity.Duration)
	}
	if c.PasswordWorkFactor != nil {
		config.PasswordWorkFactor = *c.PasswordWorkFactor
	}
	if c.ResetWindow != nil {
		config.ResetWindow = time.Duration(c.ResetWindow.Duration)
	}
	if c.ResetCodeLength != nil {
		config.ResetCodeLength = *c.ResetCodeLength
	}
	if c.ResetCodeAlphabet != "" {
		config.ResetCodeAlphabet = c.ResetCodeAlphabet
	}
	if c.TwilioAccountSID != "" {
		config.TwilioAccountSID = c.TwilioAccountSID
	}
	if c.TwilioAuthToken != "" {
		config.TwilioAuthToken = c.TwilioAuthToken
	}
	if c.TwilioFromPhone != "" {
		config.TwilioFromPhone = c.TwilioFromPhone
	}
	if c.TwilioBaseEndpoint != "" {
		config.TwilioBaseEndpoint = c.TwilioBaseEndpoint
	}
}
