package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/commltd/authcore/internal/flagx"
	"github.com/commltd/authcore/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO (Data Transfer Object) used only for
// reading JSON configuration files. After unmarshalling, its fields are
// copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	PolicyFile          string         `json:"policy_file"`
	StorageTimeout      timex.Duration `json:"storage_timeout"`
	CodeTTL             timex.Duration `json:"code_ttl"`
	VerifiedGraceWindow timex.Duration `json:"verified_grace_window"`
	SMTPHost            string         `json:"smtp_host"`
	SMTPPort            int            `json:"smtp_port"`
	SMTPUser            string         `json:"smtp_user"`
	SMTPPassword        string         `json:"smtp_password"`
	SMTPFrom            string         `json:"smtp_from"`
	SMTPTimeout         timex.Duration `json:"smtp_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
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

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.PolicyFile = c.PolicyFile
	config.StorageTimeout = time.Duration(c.StorageTimeout.Duration)
	config.CodeTTL = time.Duration(c.CodeTTL.Duration)
	config.VerifiedGraceWindow = time.Duration(c.VerifiedGraceWindow.Duration)
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
	config.SMTPFrom = c.SMTPFrom
	config.SMTPTimeout = time.Duration(c.SMTPTimeout.Duration)
}
