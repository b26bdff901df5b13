package config

import (
	"encoding/json"
	"os"

	"github.com/lexify-app/lexify-server/internal/flagx"
	"github.com/lexify-app/lexify-server/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	SaveTimeout           timex.Duration `json:"save_timeout"`
	RedisAddr             string         `json:"redis_addr"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	MailEndpoint          string         `json:"mail_endpoint"`
	MailAPIKey            string         `json:"mail_api_key"`
	MailSender            string         `json:"mail_sender"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when neither
// is set, no JSON file is loaded. Keys absent from the file keep their current
// values. If the file cannot be read or contains invalid JSON, the function
// panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	// seed the DTO with current values so absent keys do not wipe defaults
	c := &JsonConfig{
		EndpointAddrHTTP:      config.EndpointAddrHTTP,
		DatabaseDSN:           config.DatabaseDSN,
		SecretKey:             config.SecretKey,
		TokenValidityDuration: timex.Duration{Duration: config.TokenValidityDuration},
		SaveTimeout:           timex.Duration{Duration: config.SaveTimeout},
		RedisAddr:             config.RedisAddr,
		S3AccessKey:           config.S3AccessKey,
		S3SecretKey:           config.S3SecretKey,
		S3Bucket:              config.S3Bucket,
		S3Region:              config.S3Region,
		S3BaseEndpoint:        config.S3BaseEndpoint,
		MailEndpoint:          config.MailEndpoint,
		MailAPIKey:            config.MailAPIKey,
		MailSender:            config.MailSender,
	}

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
	config.TokenValidityDuration = c.TokenValidityDuration.Duration
	config.SaveTimeout = c.SaveTimeout.Duration
	config.RedisAddr = c.RedisAddr
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.MailEndpoint = c.MailEndpoint
	config.MailAPIKey = c.MailAPIKey
	config.MailSender = c.MailSender
}
