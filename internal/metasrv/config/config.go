package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const ServerVersion = "0.3.0"
const ApiVersion = "v1"

type DatabaseParam struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DbName   string `toml:"dbname"`
	SslMode  string `toml:"sslmode"`
}

type NotifyParam struct {
	WebhookURL     string `toml:"webhook_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ConfigParam struct {
	ServerPort  string `toml:"server_port"`
	HandleCORS  bool   `toml:"handle_cors"`
	Environment string `toml:"environment"`

	Database DatabaseParam `toml:"database"`
	Notify   NotifyParam   `toml:"notify"`

	// Per-application client properties served by the client-config
	// endpoint.
	ClientConfig map[string]map[string]string `toml:"client_config"`
}

// CompressDefinitions controls snappy compression of definition payloads in
// the DAL. Compile-time for now.
const CompressDefinitions = true

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

func LoadConfig(filename string) error {
	if filename == "" {
		cfg = defaultConfig()
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	var cp ConfigParam
	if _, err := toml.Decode(string(content), &cp); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	applyDefaults(&cp)
	cfg = &cp
	return nil
}

func defaultConfig() *ConfigParam {
	cp := &ConfigParam{
		ServerPort:  "8310",
		HandleCORS:  true,
		Environment: "dev",
	}
	applyDefaults(cp)
	return cp
}

func applyDefaults(cp *ConfigParam) {
	if cp.Database.Host == "" {
		cp.Database.Host = "localhost"
	}
	if cp.Database.Port == 0 {
		cp.Database.Port = 5432
	}
	if cp.Database.User == "" {
		cp.Database.User = "meridian_api"
	}
	if cp.Database.DbName == "" {
		cp.Database.DbName = "meridianmeta"
	}
	if cp.Database.SslMode == "" {
		cp.Database.SslMode = "disable"
	}
	if cp.Notify.TimeoutSeconds == 0 {
		cp.Notify.TimeoutSeconds = 5
	}
}

func init() {
	if err := LoadConfig(""); err != nil {
		panic(err)
	}
}
