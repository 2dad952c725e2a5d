package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	App          AppConfig                 `json:"app"`
	Gateways     map[string]GatewayConfig  `json:"gateways"`
	Providers    map[string]ProviderConfig `json:"providers"`
	Memory       MemoryConfig              `json:"memory"`
	Orchestrator OrchestratorConfig        `json:"orchestrator"`
}

type AppConfig struct {
	Name      string `json:"name"`
	Prompts   string `json:"prompts"`
	Templates string `json:"templates"`
	LogDir    string `json:"log_dir"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type OrchestratorConfig struct {
	MaxIterations int  `json:"max_iterations"`
	EmitPlan      bool `json:"emit_plan"`
	UseRouter     bool `json:"use_router"`
}

func LoadConfig(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	if cfg.Orchestrator.MaxIterations <= 0 {
		cfg.Orchestrator.MaxIterations = 6
	}
	return &cfg
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGateway returns a named gateway config if enabled
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	gw, ok := c.Gateways[name]
	if ok && gw.Enabled && gw.Token != "" {
		return gw, true
	}
	return GatewayConfig{}, false
}
