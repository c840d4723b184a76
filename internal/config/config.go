// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList       []string `mapstructure:"rpc_list"`
	WebSocketURL  string   `mapstructure:"websocket_url"`
	Commitment    string   `mapstructure:"commitment"`
	ListenAddr    string   `mapstructure:"listen_addr"`
	MinSolBalance float64  `mapstructure:"min_sol_balance"`
	DemoMode      bool     `mapstructure:"demo_mode"`
	PrivateKey    string   `mapstructure:"private_key"`
	LogFile       string   `mapstructure:"log_file"`
	DebugLogging  bool     `mapstructure:"debug_logging"`
}

const (
	DefaultRPCEndpoint   = "https://api.devnet.solana.com"
	DefaultWebSocketURL  = "wss://api.devnet.solana.com/"
	DefaultCommitment    = "confirmed"
	DefaultListenAddr    = ":8080"
	DefaultMinSolBalance = 0.1
	DefaultLogFile       = "terminal.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_list":        []string{DefaultRPCEndpoint},
		"websocket_url":   DefaultWebSocketURL,
		"commitment":      DefaultCommitment,
		"listen_addr":     DefaultListenAddr,
		"min_sol_balance": DefaultMinSolBalance,
		"demo_mode":       true,
		"log_file":        DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WebSocketURL != "" {
		if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return errors.New("invalid commitment level")
	}
	if cfg.MinSolBalance < 0 {
		return errors.New("invalid min_sol_balance")
	}
	if cfg.ListenAddr == "" {
		return errors.New("missing listen_addr")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("DRIFT_TERMINAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Приватный ключ держим только в окружении, не в файле.
	envPrivateKey := v.GetString("PRIVATE_KEY")
	if envPrivateKey != "" {
		cfg.PrivateKey = envPrivateKey
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
