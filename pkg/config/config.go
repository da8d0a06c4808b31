package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the relayer's full configuration surface: one ChainConfig per
// side of the bridge, the Store/Indexer backends, and the ambient
// server/logging/monitoring concerns.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Ethereum   ChainConfig      `yaml:"ethereum"`
	Via        ChainConfig      `yaml:"via"`
	Store      StoreConfig      `yaml:"store"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Relay      RelayConfig      `yaml:"relay"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains the operational HTTP surface settings
// (/livez,/readyz,/health,/metrics).
type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port int    `yaml:"port" default:"8080" validate:"min=1,max=65535"`
}

// ChainConfig wires one side of the bridge: its RPC endpoint(s), the
// relayer's signing key, its bridge contract, and its confirmation depth.
type ChainConfig struct {
	URL               string   `yaml:"url" validate:"required"`
	FallbackURLs      []string `yaml:"fallback_urls"`
	ChainID           int64    `yaml:"chain_id" validate:"required"`
	BridgeAddress     string   `yaml:"bridge_address" validate:"required"`
	VaultAddress      string   `yaml:"vault_address"` // Via only
	RelayerPrivateKey string   `yaml:"relayer_private_key" validate:"required"`
	MaxGasPrice       string   `yaml:"max_gas_price"`
	WaitBlockConfirmations uint64 `yaml:"wait_block_confirmations" default:"12"`

	// L2GasPrice/L2GasLimit are used verbatim (no EIP-1559 estimation)
	// when this is the Via chain. L2GasPerPubdata is parsed and passed to
	// the signer but is not included in the transactions it sends.
	L2GasPrice       string `yaml:"l2_gas_price"`
	L2GasLimit       uint64 `yaml:"l2_gas_limit"`
	L2GasPerPubdata  string `yaml:"l2_gas_per_pubdata"`
}

// StoreConfig wires the Transaction Store's PostgreSQL connection.
type StoreConfig struct {
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns" default:"10"`
	MaxIdleConns int    `yaml:"max_idle_conns" default:"5"`
}

// IndexerConfig selects and wires the Event Source backend.
type IndexerConfig struct {
	// Backend is "sql" (direct relational mirror) or "http" (remote
	// query, over gRPC).
	Backend string `yaml:"backend" default:"sql" validate:"oneof=sql http"`

	DSN string `yaml:"dsn"` // sql backend

	Addr           string        `yaml:"addr"` // http backend
	APIKey         string        `yaml:"api_key"`
	TLSEnabled     bool          `yaml:"tls_enabled" default:"true"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"10s"`
	// RetryAttempts bounds the total number of attempts in callWithRetry's
	// exponential backoff loop; 0 means retry until the caller's context is
	// cancelled.
	RetryAttempts int `yaml:"retry_attempts" default:"0"`
}

// RelayConfig carries the Worker Runtime and stage-handler tunables.
type RelayConfig struct {
	WorkerPollingInterval              time.Duration `yaml:"worker_polling_interval" default:"5s" validate:"min=1000000000"`
	TransactionBatchSize                int           `yaml:"transaction_batch_size" default:"20" validate:"min=1,max=100"`
	WithdrawalFinalizationConfirmations uint64        `yaml:"withdrawal_finalization_confirmations"`
	PendingTxTimeout                    time.Duration `yaml:"pending_tx_timeout" default:"10m" validate:"min=300000000000"`
}

// MonitoringConfig contains monitoring and metrics settings.
type MonitoringConfig struct {
	Enabled     bool `yaml:"enabled" default:"true"`
	MetricsPort int  `yaml:"metrics_port" default:"9090"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

var validate = validator.New()

// Load reads configPath, applies struct-tag defaults, overlays environment
// variables, and validates the result.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set config defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	overrideEnv(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func overrideEnv(cfg *Config) {
	if v := os.Getenv("ETH_URL"); v != "" {
		cfg.Ethereum.URL = v
	}
	if v := os.Getenv("VIA_URL"); v != "" {
		cfg.Via.URL = v
	}
	if v := os.Getenv("ETH_FALLBACK_URLS"); v != "" {
		cfg.Ethereum.FallbackURLs = splitCSV(v)
	}
	if v := os.Getenv("VIA_FALLBACK_URLS"); v != "" {
		cfg.Via.FallbackURLs = splitCSV(v)
	}
	if v := os.Getenv("ETHEREUM_BRIDGE_ADDRESS"); v != "" {
		cfg.Ethereum.BridgeAddress = v
	}
	if v := os.Getenv("VIA_BRIDGE_ADDRESS"); v != "" {
		cfg.Via.BridgeAddress = v
	}
	if v := os.Getenv("RELAYER_PRIVATE_KEY"); v != "" {
		cfg.Ethereum.RelayerPrivateKey = v
		cfg.Via.RelayerPrivateKey = v
	}
	if v := os.Getenv("ETH_WAIT_BLOCK_CONFIRMATIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Ethereum.WaitBlockConfirmations = n
		}
	}
	if v := os.Getenv("VIA_WAIT_BLOCK_CONFIRMATIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Via.WaitBlockConfirmations = n
		}
	}
	if v := os.Getenv("WITHDRAWAL_FINALIZATION_CONFIRMATIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Relay.WithdrawalFinalizationConfirmations = n
		}
	}
	if v := os.Getenv("WORKER_POLLING_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Relay.WorkerPollingInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TRANSACTION_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Relay.TransactionBatchSize = n
		}
	}
	if v := os.Getenv("PENDING_TX_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Relay.PendingTxTimeout = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("L2_GAS_PRICE"); v != "" {
		cfg.Via.L2GasPrice = v
	}
	if v := os.Getenv("L2_GAS_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Via.L2GasLimit = n
		}
	}
	if v := os.Getenv("L2_GAS_PER_PUBDATA"); v != "" {
		cfg.Via.L2GasPerPubdata = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("INDEXER_DSN"); v != "" {
		cfg.Indexer.DSN = v
	}
	if v := os.Getenv("INDEXER_ADDR"); v != "" {
		cfg.Indexer.Addr = v
	}
	if v := os.Getenv("INDEXER_API_KEY"); v != "" {
		cfg.Indexer.APIKey = v
	}
	if v := os.Getenv("LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitCSV(v string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
