package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml"
)

const (
	WalletKeystore = "keystore"
	WalletRemote   = "remote"
)

// Config holds the application configuration
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Contract ContractConfig `toml:"contract"`
	Wallet   WalletConfig   `toml:"wallet"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
}

// GeneralConfig holds network and server settings
type GeneralConfig struct {
	RPCURL         string   `toml:"rpc_url"`
	ChainID        int64    `toml:"chain_id"`
	NetworkName    string   `toml:"network_name"`
	CurrencySymbol string   `toml:"currency_symbol"`
	ListenAddr     string   `toml:"listen_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// ContractConfig describes the deployed lottery
type ContractConfig struct {
	Address       string `toml:"address"`
	Variant       string `toml:"variant"`         // "ticket" or "round"
	EntryValueWei string `toml:"entry_value_wei"` // empty uses the variant default
	EntryGasLimit uint64 `toml:"entry_gas_limit"` // zero uses the variant default
}

// WalletConfig selects how transactions get signed
type WalletConfig struct {
	Type        string `toml:"type"` // "keystore" or "remote"
	KeystoreDir string `toml:"keystore_dir"`
	Account     string `toml:"account"`
	PasswordEnv string `toml:"password_env"`
	RemoteURL   string `toml:"remote_url"`
	AutoConfirm bool   `toml:"auto_confirm"`
}

type SessionConfig struct {
	RequireManagerFirst  bool `toml:"require_manager_first"`
	WatchIntervalSeconds int  `toml:"watch_interval_seconds"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"` // empty logs to stderr only
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// DefaultConfig targets the Sepolia ticket deployment
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			RPCURL:         "https://rpc.sepolia.org",
			ChainID:        11155111,
			NetworkName:    "Sepolia",
			CurrencySymbol: "SEP ETH",
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"*"},
		},
		Contract: ContractConfig{
			Address: "0xcd082cc9ea4e02c9113376c9d5992c176b9f3101",
			Variant: string(contract.VariantTicket),
		},
		Wallet: WalletConfig{
			Type:        WalletKeystore,
			PasswordEnv: "LOTTERY_PASSWORD",
		},
		Session: SessionConfig{
			RequireManagerFirst:  true,
			WatchIntervalSeconds: 2,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig reads a TOML file over the defaults and validates the result
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}

	err = toml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %v", path, err)
	}
	return cfg, nil
}

// Save writes the config as TOML
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the fields that cannot be defaulted
func (c Config) Validate() error {
	if _, err := url.Parse(c.General.RPCURL); err != nil || c.General.RPCURL == "" {
		return fmt.Errorf("general.rpc_url %q is not a valid URL", c.General.RPCURL)
	}
	if c.General.ChainID < 0 {
		return fmt.Errorf("general.chain_id must not be negative")
	}
	if !common.IsHexAddress(c.Contract.Address) {
		return fmt.Errorf("contract.address %q is not a hex address", c.Contract.Address)
	}
	if _, err := contract.ParseVariant(c.Contract.Variant); err != nil {
		return err
	}
	if _, err := c.EntryValue(); err != nil {
		return err
	}
	switch c.Wallet.Type {
	case WalletKeystore:
		if c.Wallet.Account != "" && !common.IsHexAddress(c.Wallet.Account) {
			return fmt.Errorf("wallet.account %q is not a hex address", c.Wallet.Account)
		}
	case WalletRemote:
		if c.Wallet.RemoteURL == "" {
			return fmt.Errorf("wallet.remote_url is required for a remote wallet")
		}
	default:
		return fmt.Errorf("wallet.type %q must be %q or %q", c.Wallet.Type, WalletKeystore, WalletRemote)
	}
	if _, err := logLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func (c Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract.Address)
}

func (c Config) Variant() contract.Variant {
	v, _ := contract.ParseVariant(c.Contract.Variant)
	return v
}

// ChainID returns nil when chain_id is zero, accepting any chain
func (c Config) ChainID() *big.Int {
	if c.General.ChainID == 0 {
		return nil
	}
	return big.NewInt(c.General.ChainID)
}

// EntryValue parses entry_value_wei; nil means the variant default
func (c Config) EntryValue() (*big.Int, error) {
	s := strings.TrimSpace(c.Contract.EntryValueWei)
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("contract.entry_value_wei %q is not a positive integer", c.Contract.EntryValueWei)
	}
	return v, nil
}

func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.Session.WatchIntervalSeconds) * time.Second
}

// Password reads the keystore password from the configured environment variable
func (c Config) Password() (string, bool) {
	if c.Wallet.PasswordEnv == "" {
		return "", false
	}
	return os.LookupEnv(c.Wallet.PasswordEnv)
}
