package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(11155111), cfg.ChainID().Int64())
	assert.Equal(t, contract.VariantTicket, cfg.Variant())

	value, err := cfg.EntryValue()
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Contract.Variant = "round"
	cfg.Contract.EntryValueWei = "1000000000000000000"
	cfg.Session.RequireManagerFirst = false
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, contract.VariantRound, loaded.Variant())

	value, err := loaded.EntryValue()
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", value.String())
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\nrpc_url = \"http://127.0.0.1:8545\"\nchain_id = 0\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.General.RPCURL)
	assert.Nil(t, cfg.ChainID())
	assert.Equal(t, DefaultConfig().Contract, cfg.Contract)
	assert.True(t, cfg.Session.RequireManagerFirst)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad address":     func(c *Config) { c.Contract.Address = "0x1234" },
		"bad variant":     func(c *Config) { c.Contract.Variant = "raffle" },
		"bad entry value": func(c *Config) { c.Contract.EntryValueWei = "-1" },
		"bad wallet type": func(c *Config) { c.Wallet.Type = "ledger" },
		"remote w/o url":  func(c *Config) { c.Wallet.Type = WalletRemote },
		"bad account":     func(c *Config) { c.Wallet.Account = "alice" },
		"bad log level":   func(c *Config) { c.Log.Level = "loud" },
		"empty rpc url":   func(c *Config) { c.General.RPCURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Log.File = filepath.Join(t.TempDir(), "lottery.log")

	log := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.Info("hello")

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
