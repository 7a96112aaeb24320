package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/airchains-network/lottery-dapp/config"
	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/db"
	"github.com/airchains-network/lottery-dapp/eth"
	"github.com/airchains-network/lottery-dapp/internal/format"
	"github.com/airchains-network/lottery-dapp/lottery"
	"github.com/airchains-network/lottery-dapp/metrics"
	"github.com/airchains-network/lottery-dapp/state"
	"github.com/airchains-network/lottery-dapp/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

const configFile = "config.toml"

func homeDir(cmd *cobra.Command) (string, error) {
	if home, _ := cmd.Flags().GetString("home"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %v", err)
	}
	return filepath.Join(home, ".lottery-dapp"), nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	home, err := homeDir(cmd)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadConfig(filepath.Join(home, configFile))
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %v", err)
	}
	if cfg.Wallet.KeystoreDir == "" {
		cfg.Wallet.KeystoreDir = filepath.Join(home, "keystore")
	}
	return cfg, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := terminal.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	return string(pw), nil
}

// promptConfirm asks on the terminal before a transaction is signed, the
// console counterpart of a wallet's confirmation dialog
func promptConfirm(symbol string) wallet.ConfirmFunc {
	reader := bufio.NewReader(os.Stdin)
	return func(from common.Address, req wallet.TxRequest) bool {
		value := "0"
		if req.Value != nil {
			value = format.Ether(req.Value)
		}
		fmt.Fprintf(os.Stderr, "Send %s %s from %s to %s? [y/N] ", value, symbol, format.ShortAddress(from), format.ShortAddress(req.To))
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// app is everything a command needs to drive the lottery
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	client   *eth.Client
	registry *prometheus.Registry
	store    *state.SessionState
	workflow *lottery.Workflow
}

func newApp(ctx context.Context, cmd *cobra.Command, buildDisplay func(*logrus.Logger) lottery.Display, managerFirst bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger()

	client, err := eth.NewClient(ctx, cfg.General.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RPC client: %v", err)
	}

	// Without a usable wallet the session still comes up; every operation
	// then reports that no provider is available
	var provider wallet.Provider
	if p, err := newProvider(ctx, cfg, client, log); err != nil {
		log.Errorf("Wallet unavailable: %v", err)
	} else {
		provider = p
	}

	ldb, err := db.NewMemLevelDB()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize session storage: %v", err)
	}
	store := state.NewSessionState(ldb)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	entryValue, err := cfg.EntryValue()
	if err != nil {
		ldb.Close()
		client.Close()
		return nil, err
	}
	opts := lottery.Options{
		ChainID:             cfg.ChainID(),
		NetworkName:         cfg.General.NetworkName,
		CurrencySymbol:      cfg.General.CurrencySymbol,
		EntryValue:          entryValue,
		EntryGasLimit:       cfg.Contract.EntryGasLimit,
		RequireManagerFirst: managerFirst && cfg.Session.RequireManagerFirst,
	}
	address, variant := cfg.ContractAddress(), cfg.Variant()
	bind := func(p wallet.Provider) (lottery.Contract, error) {
		l, err := contract.NewLottery(address, variant, p)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	log.Infof("Lottery %s (%s variant) via %s", address.Hex(), variant, cfg.General.RPCURL)
	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		registry: registry,
		store:    store,
		workflow: lottery.NewWorkflow(opts, lottery.NewSession(provider), bind, store, buildDisplay(log), log, m),
	}, nil
}

func newProvider(ctx context.Context, cfg config.Config, client *eth.Client, log *logrus.Logger) (wallet.Provider, error) {
	switch cfg.Wallet.Type {
	case config.WalletRemote:
		signer, err := eth.NewClient(ctx, cfg.Wallet.RemoteURL)
		if err != nil {
			return nil, err
		}
		log.Infof("Using external signer at %s", cfg.Wallet.RemoteURL)
		return wallet.NewRemote(signer, log), nil
	default:
		password, ok := cfg.Password()
		if !ok {
			pw, err := readPassword("Keystore password: ")
			if err != nil {
				return nil, err
			}
			password = pw
		}
		var selected common.Address
		if cfg.Wallet.Account != "" {
			selected = common.HexToAddress(cfg.Wallet.Account)
		}
		confirm := wallet.AutoConfirm
		if !cfg.Wallet.AutoConfirm {
			confirm = promptConfirm(cfg.General.CurrencySymbol)
		}
		return wallet.NewKeystore(client.Eth, cfg.Wallet.KeystoreDir, selected, password, confirm, log)
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warnf("Failed to close session storage: %v", err)
	}
	a.client.Close()
}

func printView(v lottery.View, symbol string) {
	fmt.Println("\n=== Lottery ===")
	if !v.Connected {
		fmt.Println("Wallet: not connected")
		return
	}
	fmt.Printf("Account: %s\n", v.Account.Hex())
	fmt.Printf("Chain: %s\n", v.ChainID)
	fmt.Printf("State: %s\n", v.State)
	if v.Snapshot != nil {
		manager := "none"
		if v.Snapshot.Manager != (common.Address{}) {
			manager = v.Snapshot.Manager.Hex()
		}
		fmt.Printf("Active: %v\n", v.Snapshot.LotteryActive)
		fmt.Printf("Manager: %s\n", manager)
		fmt.Printf("Entries: %d (%d unique)\n", len(v.Snapshot.Participants), len(v.Snapshot.Candidates()))
	}
	if v.Balance != nil {
		fmt.Printf("Prize Pool: %s %s\n", format.Ether(v.Balance), symbol)
	}
}
