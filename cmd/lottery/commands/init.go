package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airchains-network/lottery-dapp/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// InitCmd writes a fresh config.toml
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the lottery console",
	Long: `Initialize the lottery console with the required configuration.
This command creates the home directory, the keystore directory and config.toml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd)
	},
}

func init() {
	defaults := config.DefaultConfig()
	InitCmd.Flags().String("rpc-url", defaults.General.RPCURL, "Ethereum JSON-RPC URL")
	InitCmd.Flags().Int64("chain-id", defaults.General.ChainID, "Required chain id (0 accepts any)")
	InitCmd.Flags().String("network-name", defaults.General.NetworkName, "Network name shown to the operator")
	InitCmd.Flags().String("contract", defaults.Contract.Address, "Lottery contract address")
	InitCmd.Flags().String("variant", defaults.Contract.Variant, "Contract variant (ticket/round)")
	InitCmd.Flags().String("wallet", defaults.Wallet.Type, "Wallet type (keystore/remote)")
	InitCmd.Flags().String("remote-url", "", "External signer URL for the remote wallet")
	InitCmd.Flags().String("listen", defaults.General.ListenAddr, "Listen address of the front end")
	InitCmd.Flags().Bool("force", false, "Overwrite an existing config.toml")
}

func initCommand(cmd *cobra.Command) error {
	rpcURL, _ := cmd.Flags().GetString("rpc-url")
	chainID, _ := cmd.Flags().GetInt64("chain-id")
	networkName, _ := cmd.Flags().GetString("network-name")
	contractAddr, _ := cmd.Flags().GetString("contract")
	variant, _ := cmd.Flags().GetString("variant")
	walletType, _ := cmd.Flags().GetString("wallet")
	remoteURL, _ := cmd.Flags().GetString("remote-url")
	listen, _ := cmd.Flags().GetString("listen")
	force, _ := cmd.Flags().GetBool("force")

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	})
	log.SetLevel(logrus.InfoLevel)

	home, err := homeDir(cmd)
	if err != nil {
		return err
	}
	keystoreDir := filepath.Join(home, "keystore")
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", keystoreDir, err)
	}

	configPath := filepath.Join(home, configFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
	}

	cfg := config.DefaultConfig()
	cfg.General.RPCURL = rpcURL
	cfg.General.ChainID = chainID
	cfg.General.NetworkName = networkName
	cfg.General.ListenAddr = listen
	cfg.Contract.Address = contractAddr
	cfg.Contract.Variant = variant
	cfg.Wallet.Type = walletType
	cfg.Wallet.KeystoreDir = keystoreDir
	cfg.Wallet.RemoteURL = remoteURL
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	log.Infof("Created config file at: %s", configPath)

	fmt.Println("\n=== Configuration Summary ===")
	fmt.Printf("RPC URL: %s\n", cfg.General.RPCURL)
	fmt.Printf("Network: %s (chain %d)\n", cfg.General.NetworkName, cfg.General.ChainID)
	fmt.Printf("Contract: %s (%s)\n", cfg.Contract.Address, cfg.Contract.Variant)
	fmt.Printf("Wallet: %s\n", cfg.Wallet.Type)
	fmt.Printf("Listen Address: %s\n", cfg.General.ListenAddr)
	fmt.Printf("Config File: %s\n", configPath)

	log.Info("Initialization completed successfully!")
	if cfg.Wallet.Type == config.WalletKeystore {
		log.Info("Create a signing account with: lottery create-account")
	}
	log.Info("Then start the console with: lottery serve")
	return nil
}
