package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/spf13/cobra"
)

// CreateAccountCmd adds a new key to the local keystore
var CreateAccountCmd = &cobra.Command{
	Use:   "create-account",
	Short: "Create a new keystore account",
	Long:  `Create a new encrypted keystore account for signing lottery transactions`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := homeDir(cmd)
		if err != nil {
			return err
		}
		keysDir := filepath.Join(home, "keystore")
		if cfg, err := loadConfig(cmd); err == nil && cfg.Wallet.KeystoreDir != "" {
			keysDir = cfg.Wallet.KeystoreDir
		}
		if err := os.MkdirAll(keysDir, 0700); err != nil {
			return fmt.Errorf("failed to create keys directory: %v", err)
		}

		password, err := readPassword("New account password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Repeat password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		ks := keystore.NewKeyStore(keysDir, keystore.StandardScryptN, keystore.StandardScryptP)
		account, err := ks.NewAccount(password)
		if err != nil {
			return fmt.Errorf("failed to create account: %v", err)
		}

		fmt.Printf("Account created successfully!\n")
		fmt.Printf("Address: %s\n", account.Address.Hex())
		fmt.Printf("Key file: %s\n", account.URL.Path)
		fmt.Println("\nIMPORTANT: Back up the key file and remember the password!")
		return nil
	},
}
