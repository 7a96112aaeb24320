package main

import (
	"os"

	"github.com/airchains-network/lottery-dapp/cmd/lottery/commands"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lottery",
		Short: "Operator console for an on-chain lottery",
		Long: `Operator console for an on-chain lottery contract.
It reconciles the contract state into a view for the connected account,
sends entries, starts rounds and picks winners, inferring who won from
balance changes.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("home", "", "Directory holding config.toml and the keystore (default ~/.lottery-dapp)")

	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.CreateAccountCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.EnterCmd)
	rootCmd.AddCommand(commands.StartCmd)
	rootCmd.AddCommand(commands.PickWinnerCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
