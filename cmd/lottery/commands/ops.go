package commands

import (
	"context"
	"fmt"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/internal/format"
	"github.com/airchains-network/lottery-dapp/lottery"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// One-shot commands run a session of their own. The manager-first gate is
// a per-session rule and would make every participant command fail, so it
// only applies to serve.

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect and show the lottery state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			v := a.workflow.View()
			printView(v, a.cfg.General.CurrencySymbol)
			if v.State != lottery.ActiveManager {
				return nil
			}
			l, err := contract.NewLottery(a.cfg.ContractAddress(), a.cfg.Variant(), a.client.Eth)
			if err != nil {
				return err
			}
			balance, err := l.GetBalance(ctx, v.Account)
			if err != nil {
				a.log.Warnf("getBalance() failed: %v", err)
				return nil
			}
			fmt.Printf("Contract getBalance(): %s %s\n", format.Ether(balance), a.cfg.General.CurrencySymbol)
			return nil
		})
	},
}

var EnterCmd = &cobra.Command{
	Use:   "enter",
	Short: "Enter the lottery with the configured entry amount",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			res, err := a.workflow.EnterLottery(ctx)
			printResult(res)
			if err != nil {
				return err
			}
			printView(a.workflow.View(), a.cfg.General.CurrencySymbol)
			return nil
		})
	},
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new round (round variant only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			res, err := a.workflow.StartLottery(ctx)
			printResult(res)
			if err != nil {
				return err
			}
			printView(a.workflow.View(), a.cfg.General.CurrencySymbol)
			return nil
		})
	},
}

var PickWinnerCmd = &cobra.Command{
	Use:   "pick-winner",
	Short: "Select the winner (manager only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			draw, err := a.workflow.PickWinner(ctx)
			if err != nil {
				return err
			}
			fmt.Println("\n=== Draw ===")
			fmt.Printf("Tx: %s\n", draw.TxHash.Hex())
			if draw.Winner != nil {
				fmt.Printf("Winner: %s\n", draw.Winner.Hex())
			} else {
				fmt.Println("Winner: unknown")
			}
			fmt.Printf("Prize: %s %s\n", format.Ether(draw.Prize), a.cfg.General.CurrencySymbol)
			return nil
		})
	},
}

func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cmd, func(log *logrus.Logger) lottery.Display {
		return lottery.NewConsoleDisplay(log)
	}, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.workflow.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func printResult(res *lottery.WorkflowResult) {
	if res == nil || res.TxHash == (common.Hash{}) {
		return
	}
	fmt.Printf("Tx: %s (success: %v)\n", res.TxHash.Hex(), res.Success)
	if res.RevertReason != "" {
		fmt.Printf("Revert reason: %s\n", res.RevertReason)
	}
}
