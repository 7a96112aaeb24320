package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/airchains-network/lottery-dapp/lottery"
	"github.com/airchains-network/lottery-dapp/proxy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ServeCmd runs the HTTP and WebSocket front end
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lottery front end",
	Long: `Serve the lottery front end with the configuration from ~/.lottery-dapp/config.toml.
The JSON API and WebSocket push drive a single wallet session; /metrics exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd)
	},
}

func init() {
	ServeCmd.Flags().Bool("connect", false, "Connect the wallet on startup")
}

func serveCommand(cmd *cobra.Command) error {
	connect, _ := cmd.Flags().GetBool("connect")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *proxy.Hub
	a, err := newApp(ctx, cmd, func(log *logrus.Logger) lottery.Display {
		hub = proxy.NewHub(log)
		return hub
	}, true)
	if err != nil {
		return err
	}
	defer a.Close()

	server := proxy.NewServer(a.workflow, a.store, hub, proxy.Options{
		CurrencySymbol: a.cfg.General.CurrencySymbol,
		AllowedOrigins: a.cfg.General.AllowedOrigins,
		Gatherer:       a.registry,
	}, a.log)
	a.workflow.Session().Subscribe(func(*lottery.Binding) {
		server.PublishState()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		lottery.NewWatcher(a.workflow, a.cfg.WatchInterval(), a.log).Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx, a.cfg.General.ListenAddr)
	})

	if connect {
		if err := a.workflow.Connect(gctx); err != nil {
			a.log.Warnf("Initial connect failed: %v", err)
		} else {
			server.PublishState()
		}
	}

	if err := g.Wait(); err != nil {
		a.log.Errorf("Front end stopped: %v", err)
		return err
	}
	a.log.Info("Shut down")
	return nil
}
