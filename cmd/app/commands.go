package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pvzzle/seismicbot/internal/app"
	"github.com/pvzzle/seismicbot/internal/bus"
	"github.com/pvzzle/seismicbot/internal/storage"
	"github.com/pvzzle/seismicbot/internal/tg"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "seismicbot",
	Short:        "Seismic devnet wallet client",
	Long:         `A wallet client for the Seismic devnet with a Telegram interface.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	RunE:  runServe,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored transaction history",
	RunE:  runHistory,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear stored history",
	RunE:  runClear,
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Check which network the configured wallet is on",
	RunE:  runNetwork,
}

func init() {
	historyCmd.Flags().String("source", "all", "transactions, messages or all")
	clearCmd.Flags().String("source", "", "transactions, messages or all")
	_ = clearCmd.MarkFlagRequired("source")
	networkCmd.Flags().Bool("switch", false, "switch to the Seismic network if the wallet is elsewhere")
	networkCmd.Flags().Duration("wait", 3*time.Second, "how long to wait for the switch to settle")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(networkCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return app.Run(cmd.Context())
}

// withCore runs fn against a fully wired client and prints its notifications.
func withCore(ctx context.Context, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	core, err := app.NewCore(ctx, cfg, app.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printNotifications(ctx, os.Stdout, core.Notifications)
	}()
	defer func() {
		cancel()
		<-done
	}()

	core.Client.Start(ctx)
	return fn(ctx, core)
}

// printNotifications writes shown notifications to w until ctx ends, then
// drains what is still buffered.
func printNotifications(ctx context.Context, w io.Writer, ch <-chan bus.Notification) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case n := <-ch:
					printNotification(w, n)
				default:
					return
				}
			}
		case n := <-ch:
			printNotification(w, n)
		}
	}
}

func printNotification(w io.Writer, n bus.Notification) {
	if n.Op == bus.OpShow {
		fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Text)
	}
}

func parseSource(s string) (storage.Source, bool, error) {
	switch s {
	case "all":
		return "", true, nil
	case string(storage.SourceTransactions), string(storage.SourceMessages):
		return storage.Source(s), false, nil
	default:
		return "", false, fmt.Errorf("unknown source %q", s)
	}
}

func runHistory(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("source")
	source, all, err := parseSource(raw)
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), func(ctx context.Context, core *app.Core) error {
		if all || source == storage.SourceTransactions {
			fmt.Println(tg.FormatTransactions(core.History.Transactions()))
		}
		if all || source == storage.SourceMessages {
			fmt.Println(tg.FormatMessages(core.History.Messages()))
		}
		return nil
	})
}

func runClear(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("source")
	source, all, err := parseSource(raw)
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), func(ctx context.Context, core *app.Core) error {
		var n int
		switch {
		case all:
			n = core.Client.Flow.ClearAll(ctx)
		case source == storage.SourceTransactions:
			n = core.Client.Flow.ClearTransactions(ctx)
		default:
			n = core.Client.Flow.ClearMessages(ctx)
		}
		fmt.Printf("removed %d record(s)\n", n)
		return nil
	})
}

func runNetwork(cmd *cobra.Command, _ []string) error {
	doSwitch, _ := cmd.Flags().GetBool("switch")
	wait, _ := cmd.Flags().GetDuration("wait")

	return withCore(cmd.Context(), func(ctx context.Context, core *app.Core) error {
		if err := core.Client.Connect(ctx); err != nil {
			return fmt.Errorf("connect wallet: %w", err)
		}

		if doSwitch && !core.Client.Guard.IsCorrectNetwork() {
			if err := core.Client.SwitchNetwork(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		st := core.Client.Status()
		fmt.Printf("address: %s\nbalance: %s\nstate:   %s\n", st.Address, st.Balance, st.NetworkState)
		if st.Network != nil {
			fmt.Printf("network: %s\n", st.Network.Name)
		}
		return nil
	})
}
