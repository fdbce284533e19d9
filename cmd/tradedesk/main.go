package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/naveenspark/tradedesk/internal/session"
	"github.com/naveenspark/tradedesk/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tradedesk",
		Short:         "Trading dashboard for the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	root.AddCommand(
		newTUICmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProfileCmd(),
		newPasswdCmd(),
		newDashboardCmd(),
		newRobotsCmd(),
		newTradesCmd(),
		newBrokersCmd(),
		newSubscriptionsCmd(),
		newAdminCmd(),
		newVersionCmd(),
	)
	return root
}

// withApp runs fn with a wired app that logs to stderr.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := loadApp(cmd.Context(), cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard (default)",
		RunE:  runTUI,
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	flow := googleFlow{webURL: a.cfg.WebURL, open: openBrowser, out: io.Discard, logger: a.logger}
	model := tui.NewApp(a.store, a.dash, tui.Options{
		WebURL: a.cfg.WebURL,
		Google: func(ctx context.Context) error {
			cred, err := flow.credential(ctx)
			if err != nil {
				return err
			}
			return a.store.LoginWithGoogle(ctx, cred)
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := a.store.Subscribe(func(st session.State) {
		p.Send(tui.SessionChangedMsg{State: st})
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "tradedesk "+version)
		},
	}
}
