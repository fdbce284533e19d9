package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/naveenspark/tradedesk/internal/dashboard"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func pnl(t domain.Trade) string {
	if t.ProfitLoss == nil {
		return "open"
	}
	return fmt.Sprintf("%+.2f", *t.ProfitLoss)
}

func newDashboardCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				vm, err := a.dash.SetPeriod(ctx, p)
				if err != nil {
					return apiError(err)
				}
				return printDashboard(cmd.OutOrStdout(), vm)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(dashboard.DefaultPeriod), "1d, 7d, 30d or 90d")
	return cmd
}

func printDashboard(out io.Writer, vm *dashboard.ViewModel) error {
	s, m := vm.Stats, vm.Metrics
	tw := newTable(out)
	_, _ = fmt.Fprintf(tw, "Balance\t%.2f\n", s.AccountBalance)
	_, _ = fmt.Fprintf(tw, "Profit\ttotal %+.2f\ttoday %+.2f\tweek %+.2f\tmonth %+.2f\n", s.TotalProfit, s.TodayProfit, s.WeekProfit, s.MonthProfit)
	_, _ = fmt.Fprintf(tw, "Trades\t%d\twin rate %.1f%%\tavg %+.2f\n", s.TotalTrades, s.WinRate, s.AvgProfit)
	if m.HasSeries {
		_, _ = fmt.Fprintf(tw, "Performance %s\treturn %+.1f%%\tp&l %+.2f\trange %.2f - %.2f\tvolatility %.2f\n",
			vm.Period, m.TotalReturnPct, m.TotalPnL, m.MinBalance, m.MaxBalance, m.Volatility)
	} else {
		_, _ = fmt.Fprintf(tw, "Performance %s\tno data\n", vm.Period)
	}
	if m.HasTrades {
		_, _ = fmt.Fprintf(tw, "Recent win rate\t%.1f%%\n", m.WinRate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\nActive robots (%d)\n", len(vm.ActiveRobots))
	tw = newTable(out)
	for _, r := range vm.ActiveRobots {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%+.2f\n", r.Name, r.Symbol, r.Status, r.TotalProfit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\nRecent trades (%d)\n", len(vm.RecentTrades))
	tw = newTable(out)
	for _, t := range vm.RecentTrades {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", t.Symbol, t.TradeType, pnl(t), t.OpenedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func newRobotsCmd() *cobra.Command {
	robots := &cobra.Command{
		Use:   "robots",
		Short: "List, create, start and stop robots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				list, err := a.client.ListRobots(ctx)
				if err != nil {
					return apiError(err)
				}
				if len(list) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no robots")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				for _, r := range list {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d trades\t%+.2f\n", r.ID, r.Name, r.Strategy, r.Status, r.TotalTrades, r.TotalProfit)
				}
				return tw.Flush()
			})
		},
	}

	toggle := func(use, short, verb string, call func(context.Context, *app, uuid.UUID) (*domain.Robot, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withApp(cmd, func(ctx context.Context, a *app) error {
					if err := a.requireSession(); err != nil {
						return err
					}
					r, err := call(ctx, a, id)
					if err != nil {
						return apiError(err)
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, r.Name, r.Status)
					return nil
				})
			},
		}
	}
	robots.AddCommand(
		toggle("start", "Start a robot", "started", func(ctx context.Context, a *app, id uuid.UUID) (*domain.Robot, error) {
			return a.client.StartRobot(ctx, id)
		}),
		toggle("stop", "Stop a robot", "stopped", func(ctx context.Context, a *app, id uuid.UUID) (*domain.Robot, error) {
			return a.client.StopRobot(ctx, id)
		}),
	)

	var name, strategy string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a robot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" || strategy == "" {
				return errors.New("--name and --strategy are required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				r, err := a.client.CreateRobot(ctx, domain.CreateRobotRequest{Name: name, Strategy: strategy})
				if err != nil {
					return apiError(err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", r.ID, r.Name)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "robot name")
	create.Flags().StringVar(&strategy, "strategy", "", "strategy identifier")
	robots.AddCommand(create)
	return robots
}

func newTradesCmd() *cobra.Command {
	var limit, offset int
	trades := &cobra.Command{
		Use:   "trades",
		Short: "List trades",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				list, err := a.client.ListTrades(ctx, limit, offset)
				if err != nil {
					return apiError(err)
				}
				if len(list) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no trades")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				for _, t := range list {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n", t.OpenedAt.Format(time.DateTime), t.Symbol, t.TradeType, t.Volume, t.Status, pnl(t))
				}
				return tw.Flush()
			})
		},
	}
	trades.Flags().IntVar(&limit, "limit", 20, "page size")
	trades.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	trades.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show trade statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				s, err := a.client.GetTradeStatistics(ctx)
				if err != nil {
					return apiError(err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "trades %d  wins %d  win rate %.1f%%  total %+.2f  avg %+.2f\n",
					s.TotalTrades, s.WinningTrades, s.WinRate, s.TotalProfit, s.AvgProfit)
				return nil
			})
		},
	})
	return trades
}

func newBrokersCmd() *cobra.Command {
	brokers := &cobra.Command{
		Use:   "brokers",
		Short: "Manage broker connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				list, err := a.client.ListBrokers(ctx)
				if err != nil {
					return apiError(err)
				}
				if len(list) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no brokers")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				for _, b := range list {
					mode := "live"
					if b.IsDemo {
						mode = "demo"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Name, b.BrokerType, mode, b.LastTestStatus)
				}
				return tw.Flush()
			})
		},
	}

	brokers.AddCommand(&cobra.Command{
		Use:   "test <id>",
		Short: "Test a broker connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				res, err := a.client.TestBroker(ctx, id)
				if err != nil {
					return apiError(err)
				}
				status := "ok"
				if !res.Success {
					status = "failed"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status, res.Message)
				if info := res.AccountInfo; info != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "account %s  balance %.2f %s  equity %.2f\n",
						info.AccountNumber, info.Balance, info.Currency, info.Equity)
				}
				return nil
			})
		},
	})

	var req domain.CreateBrokerRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a broker connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Name == "" || req.BrokerType == "" || req.APIKey == "" {
				return errors.New("--name, --type and --api-key are required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				secret, err := newPrompter(cmd).secret("API secret")
				if err != nil {
					return err
				}
				req.APISecret = secret
				b, err := a.client.CreateBroker(ctx, req)
				if err != nil {
					return apiError(err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", b.ID, b.Name)
				return nil
			})
		},
	}
	add.Flags().StringVar(&req.Name, "name", "", "connection name")
	add.Flags().StringVar(&req.BrokerType, "type", "", "broker type, e.g. mt5")
	add.Flags().StringVar(&req.APIKey, "api-key", "", "API key")
	add.Flags().StringVar(&req.Server, "server", "", "broker server")
	add.Flags().StringVar(&req.Login, "login", "", "account login")
	add.Flags().BoolVar(&req.IsDemo, "demo", false, "demo account")
	brokers.AddCommand(add)
	return brokers
}

func newSubscriptionsCmd() *cobra.Command {
	subs := &cobra.Command{
		Use:   "subscriptions",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				list, err := a.client.ListSubscriptions(ctx)
				if err != nil {
					return apiError(err)
				}
				if len(list) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no subscriptions")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				for _, s := range list {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.PlanName, s.Status, s.CurrentPeriodEnd.Format(time.DateOnly))
				}
				return tw.Flush()
			})
		},
	}

	var req domain.CreateSubscriptionRequest
	subscribe := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe to a plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.PlanName == "" || req.PaymentMethodID == "" {
				return errors.New("--plan and --payment-method are required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				s, err := a.client.CreateSubscription(ctx, req)
				if err != nil {
					return apiError(err)
				}
				// Pick up the new plan on the mirrored user.
				if err := a.store.LoadProfile(ctx); err != nil {
					a.logger.Warn("refresh profile after subscribe", slog.String("error", err.Error()))
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "subscribed to %s (%s)\n", s.PlanName, s.Status)
				return nil
			})
		},
	}
	subscribe.Flags().StringVar(&req.PlanName, "plan", "", "essential, pro or elite")
	subscribe.Flags().StringVar(&req.PaymentMethodID, "payment-method", "", "payment method id")
	subs.AddCommand(subscribe)
	return subs
}

var errNotAdmin = errors.New("admin privileges required")

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "Platform administration"}

	requireAdmin := func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		if !a.store.IsAdmin() {
			return errNotAdmin
		}
		return nil
	}

	var limit, offset int
	users := &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := requireAdmin(a); err != nil {
					return err
				}
				list, err := a.client.ListUsers(ctx, limit, offset)
				if err != nil {
					return apiError(err)
				}
				tw := newTable(cmd.OutOrStdout())
				for _, u := range list {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.Role, u.SubscriptionPlan, u.IsActive)
				}
				return tw.Flush()
			})
		},
	}
	users.Flags().IntVar(&limit, "limit", 50, "page size")
	users.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := requireAdmin(a); err != nil {
					return err
				}
				s, err := a.client.GetSystemStats(ctx)
				if err != nil {
					return apiError(err)
				}
				b := s.SubscriptionBreakdown
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "users   %d (%d active)\n", s.TotalUsers, s.ActiveUsers)
				_, _ = fmt.Fprintf(w, "robots  %d (%d active)\n", s.TotalRobots, s.ActiveRobots)
				_, _ = fmt.Fprintf(w, "trades  %d  profit %+.2f\n", s.TotalTrades, s.TotalProfit)
				_, _ = fmt.Fprintf(w, "plans   free %d  essential %d  pro %d  elite %d\n", b.Free, b.Essential, b.Pro, b.Elite)
				return nil
			})
		},
	}
	admin.AddCommand(users, stats)
	return admin
}
