package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// prompter reads answers from the command's stdin. Secrets are read without
// echo when stdin is a terminal.
type prompter struct {
	in  io.Reader
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, r: bufio.NewReader(in), out: cmd.ErrOrStderr()}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label+": ") //nolint:errcheck
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		fmt.Fprint(p.out, label+": ") //nolint:errcheck
		b, err := term.ReadPassword(f.Fd())
		fmt.Fprintln(p.out) //nolint:errcheck
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		return string(b), nil
	}
	return p.line(label)
}

// storeError prefers the normalized message the store recorded.
func storeError(a *app, err error) error {
	if msg := a.store.State().Err; msg != "" {
		return errors.New(msg)
	}
	return err
}

func newLoginCmd() *cobra.Command {
	var (
		google   bool
		register bool
		email    string
		fullName string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with Google",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if google {
					flow := googleFlow{webURL: a.cfg.WebURL, open: openBrowser, out: out, logger: a.logger}
					cred, err := flow.credential(ctx)
					if err != nil {
						return err
					}
					if err := a.store.LoginWithGoogle(ctx, cred); err != nil {
						return storeError(a, err)
					}
					return printSignedIn(out, a.store.User())
				}

				p := newPrompter(cmd)
				var err error
				if email == "" {
					if email, err = p.line("Email"); err != nil {
						return err
					}
				}
				password, err := p.secret("Password")
				if err != nil {
					return err
				}
				if email == "" || password == "" {
					return errors.New("email and password are required")
				}

				if register {
					err = a.store.Register(ctx, domain.Registration{Email: email, Password: password, FullName: fullName})
				} else {
					err = a.store.Login(ctx, domain.Credentials{Email: email, Password: password})
				}
				if err != nil {
					return storeError(a, err)
				}
				return printSignedIn(out, a.store.User())
			})
		},
	}
	cmd.Flags().BoolVar(&google, "google", false, "sign in with Google in the browser")
	cmd.Flags().BoolVar(&register, "register", false, "create a new account")
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&fullName, "name", "", "full name for --register")
	return cmd
}

func printSignedIn(out io.Writer, u *domain.User) error {
	_, err := fmt.Fprintf(out, "Signed in as %s (%s plan)\n", u.DisplayName(), u.SubscriptionPlan)
	return err
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.store.IsAuthenticated() {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Already signed out.")
					return nil
				}
				a.store.Logout(ctx)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				if err := a.store.Revalidate(ctx); err != nil {
					return apiError(err)
				}
				u := a.store.User()
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "email:   %s\n", u.Email)
				if u.FullName != "" {
					_, _ = fmt.Fprintf(w, "name:    %s\n", u.FullName)
				}
				_, _ = fmt.Fprintf(w, "role:    %s\n", u.Role)
				_, _ = fmt.Fprintf(w, "plan:    %s\n", u.SubscriptionPlan)
				_, _ = fmt.Fprintf(w, "active:  %t\n", a.store.HasActiveSubscription())
				if a.store.IsAdmin() {
					_, _ = fmt.Fprintln(w, "admin:   yes")
				}
				if line := periodEnd(u.Subscription); line != "" {
					_, _ = fmt.Fprintln(w, line)
				}
				return nil
			})
		},
	}
}

// periodEnd describes when the current subscription period ends. A canceled
// subscription ends there instead of renewing.
func periodEnd(s *domain.Subscription) string {
	if s == nil || s.CurrentPeriodEnd.IsZero() {
		return ""
	}
	label := "renews:"
	if s.Status == domain.SubscriptionCanceled {
		label = "ends:"
	}
	return fmt.Sprintf("%-9s%s", label, s.CurrentPeriodEnd.Format(time.DateOnly))
}

func newProfileCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your name or email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch domain.ProfileUpdate
			if cmd.Flags().Changed("name") {
				patch.FullName = &name
			}
			if cmd.Flags().Changed("email") {
				patch.Email = &email
			}
			if patch.FullName == nil && patch.Email == nil {
				return errors.New("nothing to update, pass --name or --email")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				if err := a.store.UpdateProfile(ctx, patch); err != nil {
					return apiError(err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s <%s>\n", a.store.User().FullName, a.store.User().Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new full name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	return cmd
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				p := newPrompter(cmd)
				current, err := p.secret("Current password")
				if err != nil {
					return err
				}
				next, err := p.secret("New password")
				if err != nil {
					return err
				}
				confirm, err := p.secret("Repeat new password")
				if err != nil {
					return err
				}
				if next == "" || next != confirm {
					return errors.New("new passwords do not match")
				}
				if err := a.store.ChangePassword(ctx, domain.PasswordChange{CurrentPassword: current, NewPassword: next}); err != nil {
					return apiError(err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
				return nil
			})
		},
	}
}
