package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/oauth"
)

func newLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(envPassword)
			}
			res := a.engine.Manager.Login(cmd.Context(), email, password)
			if err := a.printResult(res); err != nil {
				return err
			}
			a.printSnapshot(a.engine.Manager.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (env "+envPassword+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var req session.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; sign in after verifying the email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv(envPassword)
			}
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}
			return a.printResult(a.engine.Manager.Register(cmd.Context(), req))
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "account email")
	f.StringVar(&req.Password, "password", "", "account password (env "+envPassword+")")
	f.StringVar(&req.ConfirmPassword, "confirm-password", "", "password confirmation (defaults to --password)")
	f.StringVar(&req.DisplayName, "display-name", "", "display name")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.engine.Manager.Logout()
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printSnapshot(a.engine.Manager.Snapshot())
			return nil
		},
	}
}

func newRefreshCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the user record from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Manager.RefreshUserData(cmd.Context()); err != nil {
				return describe(err)
			}
			a.printSnapshot(a.engine.Manager.Snapshot())
			return nil
		},
	}
}

func newVerifyEmailCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm an email verification token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printResult(a.engine.Manager.VerifyEmail(cmd.Context(), args[0]))
		},
	}
}

func newResendVerificationCommand(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend-verification",
		Short: "Send a new verification email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printResult(a.engine.Manager.ResendVerification(cmd.Context(), email))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newOAuthBeginCommand(a *app) *cobra.Command {
	var returnTo string

	cmd := &cobra.Command{
		Use:   "oauth-begin <provider>",
		Short: "Print the URL that starts a provider sign-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := oauth.BeginURL(a.stash, a.engine.Client, strings.ToLower(args[0]), returnTo)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(a.out, u)
			return nil
		},
	}

	cmd.Flags().StringVar(&returnTo, "return-to", "", "in-app path to open after signing in")
	return cmd
}

func newOAuthCompleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "oauth-complete <redirect-url>",
		Short: "Finish a provider sign-in from the redirect URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid redirect url: %w", err)
			}

			h := oauth.NewHandler(a.opts, a.engine.Manager, a.navigator(),
				oauth.WithNotifier(a.notifier()),
				oauth.WithReturnToStash(a.stash),
				// nothing to read the message in a terminal; move on right away
				oauth.WithScheduler(oauth.SchedulerFunc(func(_ time.Duration, f func()) { f() })),
			)

			out := h.Complete(cmd.Context(), u.Query())
			if !out.Success {
				return describe(out.Err)
			}
			a.printSnapshot(a.engine.Manager.Snapshot())
			return nil
		},
	}
}

func newGuardCommand(a *app) *cobra.Command {
	var role, permission string
	var public bool

	cmd := &cobra.Command{
		Use:   "guard <path>",
		Short: "Show what the route guard decides for a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := session.Requirements{RequireAuthenticated: !public}
			if role != "" {
				r, ok := session.ParseRole(role)
				if !ok {
					return fmt.Errorf("unknown role %q, expected one of %v", role, session.GetAllRoles())
				}
				req.RequireRole = r
			}
			if permission != "" {
				req.RequirePermission = session.Permission(permission)
			}

			d := a.engine.Guard.Evaluate(a.engine.Manager.Snapshot(), args[0], req)
			switch d.Kind {
			case session.DecisionRedirect:
				fmt.Fprintf(a.out, "%s -> %s\n", d.Kind, d.Location)
			default:
				fmt.Fprintln(a.out, d.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "minimum role (user, admin, superadmin)")
	cmd.Flags().StringVar(&permission, "permission", "", "required permission, e.g. documents:upload")
	cmd.Flags().BoolVar(&public, "public", false, "page does not require a signed in user")
	return cmd
}

func newActivityCommand(a *app) *cobra.Command {
	var limit int
	var mine bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent session activity (requires --store-db)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.activity == nil {
				return errors.New("activity is only recorded with --store-db")
			}

			actor := ""
			if mine {
				snap := a.engine.Manager.Snapshot()
				if !snap.IsAuthenticated {
					return errors.New("not signed in")
				}
				actor = snap.User.ID
			}

			records, err := a.activity.Recent(cmd.Context(), actor, limit)
			if err != nil {
				return fmt.Errorf("failed to read activity: %w", err)
			}
			for _, r := range records {
				fmt.Fprintf(a.out, "%s  %-24s %s\n", r.OccurredAt.Local().Format(time.DateTime), r.Verb, r.ActorID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	cmd.Flags().BoolVar(&mine, "mine", false, "only entries for the signed in user")
	return cmd
}

func (a *app) printResult(res session.Result) error {
	if res.Failed() {
		for field, msg := range res.Fields {
			fmt.Fprintf(a.errOut, "  %s: %s\n", field, msg)
		}
		if res.Err != nil {
			return describe(res.Err)
		}
		return errors.New(res.Message)
	}
	if res.Message != "" {
		fmt.Fprintln(a.out, res.Message)
	}
	return nil
}

func (a *app) printSnapshot(snap session.Snapshot) {
	if !snap.IsAuthenticated {
		fmt.Fprintln(a.out, "Not signed in.")
		return
	}
	u := snap.User
	fmt.Fprintf(a.out, "User:     %s\n", u.Name())
	fmt.Fprintf(a.out, "Email:    %s\n", u.Email)
	fmt.Fprintf(a.out, "ID:       %s\n", u.ID)
	fmt.Fprintf(a.out, "Role:     %s\n", u.Role)
	fmt.Fprintf(a.out, "Verified: %t\n", u.IsVerified)
	fmt.Fprintf(a.out, "Active:   %t\n", u.IsActive)
}

func (a *app) navigator() session.Navigator {
	return session.NavigatorFunc(func(location string) {
		fmt.Fprintf(a.out, "Next: %s\n", location)
	})
}

func (a *app) notifier() session.Notifier {
	return printNotifier{a: a}
}

type printNotifier struct {
	a *app
}

func (n printNotifier) Success(msg string) { fmt.Fprintln(n.a.out, msg) }
func (n printNotifier) Error(msg string)   { fmt.Fprintln(n.a.errOut, msg) }

// describe turns session errors into the message a user should see, keeping the
// error kind for scripts that inspect stderr.
func describe(err error) error {
	if err == nil {
		return nil
	}
	kind := session.KindOf(err)
	return fmt.Errorf("%s (%s)", session.UserMessage(err), kind)
}
