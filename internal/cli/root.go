package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/oauth"
	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/repository"
)

const (
	envBaseURL    = "PLATFORM_BASE_URL"
	envConfig     = "PLATFORM_CONFIG"
	envStore      = "PLATFORM_STORE"
	envStoreDB    = "PLATFORM_STORE_DB"
	envPassphrase = "PLATFORM_STORE_PASSPHRASE"
	envPassword   = "PLATFORM_PASSWORD"
)

type globalFlags struct {
	configPath string
	storePath  string
	storeDB    string
	envFile    string
	baseURL    string
	verbose    bool
}

// app is the per invocation wiring shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer
	opts   session.Options
	engine *session.Engine
	stash  *oauth.ReturnToStash
	// activity is only set when the session lives in a database
	activity *repository.ActivityLog
	closer   func() error
}

// NewRootCommand builds the platformctl command tree. out and errOut receive normal and
// diagnostic output.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "platformctl",
		Short: "Sign in to the platform and inspect the local session",
		Long: `platformctl manages the platform session stored on this machine.

It signs in with email and password or a provider redirect, keeps the credentials in
a local store, and reports what the session is allowed to do.

Examples:
  platformctl login --email me@example.com
  platformctl whoami
  platformctl guard /admin/users --role admin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file (env "+envConfig+")")
	pf.StringVar(&flags.storePath, "store", "", "credential file (env "+envStore+", default ~/.platformctl/credentials.json)")
	pf.StringVar(&flags.storeDB, "store-db", "", "sqlite database used instead of the credential file (env "+envStoreDB+")")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&flags.baseURL, "base-url", "", "API base URL (env "+envBaseURL+")")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newRefreshCommand(a),
		newVerifyEmailCommand(a),
		newResendVerificationCommand(a),
		newOAuthBeginCommand(a),
		newOAuthCompleteCommand(a),
		newGuardCommand(a),
		newActivityCommand(a),
	)

	return root
}

// ExecuteContext runs the CLI with os.Args.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func (a *app) setup(ctx context.Context, flags *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", flags.envFile, err)
		}
	}

	opts, err := loadOptions(firstSet(flags.configPath, os.Getenv(envConfig)))
	if err != nil {
		return err
	}
	if base := firstSet(flags.baseURL, os.Getenv(envBaseURL)); base != "" {
		opts.BaseURL = base
		opts = opts.WithDefaults()
	}
	a.opts = opts

	level := zapcore.WarnLevel
	if flags.verbose {
		level = zapcore.DebugLevel
	}
	logger := session.NewLogger(a.errOut, level)

	storage, err := a.openStorage(ctx, flags)
	if err != nil {
		return err
	}
	a.stash = oauth.NewReturnToStash(storage, opts.GetStorageNamespace())

	engineOpts := []session.EngineOption{
		session.WithEngineLogger(logger),
		session.WithEngineNotifier(a.notifier()),
	}
	if a.activity != nil {
		engineOpts = append(engineOpts, session.WithEngineActivitySink(a.activity))
	}
	a.engine = session.NewEngine(opts, storage, a.navigator(), engineOpts...)
	a.engine.Manager.Initialize()
	return nil
}

func (a *app) close() error {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

func loadOptions(path string) (session.Options, error) {
	if path == "" {
		return session.DefaultOptions().WithDefaults(), nil
	}
	return session.LoadOptions(path)
}

func (a *app) openStorage(ctx context.Context, flags *globalFlags) (session.Storage, error) {
	if dsn := firstSet(flags.storeDB, os.Getenv(envStoreDB)); dsn != "" {
		mgr, err := repository.OpenSQLite(ctx, dsn, repository.WithTimeout(10*time.Second))
		if err != nil {
			return nil, err
		}
		a.closer = mgr.Close
		a.activity = mgr.Activity()
		return mgr.Storage(), nil
	}

	path := firstSet(flags.storePath, os.Getenv(envStore))
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".platformctl", "credentials.json")
	}

	var fopts []session.FileStorageOption
	if pass := os.Getenv(envPassphrase); pass != "" {
		fopts = append(fopts, session.WithPassphrase(pass))
	}
	return session.NewFileStorage(path, fopts...), nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
