// Command portalctl is a terminal client for the IT-asset portal. State
// (session, carts, theme) lives in the configured storage tier, so a login
// survives between invocations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/pgcportal/portal"
	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/events"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	envFile    string
	storage    string
	dbPath     string
	redisAddr  string
	devRedis   bool
	baseURL    string
	password   string
	verbose    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := flag.NewFlagSet("portalctl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.envFile, "env", ".env", "dotenv file loaded before PORTAL_* variables are read")
	flags.StringVar(&opts.storage, "storage", "", "storage backend: sqlite, redis or memory (default sqlite)")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite database path")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "redis address")
	flags.BoolVar(&opts.devRedis, "dev-redis", false, "use an embedded miniredis instead of a real server")
	flags.StringVar(&opts.baseURL, "base-url", "", "backend base URL")
	flags.StringVar(&opts.password, "password", "", "password for login; defaults to PORTAL_PASSWORD")
	flags.BoolVar(&opts.verbose, "v", false, "log debug output")
	flags.Usage = func() { usage(flags) }

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		usage(flags)
		return 2
	}
	cmd, ok := lookupCommand(flags.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "portalctl: unknown command %q\n", flags.Arg(0))
		usage(flags)
		return 2
	}

	if err := loadEnv(opts.envFile); err != nil {
		fmt.Fprintf(stderr, "portalctl: %v\n", err)
		return 1
	}
	if opts.password == "" {
		opts.password = os.Getenv("PORTAL_PASSWORD")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "portalctl: %v\n", err)
		return 1
	}

	if opts.devRedis {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(stderr, "portalctl: start miniredis: %v\n", err)
			return 1
		}
		defer mr.Close()
		cfg.Storage.Backend = portal.StorageRedis
		cfg.Storage.RedisAddr = mr.Addr()
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	builder := portal.New().WithConfig(cfg).WithLogger(logger)
	if opts.verbose {
		builder = builder.WithEventSink(events.NewLogSink(logger))
	}
	p, err := builder.Build(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "portalctl: %v\n", err)
		return 1
	}
	defer p.Close()
	// Let the guard config for a rehydrated session land before commands
	// that consult permissions.
	p.Session().Wait()

	env := &env{portal: p, out: stdout, password: opts.password}
	if err := cmd.run(ctx, env, flags.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "portalctl: %s\n", api.Message(err))
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig layers defaults, the config file, PORTAL_* variables and flags,
// in that order.
func loadConfig(opts options) (portal.Config, error) {
	cfg := portal.DefaultConfig()
	cfg.Storage.Backend = portal.StorageSQLite
	cfg.Storage.SQLitePath = "portalctl.db"

	if opts.configPath != "" {
		loaded, err := portal.LoadConfigFile(opts.configPath)
		if err != nil {
			return portal.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return portal.Config{}, err
	}

	if opts.storage != "" {
		cfg.Storage.Backend = opts.storage
	}
	if opts.dbPath != "" {
		cfg.Storage.SQLitePath = opts.dbPath
	}
	if opts.redisAddr != "" {
		cfg.Storage.RedisAddr = opts.redisAddr
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	return cfg, nil
}

func usage(flags *flag.FlagSet) {
	w := flags.Output()
	fmt.Fprintln(w, "usage: portalctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-28s %s\n", c.usage, c.help)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	flags.PrintDefaults()
}
