package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/cache"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/db"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/server"
)

// Server environment variables; flags take precedence.
const (
	envAddr       = "TASKBOARD_ADDR"
	envDB         = "TASKBOARD_DB"
	envRedis      = "TASKBOARD_REDIS_URL"
	envAuthSecret = "TASKBOARD_AUTH_SECRET" //nolint:gosec // variable name, not a secret
)

const (
	defaultAddr     = ":8080"
	defaultCacheTTL = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Serves the board API and the calendar feeds from a SQLite database.

With --redis, task lists are cached in Redis and evicted on every write.
Without --auth-secret the server runs in development mode: the bearer
token is taken as the user ID unchecked. Never expose such a server.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveTokenCmd = &cobra.Command{
	Use:   "token USER",
	Short: "Mint a signed bearer token for USER",
	Args:  cobra.ExactArgs(1),
	RunE:  runServeToken,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default $"+envAddr+" or "+defaultAddr+")")
	serveCmd.Flags().String("db", "", "SQLite database path (default $"+envDB+" or ~/.local/share/taskboard/taskboard.db)")
	serveCmd.Flags().String("redis", "", "Redis URL for the task list cache (default $"+envRedis+")")
	serveCmd.Flags().Duration("cache-ttl", defaultCacheTTL, "Redis cache TTL")
	serveCmd.Flags().String("log-format", "text", "log format (text, json)")
	serveCmd.PersistentFlags().String("auth-secret", "", "HS256 secret for bearer tokens (default $"+envAuthSecret+")")

	serveTokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime") //nolint:mnd // 30 days
	serveCmd.AddCommand(serveTokenCmd)
	rootCmd.AddCommand(serveCmd)
}

func serverLogger(format string) (*log.Logger, error) {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(log.InfoLevel)
	if flagVerbose {
		l.SetLevel(log.DebugLevel)
	}
	switch format {
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, clierr.Newf(clierr.InvalidInput, "invalid --log-format %q; allowed: text, json", format)
	}
	return l, nil
}

func authSecret(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString("auth-secret")
	return firstNonEmpty(v, os.Getenv(envAuthSecret))
}

func runServe(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("log-format")
	srvLog, err := serverLogger(format)
	if err != nil {
		return err
	}

	addrFlag, _ := cmd.Flags().GetString("addr")
	addr := firstNonEmpty(addrFlag, os.Getenv(envAddr), defaultAddr)

	dbFlag, _ := cmd.Flags().GetString("db")
	dbPath := firstNonEmpty(dbFlag, os.Getenv(envDB))
	if dbPath == "" {
		if dbPath, err = db.DefaultPath(); err != nil {
			return err
		}
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	srvLog.WithField("path", dbPath).Info("database ready")

	var storage server.Storage = store
	redisFlag, _ := cmd.Flags().GetString("redis")
	if redisURL := firstNonEmpty(redisFlag, os.Getenv(envRedis)); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return clierr.Wrap(clierr.InvalidInput, err, "invalid Redis URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(cmd.Context()).Err(); err != nil {
			srvLog.WithError(err).Warn("redis unreachable; serving uncached until it recovers")
		}
		ttl, _ := cmd.Flags().GetDuration("cache-ttl")
		storage = cache.New(store, rdb, ttl, log.NewEntry(srvLog))
		srvLog.WithFields(log.Fields{"addr": opts.Addr, "ttl": ttl}).Info("task list cache enabled")
	}

	auth := server.NewAuth(authSecret(cmd))
	if auth.DevMode() {
		srvLog.Warn("no auth secret configured; bearer tokens are trusted as user IDs")
	}

	srv := server.New(storage, auth, srvLog)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(addr) }()

	select {
	case err := <-errc:
		return err
	case <-cmd.Context().Done():
	}

	srvLog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

func runServeToken(cmd *cobra.Command, args []string) error {
	secret := authSecret(cmd)
	if secret == "" {
		return clierr.New(clierr.InvalidInput, "an auth secret is required to sign tokens; set --auth-secret or $"+envAuthSecret)
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")
	tok, err := server.NewAuth(secret).Issue(args[0], ttl)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"user_id":    args[0],
			"token":      tok,
			"expires_at": time.Now().Add(ttl).UTC(),
		})
	}
	fmt.Fprintln(os.Stdout, tok)
	return nil
}
