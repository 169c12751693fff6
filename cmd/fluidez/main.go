// Command fluidez is the terminal companion to the Fluidez web app. It reads
// and edits learner progress in the same store the server uses, browses the
// curriculum and drills vocabulary out loud.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"fluidez/internal/kv"
	"fluidez/internal/logging"
)

// options carries the persistent flags shared by every subcommand.
type options struct {
	storeDriver string
	storePath   string
	redisAddr   string
	owner       string
	verbose     bool

	log *logging.Logger
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{log: logging.Nop()}

	root := &cobra.Command{
		Use:   "fluidez",
		Short: "Speak Spanish in 30 days, from the terminal",
		Long: `fluidez works against the same progress store as the web server.

Examples:
  fluidez progress show --owner <session-id>
  fluidez content day 3
  fluidez practice --day 2`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.verbose {
				return nil
			}
			log, err := logging.New("development")
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeDriver, "store", envOr("STORE_DRIVER", kv.DriverFile), "Store driver: memory, file, sqlite or redis")
	flags.StringVar(&opts.storePath, "store-path", envOr("STORE_PATH", "data/store"), "Directory (file) or database file (sqlite)")
	flags.StringVar(&opts.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "Redis host:port")
	flags.StringVar(&opts.owner, "owner", "", "Session id whose records to use (empty for the shared record)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newProgressCmd(opts),
		newStreakCmd(opts),
		newContentCmd(),
		newPracticeCmd(opts),
	)
	return root
}

// openStore opens the backend selected by the persistent flags.
func (o *options) openStore(ctx context.Context) (kv.Store, error) {
	store, err := kv.Open(ctx, kv.Config{
		Driver:    o.storeDriver,
		Path:      o.storePath,
		RedisAddr: o.redisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", o.storeDriver, err)
	}
	return store, nil
}

func envOr(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
