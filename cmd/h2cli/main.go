// h2cli opens a single HTTP/2 connection to a server, performs the
// connection preface and SETTINGS exchange, and reports the parameters the
// server advertised.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelsolaorbaiceta/h2cli/internal/config"
	"github.com/angelsolaorbaiceta/h2cli/internal/conn"
	"github.com/angelsolaorbaiceta/h2cli/internal/http2"
	"github.com/angelsolaorbaiceta/h2cli/internal/logger"
)

var (
	flagConfig   string
	flagInsecure bool
	flagTimeout  time.Duration
	flagLogLevel string
	flagLogJSON  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "h2cli <target>",
		Short: "Perform the HTTP/2 connection handshake against a server",
		Long: `h2cli establishes a TLS connection with ALPN restricted to "h2", sends
the HTTP/2 connection preface and SETTINGS frame, and prints the settings
the server advertises in return.

The target can be an https URL, a host:port pair, or a bare hostname
(which defaults to port 443). Plaintext h2c is not supported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to a TOML config file")
	rootCmd.Flags().BoolVarP(&flagInsecure, "insecure", "k", false, "skip TLS certificate verification")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "TCP+TLS dial timeout (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "emit logs as JSON instead of console output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "h2cli: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging, os.Stderr)

	tlsCfg, err := cfg.TLS.BuildTLSConfig()
	if err != nil {
		return err
	}

	c, err := conn.New(args[0],
		conn.WithLogger(log),
		conn.WithTLSConfig(tlsCfg),
		conn.WithDialTimeout(cfg.DialTimeout()),
		conn.WithSettings(cfg.SettingsList()),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Connect(); err != nil {
		return err
	}

	printServerSettings(cmd.OutOrStdout(), c.ServerSettings())
	return nil
}

// loadConfig resolves the effective configuration: file values when --config
// is given, defaults otherwise, with flags taking precedence over both.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagInsecure {
		cfg.TLS.InsecureSkipVerify = true
	}
	if flagTimeout > 0 {
		cfg.Target.DialTimeout.Duration = flagTimeout
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = config.LogLevel(flagLogLevel)
	}
	if flagLogJSON {
		cfg.Logging.Format = "json"
	}
	return cfg, cfg.Validate()
}

func printServerSettings(w io.Writer, settings map[http2.SettingID]uint32) {
	ids := make([]http2.SettingID, 0, len(settings))
	for id := range settings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintln(w, "Server settings:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-33s %d\n", id, settings[id])
	}
}
