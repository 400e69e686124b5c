package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sayless/sayless/internal/server"
	"github.com/sayless/sayless/internal/service"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sayless HTTP server",
		Long:  "Start the HTTP server and, when origin recording is enabled, the scheduled retention job that prunes old creator addresses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")

	// Flags flow into the config through viper; loadConfig reads the
	// overrides back out.
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	logger.Info("database ready", "driver", cfg.Database.Driver)

	var tokens *service.TokenService
	if cfg.TokensEnabled() {
		tokens = service.NewTokenService(st, cfg.MasterToken(), logger)
	}
	var strikes *service.StrikeService
	if cfg.RecordIPs() {
		strikes = service.NewStrikeService(st, cfg.MaxStrikes, logger)
	}
	links := service.NewLinkService(st, tokens, strikes, cfg.CreationRequiresAuth(), cfg.RecordIPs(), logger)

	if cfg.RecordIPs() {
		retention, err := service.NewRetention(st, cfg.IPRecording.Retention, cfg.IPRecording.RetentionCheckSchedule, logger)
		if err != nil {
			return fmt.Errorf("configure retention job: %w", err)
		}
		retention.Start()
		defer retention.Stop()
	}

	srv := server.New(cfg, st, links, tokens, strikes, appVersion, logger)

	fmt.Printf("sayless %s\n", appVersion)
	fmt.Printf("  listening: http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  openapi:   http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  health:    http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
