package cli

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/sayless/sayless/internal/service"
)

func newStrikeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strike",
		Short: "Manage the abuse strike ledger",
		Long:  "Report, inspect, and clear strikes against origin addresses. An origin at or above the configured maximum is refused link creation.",
	}

	cmd.AddCommand(newStrikeReportCmd())
	cmd.AddCommand(newStrikeShowCmd())
	cmd.AddCommand(newStrikeClearCmd())

	return cmd
}

// strikeLedger opens the store and builds a StrikeService for one-shot
// CLI operations.
func strikeLedger() (*service.StrikeService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.RecordIPs() {
		return nil, nil, fmt.Errorf("origin recording is disabled in the configuration")
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return service.NewStrikeService(st, cfg.MaxStrikes, newLogger(cfg)), func() { st.Close() }, nil
}

func parseOrigin(s string) ([]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid origin address %q: %w", s, err)
	}
	return service.EncodeOrigin(addr.Unmap())
}

func newStrikeReportCmd() *cobra.Command {
	var amount uint16

	cmd := &cobra.Command{
		Use:     "report <address>",
		Short:   "Raise the strike count for an origin",
		Example: `  sayless strike report 203.0.113.7 --amount 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount == 0 {
				return fmt.Errorf("--amount must be positive")
			}
			ledger, closeStore, err := strikeLedger()
			if err != nil {
				return err
			}
			defer closeStore()

			origin, err := parseOrigin(args[0])
			if err != nil {
				return err
			}
			total, err := ledger.Report(context.Background(), origin, amount)
			if err != nil {
				return err
			}
			fmt.Printf("%s now has %d strike(s)\n", args[0], total)
			return nil
		},
	}

	cmd.Flags().Uint16Var(&amount, "amount", 1, "Number of strikes to add")

	return cmd
}

func newStrikeShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <address>",
		Short: "Show the strike count for an origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, closeStore, err := strikeLedger()
			if err != nil {
				return err
			}
			defer closeStore()

			origin, err := parseOrigin(args[0])
			if err != nil {
				return err
			}
			amount, err := ledger.Amount(context.Background(), origin)
			if err != nil {
				return err
			}
			fmt.Printf("%s has %d strike(s)\n", args[0], amount)
			return nil
		},
	}

	return cmd
}

func newStrikeClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <address>",
		Short: "Remove all strikes for an origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, closeStore, err := strikeLedger()
			if err != nil {
				return err
			}
			defer closeStore()

			origin, err := parseOrigin(args[0])
			if err != nil {
				return err
			}
			if err := ledger.Clear(context.Background(), origin); err != nil {
				return err
			}
			fmt.Printf("Cleared strikes for %s\n", args[0])
			return nil
		},
	}

	return cmd
}
