package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sayless/sayless/internal/model"
	"github.com/sayless/sayless/internal/service"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
		Long:  "Issue, revoke, and list capability tokens directly against the configured database.",
	}

	cmd.AddCommand(newTokenCreateCmd())
	cmd.AddCommand(newTokenRevokeCmd())
	cmd.AddCommand(newTokenListCmd())

	return cmd
}

// ---------- token create ----------

func newTokenCreateCmd() *cobra.Command {
	var (
		admin       bool
		createLink  bool
		createToken bool
		viewIPs     bool
		expires     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new token",
		Long:  "Generate a new capability token. The raw value is shown once and cannot be retrieved again.",
		Example: `  sayless token create --create-link
  sayless token create --admin --expires "2027-01-01 00:00:00"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenCreate(model.PermissionFlags{
				Admin:       admin,
				CreateLink:  createLink,
				CreateToken: createToken,
				ViewIPs:     viewIPs,
			}, expires)
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin permission (implies all others)")
	cmd.Flags().BoolVar(&createLink, "create-link", false, "Grant the createLink permission")
	cmd.Flags().BoolVar(&createToken, "create-token", false, "Grant the createToken permission")
	cmd.Flags().BoolVar(&viewIPs, "view-ips", false, "Grant the viewIps permission")
	cmd.Flags().StringVar(&expires, "expires", "", `Expiry time, "2006-01-02 15:04:05" or RFC 3339 (default: one year)`)

	return cmd
}

func runTokenCreate(flags model.PermissionFlags, expires string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.TokensEnabled() {
		return fmt.Errorf("the token subsystem is disabled in the configuration")
	}

	var expiresAt *time.Time
	if expires != "" {
		t, err := parseTimestamp(expires)
		if err != nil {
			return fmt.Errorf("invalid --expires value: %w", err)
		}
		expiresAt = &t
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	tokens := service.NewTokenService(st, cfg.MasterToken(), newLogger(cfg))
	value, err := tokens.Issue(context.Background(), flags, expiresAt)
	if err != nil {
		return err
	}

	fmt.Println("Token created:")
	fmt.Println()
	fmt.Printf("  Token: %s\n", value)
	fmt.Printf("  Flags: admin=%t create_link=%t create_token=%t view_ips=%t\n",
		flags.Admin, flags.CreateLink, flags.CreateToken, flags.ViewIPs)
	if expiresAt != nil {
		fmt.Printf("  Expires: %s\n", expiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Println("  Save this token now - it cannot be retrieved again.")
	return nil
}

// ---------- token revoke ----------

func newTokenRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke [token]",
		Short: "Revoke a token",
		Long:  "Expire a token immediately. When the value is omitted it is prompted for without echo.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runTokenRevoke(target)
		},
	}

	return cmd
}

func runTokenRevoke(target string) error {
	if target == "" {
		fmt.Print("Token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		fmt.Println()
		target = string(raw)
	}
	if target == "" {
		return fmt.Errorf("no token given")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	n, err := st.ExpireToken(context.Background(), target, time.Now().UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("No such token; nothing to do.")
		return nil
	}
	fmt.Println("Token revoked.")
	return nil
}

// ---------- token list ----------

func newTokenListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runTokenList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	toks, err := st.ListTokens(context.Background())
	if err != nil {
		return err
	}

	type tokenRow struct {
		Token     string `json:"token"`
		Flags     string `json:"flags"`
		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
		Live      bool   `json:"live"`
	}

	now := time.Now().UTC()
	rows := make([]tokenRow, len(toks))
	for i, tok := range toks {
		rows[i] = tokenRow{
			Token:     abbreviate(tok.Value),
			Flags:     flagString(tok.PermissionFlags),
			CreatedAt: tok.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt: tok.ExpiresAt.UTC().Format(time.RFC3339),
			Live:      !tok.Expired(now),
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No tokens issued. Use 'sayless token create' to create one.")
		return nil
	}

	fmt.Printf("%-14s %-8s %-22s %-22s %-6s\n", "TOKEN", "FLAGS", "CREATED", "EXPIRES", "LIVE")
	for _, r := range rows {
		live := "yes"
		if !r.Live {
			live = "no"
		}
		fmt.Printf("%-14s %-8s %-22s %-22s %-6s\n", r.Token, r.Flags, r.CreatedAt, r.ExpiresAt, live)
	}
	return nil
}

// abbreviate shows enough of a token value to identify it without
// leaking the whole secret into terminal scrollback.
func abbreviate(value string) string {
	if len(value) <= 10 {
		return value
	}
	return value[:10] + "..."
}

// flagString renders permission flags as a compact column, one letter
// per granted capability.
func flagString(f model.PermissionFlags) string {
	out := []byte("----")
	if f.Admin {
		out[0] = 'A'
	}
	if f.CreateLink {
		out[1] = 'L'
	}
	if f.CreateToken {
		out[2] = 'T'
	}
	if f.ViewIPs {
		out[3] = 'V'
	}
	return string(out)
}

// parseTimestamp accepts RFC 3339 or the "2006-01-02 15:04:05" form.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
