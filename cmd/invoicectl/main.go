package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	"github.com/autoinvoice/autoinvoice/internal/config"
	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
)

var (
	cfgFile   string
	apiURL    string
	apiToken  string
	secret    string
	verbose   bool
	outputFmt string
	stdout    io.Writer = os.Stdout
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "autoinvoice CLI - invoices, mailer relay and operator tooling",
	Long: `invoicectl drives the autoinvoice API from the terminal: move invoices
through their lifecycle, exercise the signed mailer API the way the
automation workflow does, and mint development session tokens.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			fmt.Fprintf(stdout, "API URL: %s\n", apiURL)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.invoicectl.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "autoinvoice API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "session token for /api/v1 routes")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "HMAC shared secret for /api/mailer routes")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format (table, json)")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api_token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("hmac_shared_secret", rootCmd.PersistentFlags().Lookup("secret"))

	rootCmd.AddCommand(invoiceCmd, mailerCmd, signCmd, devTokenCmd, healthCmd, configCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".invoicectl")
	}

	viper.SetEnvPrefix("AUTOINVOICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(stdout, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	viper.SetDefault("api_url", "http://localhost:8080")
	apiURL = viper.GetString("api_url")
	apiToken = viper.GetString("api_token")
	secret = viper.GetString("hmac_shared_secret")
}

func client() *Client { return NewClient(apiURL, apiToken, secret) }

// Invoice commands
var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Invoice lifecycle commands",
}

var invoiceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices of the session owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("page-size")
		items, total, err := client().ListInvoices(strings.ToUpper(status), page, size)
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(map[string]any{"items": items, "total": total})
		}
		fmt.Fprintf(stdout, "%-36s %-16s %-10s %14s %-10s\n", "ID", "NUMBER", "STATUS", "TOTAL", "DUE")
		fmt.Fprintln(stdout, strings.Repeat("-", 90))
		for _, inv := range items {
			fmt.Fprintf(stdout, "%-36s %-16s %-10s %14s %-10s\n",
				inv.ID, inv.Number, inv.Status, inv.TotalAmount+" "+inv.Currency, inv.DueDate)
		}
		fmt.Fprintf(stdout, "\n%d of %d invoices\n", len(items), total)
		return nil
	},
}

func transitionCmd(use, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [invoice-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := client().Transition(args[0], action)
			if inv != nil {
				if outputFmt == "json" {
					if werr := writeJSON(inv); werr != nil {
						return werr
					}
				} else {
					fmt.Fprintf(stdout, "Invoice %s is %s\n", inv.Number, inv.Status)
				}
			}
			return err
		},
	}
}

func init() {
	invoiceListCmd.Flags().String("status", "", "filter by status (draft, sent, paid, cancelled)")
	invoiceListCmd.Flags().Int("page", 1, "page number")
	invoiceListCmd.Flags().Int("page-size", 20, "page size")

	invoiceCmd.AddCommand(invoiceListCmd,
		transitionCmd("send", "send", "Send a draft invoice through the workflow webhook"),
		transitionCmd("mark-paid", "mark-paid", "Mark a sent invoice as paid"),
		transitionCmd("cancel", "cancel", "Cancel a draft or sent invoice"),
	)
}

// Mailer commands
var mailerCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Call the signed mailer API",
}

var mailerTokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Fetch a valid provider access token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		tok, err := client().MailerToken(args[0], provider)
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(tok)
		}
		fmt.Fprintf(stdout, "Provider:     %s\n", tok.Provider)
		fmt.Fprintf(stdout, "From:         %s\n", tok.From)
		fmt.Fprintf(stdout, "Access token: %s\n", maskToken(tok.AccessToken))
		if tok.ExpiresAt != nil {
			fmt.Fprintf(stdout, "Expires at:   %s\n", time.Unix(*tok.ExpiresAt, 0).UTC().Format(time.RFC3339))
		}
		return nil
	},
}

var mailerSendCmd = &cobra.Command{
	Use:   "send [user-id] [to]",
	Short: "Relay a message through the user's linked mailbox",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := SendMail{UserID: args[0], To: args[1]}
		m.Provider, _ = cmd.Flags().GetString("provider")
		m.Subject, _ = cmd.Flags().GetString("subject")
		m.HTML, _ = cmd.Flags().GetString("html")
		m.From, _ = cmd.Flags().GetString("from")
		if path, _ := cmd.Flags().GetString("pdf"); path != "" {
			if err := attachPDF(&m, path); err != nil {
				return err
			}
		}
		if err := client().SendMail(m); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Message sent.")
		return nil
	},
}

func init() {
	mailerTokenCmd.Flags().String("provider", "", "gmail or m365 (default: first linked account)")
	mailerSendCmd.Flags().String("provider", "gmail", "gmail or m365")
	mailerSendCmd.Flags().String("subject", "", "message subject")
	mailerSendCmd.Flags().String("html", "", "HTML body")
	mailerSendCmd.Flags().String("from", "", "From address (default: the linked account)")
	mailerSendCmd.Flags().String("pdf", "", "path of a PDF to attach")
	mailerCmd.AddCommand(mailerTokenCmd, mailerSendCmd)
}

// Signing helper for hand-crafted workflow calls.
var signCmd = &cobra.Command{
	Use:   "sign [payload]",
	Short: "Print the X-Signature for a payload (stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if secret == "" {
			return fmt.Errorf("shared secret is required (use --secret or AUTOINVOICE_HMAC_SHARED_SECRET)")
		}
		var payload []byte
		if len(args) == 1 {
			payload = []byte(args[0])
		} else {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			payload = b
		}
		fmt.Fprintln(stdout, signature.Sign(secret, payload))
		return nil
	},
}

var devTokenCmd = &cobra.Command{
	Use:   "dev-token [owner-id]",
	Short: "Mint a session token signed with JWT_SIGNING_KEY (new owner when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := uuid.New()
		if len(args) == 1 {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			owner = id
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		key := viper.GetString("jwt_signing_key")
		if key == "" {
			key = os.Getenv("JWT_SIGNING_KEY")
		}
		if key == "" {
			return fmt.Errorf("signing key is required (AUTOINVOICE_JWT_SIGNING_KEY or JWT_SIGNING_KEY)")
		}
		tok, exp, err := amw.MintToken(config.Config{JWTSigningKey: key, PublicBaseURL: apiURL}, owner, ttl)
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(map[string]any{"owner_id": owner, "token": tok, "expires_at": exp.UTC()})
		}
		fmt.Fprintln(stdout, tok)
		logVerbose("owner %s, expires %s", owner, exp.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	devTokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check API, Postgres and Redis health",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client().Health()
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(h)
		}
		for _, k := range []string{"status", "version", "time"} {
			fmt.Fprintf(stdout, "%-9s: %v\n", k, h[k])
		}
		if checks, ok := h["checks"].(map[string]any); ok {
			for _, dep := range []string{"postgres", "redis"} {
				fmt.Fprintf(stdout, "%-9s: %v\n", dep, checks[dep])
			}
		}
		if h["status"] != "ok" {
			return fmt.Errorf("service is %v", h["status"])
		}
		return nil
	},
}

// Configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(stdout, "Current Configuration:")
		fmt.Fprintf(stdout, "API URL: %s\n", apiURL)
		fmt.Fprintf(stdout, "Session token: %s\n", maskToken(apiToken))
		fmt.Fprintf(stdout, "Shared secret: %s\n", maskToken(secret))
		if viper.ConfigFileUsed() != "" {
			fmt.Fprintf(stdout, "Config file: %s\n", viper.ConfigFileUsed())
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Persist a setting (api_url, api_token, hmac_shared_secret, jwt_signing_key)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "api_url", "api_token", "hmac_shared_secret", "jwt_signing_key":
		default:
			return fmt.Errorf("unknown key %q", args[0])
		}
		viper.Set(args[0], args[1])
		path := viper.ConfigFileUsed()
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			path = home + "/.invoicectl.yaml"
		}
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Fprintf(stdout, "Configuration saved to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

func attachPDF(m *SendMail, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}
	m.PDFBase64 = encodePDF(b)
	if m.PDFName == "" {
		m.PDFName = filepath.Base(path)
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func logVerbose(format string, args ...any) {
	if verbose {
		log.Printf("[VERBOSE] "+format, args...)
	}
}
