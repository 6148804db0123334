package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/auth"
	"github.com/iho/boxoffice/internal/infrastructure/postgres"
)

var (
	baseURL        string
	timeout        time.Duration
	token          string
	databaseURL    string
	migrationsPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "boxoffice-cli",
		Short:        "Box office CLI tool",
		Long:         `A command line interface for operating the box office API and its database.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("BOXOFFICE_URL", "http://localhost:8080"), "Base URL of the box office API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("BOXOFFICE_TOKEN"), "Bearer token")

	rootCmd.AddCommand(
		ledgerCmd(),
		reconcileCmd(),
		invoiceCmd(),
		redeemCmd(),
		tokenCmd(),
		migrateCmd(),
	)

	return rootCmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Reconcile every wallet and check ledger totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report struct {
				TotalUsers       int    `json:"total_users"`
				ReconciledUsers  int    `json:"reconciled_users"`
				LedgerConsistent bool   `json:"ledger_consistent"`
				LedgerError      string `json:"ledger_error"`
				Discrepancies    []any  `json:"discrepancies"`
			}
			if err := newAPIClient().do(cmd.Context(), http.MethodGet, "/api/v1/admin/reconciliation", nil, &report); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wallets reconciled: %d/%d\n", report.ReconciledUsers, report.TotalUsers)
			fmt.Fprintf(out, "Ledger consistent: %v\n", report.LedgerConsistent)
			if report.LedgerError != "" {
				fmt.Fprintf(out, "Ledger error: %s\n", report.LedgerError)
			}
			if !report.LedgerConsistent || len(report.Discrepancies) > 0 {
				return fmt.Errorf("consistency check FAILED: %d discrepancies", len(report.Discrepancies))
			}
			fmt.Fprintln(out, "Consistency check PASSED")
			return nil
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <user-id>",
		Short: "Compare one wallet with its ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result json.RawMessage
			if err := newAPIClient().do(cmd.Context(), http.MethodGet, "/api/v1/admin/reconciliation/"+args[0], nil, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Top-up invoice operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <order-id>",
		Short: "Show an invoice of the token's user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var invoice json.RawMessage
			if err := newAPIClient().do(cmd.Context(), http.MethodGet, "/api/v1/invoices/"+args[0], nil, &invoice); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), invoice)
		},
	})

	return cmd
}

func redeemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <qr-code>",
		Short: "Redeem a ticket at the venue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticket struct {
				ID    string `json:"id"`
				Event struct {
					Title string `json:"title"`
				} `json:"event"`
				AttendeeName string `json:"attendee_name"`
				SeatNumber   string `json:"seat_number"`
				Status       string `json:"status"`
			}
			body := map[string]string{"qr_code": args[0]}
			if err := newAPIClient().do(cmd.Context(), http.MethodPost, "/api/v1/venue/redeem", body, &ticket); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ADMIT %s  %s  seat %s  [%s]\n",
				truncate(ticket.AttendeeName, 24), truncate(ticket.Event.Title, 32), ticket.SeatNumber, ticket.ID)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret   string
		issuer   string
		email    string
		role     string
		validFor time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a development token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			r := domain.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}

			signed, err := auth.NewJWTManager(secret, issuer, validFor).Generate(&domain.User{
				ID:    args[0],
				Email: email,
				Role:  r,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "Token issuer")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "customer, staff or admin")
	cmd.Flags().DurationVar(&validFor, "valid-for", time.Hour, "Token lifetime")

	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", envOr("MIGRATIONS_PATH", "migrations"), "Migrations directory")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return postgres.RunMigrations(databaseURL, migrationsPath)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return postgres.RunMigrationsDown(databaseURL, migrationsPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				version, dirty, err := postgres.MigrationVersion(databaseURL, migrationsPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError mirrors the server's error body.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
