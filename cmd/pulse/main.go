package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rzbill/pulse/internal/auth"
	serverrun "github.com/rzbill/pulse/internal/cmd/server"
	cfgpkg "github.com/rzbill/pulse/internal/config"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	level := os.Getenv("PULSE_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Pulse runtime CLI",
		Long:  "Pulse is a single-binary survey-response intake server with live SSE notifications. This CLI manages the server and basic operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start pulse server (HTTP + SSE)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			configPath, _ := cmd.Flags().GetString("config")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			subBuf, _ := cmd.Flags().GetInt("sub-buf")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			if subBuf > 0 {
				cfg.SubscriberBuffer = subBuf
			}
			if logLevel != "" {
				_ = os.Setenv("PULSE_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("PULSE_LOG_FORMAT", logFormat)
			}
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("config", os.Getenv("PULSE_CONFIG"), "Path to a JSON or YAML config file")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms (default 5)")
	serverStartCmd.Flags().String("log-level", os.Getenv("PULSE_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("PULSE_LOG_FORMAT"), "Log format: text|json (default text)")
	serverStartCmd.Flags().Int("sub-buf", func() int {
		v, _ := strconv.Atoi(os.Getenv("PULSE_SUB_BUF"))
		return v
	}(), "Frame buffer size per subscriber (0 uses the config default)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// token mint
	tokenCmd := &cobra.Command{Use: "token", Short: "Token operations"}
	tokenMintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a tenant-bound bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantName, _ := cmd.Flags().GetString("tenant")
			secret, _ := cmd.Flags().GetString("secret")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if tenantName == "" {
				return fmt.Errorf("--tenant is required")
			}
			if secret == "" {
				secret = os.Getenv("PULSE_AUTH_SECRET")
			}
			claims := auth.Claims{Tenant: tenantName}
			if ttl > 0 {
				claims.ExpMs = time.Now().Add(ttl).UnixMilli()
			}
			tok, err := auth.Mint(secret, claims)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	tokenMintCmd.Flags().String("tenant", "", "Tenant to bind the token to")
	tokenMintCmd.Flags().String("secret", "", "HMAC secret (default PULSE_AUTH_SECRET)")
	tokenMintCmd.Flags().Duration("ttl", 0, "Token lifetime (0 means no expiry)")
	tokenCmd.AddCommand(tokenMintCmd)
	rootCmd.AddCommand(tokenCmd)

	// response submit/list client helpers
	responseCmd := &cobra.Command{Use: "response", Short: "Response operations against a running server"}
	responseSubmitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a response document",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantName, _ := cmd.Flags().GetString("tenant")
			survey, _ := cmd.Flags().GetString("survey")
			answersJSON, _ := cmd.Flags().GetString("answers")
			token, _ := cmd.Flags().GetString("token")

			var answers map[string]interface{}
			if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil {
				return fmt.Errorf("invalid --answers JSON: %w", err)
			}
			body, _ := json.Marshal(map[string]interface{}{
				"tenant":   tenantName,
				"surveyId": survey,
				"answers":  answers,
			})
			req, err := http.NewRequest(http.MethodPost, apiURL()+"/v1/responses", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			fmt.Println("status:", resp.Status)
			fmt.Println(string(b))
			return nil
		},
	}
	responseSubmitCmd.Flags().String("tenant", "", "Tenant name")
	responseSubmitCmd.Flags().String("survey", "", "Survey id")
	responseSubmitCmd.Flags().String("answers", "{}", "Answers document as JSON")
	responseSubmitCmd.Flags().String("token", os.Getenv("PULSE_TOKEN"), "Bearer token (default PULSE_TOKEN)")
	responseCmd.AddCommand(responseSubmitCmd)

	responseListCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored responses for a tenant and survey",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantName, _ := cmd.Flags().GetString("tenant")
			survey, _ := cmd.Flags().GetString("survey")
			limit, _ := cmd.Flags().GetInt("limit")
			reverse, _ := cmd.Flags().GetBool("reverse")

			q := url.Values{}
			q.Set("tenant", tenantName)
			q.Set("survey", survey)
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if reverse {
				q.Set("reverse", "true")
			}
			resp, err := http.Get(apiURL() + "/v1/responses?" + q.Encode())
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			fmt.Println(string(b))
			return nil
		},
	}
	responseListCmd.Flags().String("tenant", "", "Tenant name")
	responseListCmd.Flags().String("survey", "", "Survey id")
	responseListCmd.Flags().Int("limit", 0, "Max documents to return")
	responseListCmd.Flags().Bool("reverse", false, "Newest first")
	responseCmd.AddCommand(responseListCmd)
	rootCmd.AddCommand(responseCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("PULSE_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
