package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/studyplan/auth"
	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/store"
	"github.com/tailored-agentic-units/studyplan/webapp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the multi-user web service",
	Long: `Serves registration, login, credential settings and chat under /api.
Chat messages are forwarded to the agent runtime at --runtime-url.

SECRET_KEY and ENCRYPTION_KEY are required; "studyplan keys" prints a fresh pair.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", webapp.DefaultAddr, "Listen address")
	f.String("database", store.DefaultConfig().Path, "SQLite database path")
	f.String("runtime-url", bridge.DefaultBaseURL, "Agent runtime base URL")
	f.Duration("send-timeout", bridge.DefaultTimeout, "Timeout of one runtime call")
	f.Bool("streaming", false, "Use the event-stream run endpoint")
	f.String("redis-addr", "", "Redis address for chat locks shared across instances")
	f.StringSlice("cors-origins", webapp.DefaultConfig().CORSOrigins, "Allowed browser origins")
	f.Duration("token-ttl", auth.DefaultTokenTTL, "Access token lifetime")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cfg.SecretKey == "" {
		return errors.New("SECRET_KEY is not set")
	}
	if cfg.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is not set")
	}

	tokens, err := auth.NewTokens(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		return err
	}
	cipher, err := auth.NewCipher(cfg.EncryptionKey, cfg.EncryptionFallbackKeys...)
	if err != nil {
		return fmt.Errorf("invalid encryption key: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	observer, err := serverObserver()
	if err != nil {
		return err
	}

	rt := bridge.New(bridge.Config{
		BaseURL:   cfg.RuntimeURL,
		AppName:   cfg.AppName,
		Timeout:   config.Duration(cfg.SendTimeout),
		Streaming: cfg.Streaming,
	}, bridge.WithObserver(observer))

	webCfg := webapp.Config{Addr: cfg.Addr, CORSOrigins: cfg.CORSOrigins}
	opts := []webapp.Option{webapp.WithObserver(observer)}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		full := webapp.DefaultConfig()
		full.Merge(&webCfg)
		opts = append(opts, webapp.WithLocker(webapp.NewRedisLocker(client, "studyplan:", full.LockTTL.Std())))
	}

	srv := webapp.New(webCfg, st, tokens, cipher, rt, opts...)
	return listen(ctx, "web", cfg.Addr, srv.Handler())
}
