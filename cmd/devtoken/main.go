// Command devtoken signs a bearer token for AUTH_MODE=hmac so the API can be
// exercised locally without a Cognito user pool.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"portfolio-cms/internal/auth"
	"portfolio-cms/internal/config"
	"portfolio-cms/internal/logger"
)

func main() {
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, nil)))

	userID := flag.String("sub", "local-admin", "subject (user id) claim")
	username := flag.String("username", "admin", "username claim")
	groups := flag.String("groups", "admin", "comma separated cognito:groups")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.AuthMode != config.AuthModeHMAC {
		slog.Error("devtoken only works with AUTH_MODE=hmac", "auth_mode", cfg.AuthMode)
		os.Exit(1)
	}

	verifier, err := auth.NewHMACVerifier(cfg.AuthHMACSecret, auth.LocalIssuer)
	if err != nil {
		slog.Error("failed to build verifier", "error", err)
		os.Exit(1)
	}

	token, err := verifier.Issue(*userID, *username, strings.Split(*groups, ","), *ttl)
	if err != nil {
		slog.Error("failed to sign token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
