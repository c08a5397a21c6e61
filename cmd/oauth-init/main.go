// Command oauth-init walks through the OAuth consent flow once and
// saves the resulting token, for setups that cannot use a service
// account.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"casaspese/internal/cli"
	"casaspese/internal/config"
	applog "casaspese/internal/log"
)

// consentTimeout bounds how long we wait for the browser round trip.
const consentTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	bootLogger := applog.Setup("text", "info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := applog.Setup(cfg.LogFormat, cfg.LogLevel).WithComponent("oauth-init")

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("OAuth setup failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	oc, err := consentConfig(cfg)
	if err != nil {
		return err
	}

	state, err := randomState()
	if err != nil {
		return err
	}

	code, err := awaitConsent(ctx, oc, cfg.OAuthRedirectPort, state)
	if err != nil {
		return err
	}

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if err := saveToken(cfg.OAuthTokenFile, tok); err != nil {
		return err
	}

	logger.Info("Token saved", "path", cfg.OAuthTokenFile)
	return nil
}

// consentConfig builds the OAuth config from the configured client
// credentials, with the local callback as redirect target. The OAuth
// client must list that redirect URI as authorized.
func consentConfig(cfg *config.Config) (*oauth2.Config, error) {
	var raw []byte
	switch {
	case cfg.OAuthClientJSON != "":
		raw = []byte(cfg.OAuthClientJSON)
	case cfg.OAuthClientFile != "":
		var err error
		raw, err = os.ReadFile(cfg.OAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	default:
		return nil, errors.New("missing OAuth client credentials (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}

	oc, err := google.ConfigFromJSON(raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse client credentials: %w", err)
	}
	oc.RedirectURL = "http://localhost:" + cfg.OAuthRedirectPort + "/callback"
	return oc, nil
}

// awaitConsent prints the consent URL, serves the local callback and
// returns the authorization code. A state mismatch rejects the
// callback.
func awaitConsent(ctx context.Context, oc *oauth2.Config, port, state string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
