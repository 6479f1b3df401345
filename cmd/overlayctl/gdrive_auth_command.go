package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"textoverlay/internal/storage"
	"textoverlay/internal/util"
)

func newGDriveAuthCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "gdrive-auth",
		Short: "Obtain a Google Drive refresh token for the gdrive storage provider",
		Long: "gdrive-auth runs the OAuth consent flow against a local callback and prints\n" +
			"the refresh token to put in GDRIVE_REFRESH_TOKEN. It reads GDRIVE_CLIENT_ID\n" +
			"and GDRIVE_CLIENT_SECRET.",
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID := util.Env("GDRIVE_CLIENT_ID", "")
			clientSecret := util.Env("GDRIVE_CLIENT_SECRET", "")
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("GDRIVE_CLIENT_ID and GDRIVE_CLIENT_SECRET are required")
			}
			tok, err := runConsentFlow(cmd, storage.DriveOAuthConfig(clientID, clientSecret), timeout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strings.TrimSpace(tok.RefreshToken) == "" {
				fmt.Fprintln(out, "No refresh token was returned.")
				fmt.Fprintln(out, "Revoke the app's previous access at https://myaccount.google.com/permissions and run this again.")
				return fmt.Errorf("missing refresh token")
			}
			fmt.Fprintln(out, "GDRIVE_REFRESH_TOKEN="+tok.RefreshToken)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "How long to wait for the browser callback")
	return cmd
}

// runConsentFlow serves the OAuth callback on a free loopback port and
// exchanges the returned code. The offline access type with forced consent
// is what makes Google issue a refresh token.
func runConsentFlow(cmd *cobra.Command, conf *oauth2.Config, timeout time.Duration) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}
	defer ln.Close()

	conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", ln.Addr().(*net.TCPAddr).Port)
	state := randomState()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code, err := callbackCode(r, state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			select {
			case errCh <- err:
			default:
			}
			return
		}
		fmt.Fprintln(w, "Authorized. You can close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL in your browser:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "Waiting for authorization on", conf.RedirectURL)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timed out waiting for authorization")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func callbackCode(r *http.Request, state string) (string, error) {
	q := r.URL.Query()
	if q.Get("state") != state {
		return "", fmt.Errorf("invalid state")
	}
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("auth error: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("missing code")
	}
	return code, nil
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
