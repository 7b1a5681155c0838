package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

const (
	identityToolkitURL   = "https://identitytoolkit.googleapis.com"
	signInWithCustomPath = "/v1/accounts:signInWithCustomToken"
	authEmulatorEnv      = "FIREBASE_AUTH_EMULATOR_HOST"
)

type SignInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

var (
	uid             string
	apiKey          string
	credentialsFile string
)

var rootCmd = &cobra.Command{
	Use:   "gentoken",
	Short: "Print a Firebase ID token for a user, to call SendNotification by hand",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&uid, "uid", "", "User UID for token generation")
	rootCmd.Flags().StringVar(&apiKey, "apikey", "", "Firebase Web API key for the Identity Toolkit REST API")
	rootCmd.Flags().StringVar(&credentialsFile, "credentials", "./service_account_key.json", "Service account key file")
	_ = rootCmd.MarkFlagRequired("uid")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	absPath, err := filepath.Abs(credentialsFile)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(absPath))
	if err != nil {
		return fmt.Errorf("error initializing app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("error getting Auth client: %w", err)
	}

	customToken, err := client.CustomToken(ctx, uid)
	if err != nil {
		return fmt.Errorf("error creating custom token: %w", err)
	}

	resp, err := exchangeCustomToken(ctx, http.DefaultClient, signInURL(os.Getenv(authEmulatorEnv), apiKey), customToken)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.IDToken)
	return nil
}

// signInURL points at the auth emulator when it is configured.
func signInURL(emulatorHost, key string) string {
	base := identityToolkitURL
	if emulatorHost != "" {
		base = "http://" + emulatorHost + "/identitytoolkit.googleapis.com"
	}
	return base + signInWithCustomPath + "?key=" + key
}

func exchangeCustomToken(ctx context.Context, httpClient *http.Client, url, customToken string) (*SignInResponse, error) {
	payload := map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making POST request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-OK HTTP status: %d, response: %s", resp.StatusCode, string(body))
	}

	var signInResp SignInResponse
	if err := json.Unmarshal(body, &signInResp); err != nil {
		return nil, fmt.Errorf("error unmarshalling response: %w", err)
	}
	if signInResp.IDToken == "" {
		return nil, fmt.Errorf("response has no idToken")
	}
	return &signInResp, nil
}
