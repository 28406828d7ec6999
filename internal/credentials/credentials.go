package credentials

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CloudPlatformScope is requested for sign-blob and user lookup calls.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// HTTPClient returns an HTTP client carrying cloud-platform credentials read from
// credentialsFile, or the application default credentials when it is empty.
func HTTPClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	if credentialsFile == "" {
		client, err := google.DefaultClient(ctx, CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("loading application default credentials: %w", err)
		}
		return client, nil
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

// EmulatorClient returns a client for the auth emulator, which accepts the fixed
// bearer token "owner" in place of real credentials.
func EmulatorClient() *http.Client {
	return oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "owner",
		TokenType:   "Bearer",
	}))
}
