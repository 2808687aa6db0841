// Command globus-login performs a native-app login against Globus Auth and
// prints the acquired tokens grouped by resource server.
//
// With a local browser available the authorization code is captured by a
// loopback redirect server; otherwise the user pastes the code (or the full
// redirect URL) back into the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/internal/browser"
	"github.com/globus/globus-sdk-go/internal/callback"
	"github.com/globus/globus-sdk-go/internal/logging"
	"github.com/globus/globus-sdk-go/sdk/config"
	"github.com/globus/globus-sdk-go/sdk/services/auth"
)

const loginTimeout = 5 * time.Minute

func main() {
	var (
		configPath string
		clientID   string
		port       int
		noBrowser  bool
		refresh    bool
		scopesFlag string
		debug      bool
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&clientID, "client-id", os.Getenv("GLOBUS_CLIENT_ID"), "native app client ID")
	flag.IntVar(&port, "port", 8199, "local port for the OAuth redirect")
	flag.BoolVar(&noBrowser, "no-browser", false, "print the URL instead of opening a browser")
	flag.BoolVar(&refresh, "refresh", false, "also request refresh tokens")
	flag.StringVar(&scopesFlag, "scopes", "", "space-separated scopes to request")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	// Optional: pick up GLOBUS_CLIENT_ID and friends from a local .env.
	_ = godotenv.Load()
	if clientID == "" {
		clientID = os.Getenv("GLOBUS_CLIENT_ID")
	}
	logging.Setup(debug, "")

	if clientID == "" {
		log.Fatal("no client ID; pass -client-id or set GLOBUS_CLIENT_ID")
	}

	if err := run(clientID, configPath, port, noBrowser, refresh, scopesFlag); err != nil {
		log.Fatalf("login failed: %v", err)
	}
}

func run(clientID, configPath string, port int, noBrowser, refresh bool, scopesFlag string) error {
	cfg, err := config.LoadConfigOptional(configPath, configPath == "")
	if err != nil {
		return err
	}

	authClient, err := auth.NewNativeAppAuthClient(clientID, &auth.Options{Config: cfg})
	if err != nil {
		return err
	}

	flowOpts := &auth.NativeAppFlowOptions{RefreshTokens: refresh}
	if scopesFlag != "" {
		flowOpts.RequestedScopes = strings.Fields(scopesFlag)
	}

	useLocal := !noBrowser && browser.IsAvailable()
	var server *callback.Server
	if useLocal {
		server = callback.NewServer(port)
		if err := server.Start(); err != nil {
			log.WithField("error", err).Warn("local redirect server unavailable, falling back to manual copy")
			server = nil
			useLocal = false
		} else {
			flowOpts.RedirectURI = server.RedirectURI()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Stop(ctx)
			}()
		}
	}

	if _, err := authClient.OAuth2StartFlow(flowOpts); err != nil {
		return err
	}
	authorizeURL, err := authClient.OAuth2GetAuthorizeURL(nil)
	if err != nil {
		return err
	}

	var code string
	if useLocal {
		fmt.Println("Opening browser for Globus login...")
		if err := browser.OpenURL(authorizeURL); err != nil {
			log.WithField("error", err).Warn("could not open browser")
			fmt.Printf("Visit this URL to log in:\n\n  %s\n\n", authorizeURL)
		}
		result, err := server.WaitForResult(loginTimeout)
		if err != nil {
			return err
		}
		if result.Error != "" {
			return fmt.Errorf("authorization denied: %s (%s)", result.Error, result.ErrorDescription)
		}
		code = result.Code
	} else {
		fmt.Printf("Visit this URL to log in:\n\n  %s\n\n", authorizeURL)
		fmt.Print("Enter the resulting code (or paste the full redirect URL): ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		result, err := callback.ParseRedirect(strings.TrimSpace(line))
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("no code entered")
		}
		if result.Error != "" {
			return fmt.Errorf("authorization denied: %s (%s)", result.Error, result.ErrorDescription)
		}
		code = result.Code
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	tokens, err := authClient.OAuth2ExchangeCodeForTokens(ctx, code)
	if err != nil {
		return err
	}

	printTokens(tokens)
	return nil
}

func printTokens(tokens *auth.TokenResponse) {
	byServer := tokens.ByResourceServer()
	servers := make([]string, 0, len(byServer))
	for server := range byServer {
		servers = append(servers, server)
	}
	sort.Strings(servers)

	fmt.Println("Login successful. Tokens:")
	for _, server := range servers {
		info := byServer[server]
		fmt.Printf("\n  resource server: %s\n", server)
		fmt.Printf("    scope:         %s\n", info.Scope)
		fmt.Printf("    access token:  %s\n", info.AccessToken)
		if info.RefreshToken != "" {
			fmt.Printf("    refresh token: %s\n", info.RefreshToken)
		}
		fmt.Printf("    expires at:    %s\n", time.Unix(info.ExpiresAt, 0).Format(time.RFC3339))
	}
}
