package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/wolfeidau/tenancy/cmd/cli/internal/credentials"
	"github.com/wolfeidau/tenancy/internal/client"
)

// LoginCmd signs in with email and password and stores a bearer token.
type LoginCmd struct {
	Server         string        `help:"Server URL" default:"http://localhost:8080" env:"TENANCY_SERVER"`
	Email          string        `help:"Account email" required:"" env:"TENANCY_EMAIL"`
	Password       string        `help:"Account password, read from stdin when empty" env:"TENANCY_PASSWORD"`
	Name           string        `help:"Name to store the credential under, defaults to the server host"`
	SetDefault     bool          `help:"Make this the default credential" default:"false"`
	CredentialsDir string        `help:"Custom credentials directory (default: ~/.tenancy)" env:"TENANCY_CREDENTIALS_DIR"`
	Timeout        time.Duration `help:"Request timeout" default:"30s"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	password, err := readPassword(globals, c.Password)
	if err != nil {
		return err
	}

	clients, err := client.NewClients(client.Config{ServerURL: c.Server, Timeout: c.Timeout, Debug: globals.Debug})
	if err != nil {
		return err
	}

	result, err := clients.Auth.SignIn(ctx, c.Email, password)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	cred, err := storeLogin(c.CredentialsDir, c.Name, c.Server, c.SetDefault, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(globals.out(), "Signed in as %s. Credential %q expires %s.\n", result.User.Email, cred.Name, formatTime(cred.ExpiresAt))
	return nil
}

// SignUpCmd registers a new account, which also creates a personal
// organization, and stores a bearer token for it.
type SignUpCmd struct {
	Server         string        `help:"Server URL" default:"http://localhost:8080" env:"TENANCY_SERVER"`
	DisplayName    string        `help:"Your name" name:"display-name" required:""`
	Email          string        `help:"Account email" required:"" env:"TENANCY_EMAIL"`
	Password       string        `help:"Account password, read from stdin when empty" env:"TENANCY_PASSWORD"`
	Name           string        `help:"Name to store the credential under, defaults to the server host"`
	SetDefault     bool          `help:"Make this the default credential" default:"false"`
	CredentialsDir string        `help:"Custom credentials directory (default: ~/.tenancy)" env:"TENANCY_CREDENTIALS_DIR"`
	Timeout        time.Duration `help:"Request timeout" default:"30s"`
}

func (c *SignUpCmd) Run(ctx context.Context, globals *Globals) error {
	password, err := readPassword(globals, c.Password)
	if err != nil {
		return err
	}

	clients, err := client.NewClients(client.Config{ServerURL: c.Server, Timeout: c.Timeout, Debug: globals.Debug})
	if err != nil {
		return err
	}

	result, err := clients.Auth.SignUp(ctx, c.DisplayName, c.Email, password)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			for _, field := range slices.Sorted(maps.Keys(apiErr.Fields)) {
				fmt.Fprintf(globals.out(), "  %s: %s\n", field, apiErr.Fields[field])
			}
		}
		return fmt.Errorf("sign up failed: %w", err)
	}

	cred, err := storeLogin(c.CredentialsDir, c.Name, c.Server, c.SetDefault, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(globals.out(), "Account created for %s. Credential %q stored.\n", result.User.Email, cred.Name)
	return nil
}

// LogoutCmd forgets a stored credential. The token stays valid on the
// server until it expires.
type LogoutCmd struct {
	Name           string `arg:"" optional:"" help:"Credential name (default credential when empty)"`
	CredentialsDir string `help:"Custom credentials directory (default: ~/.tenancy)" env:"TENANCY_CREDENTIALS_DIR"`
}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	cred, err := store.Resolve(c.Name)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	if err := store.Delete(cred.Name); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	fmt.Fprintf(globals.out(), "Credential %q removed.\n", cred.Name)
	return nil
}

func storeLogin(dir, name, server string, setDefault bool, result *client.Login) (*credentials.Credential, error) {
	store, err := credentials.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if name == "" {
		name = credentialName(server)
	}

	cred, err := store.Save(credentials.Credential{
		Name:      name,
		Server:    strings.TrimRight(server, "/"),
		UserID:    result.User.ID,
		Email:     result.User.Email,
		Token:     result.Token.Token,
		ExpiresAt: result.Token.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	if setDefault {
		if err := store.SetDefault(cred.Name); err != nil {
			return nil, fmt.Errorf("failed to set default: %w", err)
		}
	}

	return cred, nil
}

// credentialName derives a credential name from the server host.
func credentialName(server string) string {
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "default"
	}
	return u.Host
}

func readPassword(globals *Globals, password string) (string, error) {
	if password != "" {
		return password, nil
	}

	fmt.Fprint(globals.out(), "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password = strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
