package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wolfeidau/tenancy/cmd/cli/internal/credentials"
)

// CredentialsCmd manages tokens saved by login.
type CredentialsCmd struct {
	List       CredentialsListCmd       `cmd:"" help:"List stored credentials"`
	Show       CredentialsShowCmd       `cmd:"" help:"Show a credential without its token"`
	SetDefault CredentialsSetDefaultCmd `cmd:"" name:"set-default" help:"Choose the credential used when --credential is omitted"`
	Delete     CredentialsDeleteCmd     `cmd:"" help:"Forget a credential locally without signing out"`
}

// CredentialsDirFlag is shared by the commands reading the local store.
type CredentialsDirFlag struct {
	CredentialsDir string `help:"Custom credentials directory (default: ~/.tenancy)" env:"TENANCY_CREDENTIALS_DIR"`
}

func (f CredentialsDirFlag) open() (*credentials.Store, error) {
	store, err := credentials.NewStore(f.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	return store, nil
}

// credentialView is the JSON shape of a stored credential.
type credentialView struct {
	Name      string    `json:"name"`
	Server    string    `json:"server"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
	Default   bool      `json:"default"`
}

func newCredentialView(cred credentials.Credential, defaultName string, now time.Time) credentialView {
	return credentialView{
		Name:      cred.Name,
		Server:    cred.Server,
		UserID:    cred.UserID,
		Email:     cred.Email,
		ExpiresAt: cred.ExpiresAt,
		Expired:   cred.Expired(now),
		Default:   cred.Name == defaultName,
	}
}

func notFound(err error, name string) error {
	if errors.Is(err, credentials.ErrCredentialNotFound) {
		return fmt.Errorf("credential %q not found, run 'tenancy credentials list' to see what is stored", name)
	}
	return err
}

type CredentialsListCmd struct {
	CredentialsDirFlag `embed:""`
	JSON               bool `help:"Print JSON instead of a table"`
}

func (c *CredentialsListCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := c.open()
	if err != nil {
		return err
	}

	creds, err := store.List()
	if err != nil {
		return err
	}
	defaultName, err := store.DefaultName()
	if err != nil {
		return err
	}

	if len(creds) == 0 && !c.JSON {
		fmt.Fprintln(globals.out(), "No credentials found. Sign in with: tenancy login --email <email>")
		return nil
	}

	now := time.Now()
	views := make([]credentialView, 0, len(creds))
	for _, cred := range creds {
		views = append(views, newCredentialView(cred, defaultName, now))
	}

	return render(globals, c.JSON, views, func(w io.Writer) {
		fmt.Fprintln(w, "\tNAME\tSERVER\tEMAIL\tEXPIRES")
		for _, v := range views {
			marker := ""
			if v.Default {
				marker = "*"
			}
			expires := formatTime(v.ExpiresAt)
			if v.Expired {
				expires = "expired"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, v.Name, v.Server, v.Email, expires)
		}
	})
}

type CredentialsShowCmd struct {
	CredentialsDirFlag `embed:""`
	Name               string `arg:"" optional:"" help:"Credential name (default credential when omitted)"`
	JSON               bool   `help:"Print JSON instead of text"`
}

func (c *CredentialsShowCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := c.open()
	if err != nil {
		return err
	}

	cred, err := store.Resolve(c.Name)
	if err != nil {
		return notFound(err, c.Name)
	}
	defaultName, err := store.DefaultName()
	if err != nil {
		return err
	}

	v := newCredentialView(*cred, defaultName, time.Now())
	return render(globals, c.JSON, v, func(w io.Writer) {
		fmt.Fprintf(w, "Name:\t%s\n", v.Name)
		fmt.Fprintf(w, "Server:\t%s\n", v.Server)
		fmt.Fprintf(w, "User:\t%s (%s)\n", v.Email, v.UserID)
		fmt.Fprintf(w, "Expires:\t%s\n", formatTime(v.ExpiresAt))
		fmt.Fprintf(w, "Expired:\t%t\n", v.Expired)
		fmt.Fprintf(w, "Default:\t%t\n", v.Default)
		fmt.Fprintf(w, "Saved:\t%s\n", formatTime(cred.UpdatedAt))
	})
}

type CredentialsSetDefaultCmd struct {
	CredentialsDirFlag `embed:""`
	Name               string `arg:"" help:"Credential name"`
}

func (c *CredentialsSetDefaultCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := c.open()
	if err != nil {
		return err
	}
	if err := store.SetDefault(c.Name); err != nil {
		return notFound(err, c.Name)
	}

	fmt.Fprintf(globals.out(), "Default credential is now %q.\n", c.Name)
	return nil
}

// CredentialsDeleteCmd drops the token locally. The server session stays
// valid until it expires; use logout to revoke it.
type CredentialsDeleteCmd struct {
	CredentialsDirFlag `embed:""`
	Name               string `arg:"" help:"Credential name"`
}

func (c *CredentialsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := c.open()
	if err != nil {
		return err
	}
	if err := store.Delete(c.Name); err != nil {
		return notFound(err, c.Name)
	}

	fmt.Fprintf(globals.out(), "Deleted credential %q.\n", c.Name)
	return nil
}
