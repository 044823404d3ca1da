package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/wolfeidau/tenancy/cmd/cli/internal/credentials"
	"github.com/wolfeidau/tenancy/internal/client"
)

type Globals struct {
	Debug   bool
	Version string

	// Out receives command output, stdout when nil.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// APIFlags select the server and credential for commands calling the API.
type APIFlags struct {
	Server         string        `help:"Server URL, defaults to the server the credential was issued by" env:"TENANCY_SERVER"`
	Credential     string        `help:"Credential name (default credential when empty)" env:"TENANCY_CREDENTIAL"`
	CredentialsDir string        `help:"Custom credentials directory (default: ~/.tenancy)" env:"TENANCY_CREDENTIALS_DIR"`
	Timeout        time.Duration `help:"Request timeout" default:"30s"`
	JSON           bool          `help:"Print results as JSON" default:"false"`
}

// clients builds authenticated RPC clients from the stored credential.
func (f *APIFlags) clients(globals *Globals) (*client.Clients, error) {
	store, err := credentials.NewStore(f.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	authInterceptor, err := credentials.NewAuthInterceptor(store, f.Credential, f.Server)
	if err != nil {
		return nil, err
	}

	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create interceptor: %w", err)
	}

	server := f.Server
	if server == "" {
		server = authInterceptor.Server()
	}

	return client.NewClients(client.Config{
		ServerURL: server,
		Timeout:   f.Timeout,
		Debug:     globals.Debug,
	}, connect.WithInterceptors(otelInterceptor, authInterceptor))
}

// render writes v as indented JSON when asJSON is set, otherwise calls table
// with a tabwriter.
func render(globals *Globals, asJSON bool, v any, table func(w io.Writer)) error {
	if asJSON {
		enc := json.NewEncoder(globals.out())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
