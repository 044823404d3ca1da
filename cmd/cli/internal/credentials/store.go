package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	fileName    = "credentials.json"
	fileVersion = 1
)

var (
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrNoDefaultCredential = errors.New("no default credential set")
	ErrCredentialExpired   = errors.New("credential expired")
)

// Credential is a bearer token obtained by signing in to a server.
type Credential struct {
	Name      string    `json:"name"`
	Server    string    `json:"server"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the token is no longer usable at now.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// File is the on-disk layout of the credentials file.
type File struct {
	Version     int                   `json:"version"`
	Default     string                `json:"default,omitempty"`
	Credentials map[string]Credential `json:"credentials"`
}

func (f *File) lookup(name string) (*Credential, error) {
	cred, ok := f.Credentials[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, name)
	}
	return &cred, nil
}

// Store keeps named credentials in a single owner-only JSON file. Every call
// reads the file afresh, so several CLI processes see each other's writes.
type Store struct {
	path string
}

// NewStore opens the store in dir, defaulting to ~/.tenancy.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".tenancy")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	s := &Store{path: filepath.Join(dir, fileName)}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(&File{Version: fileVersion, Credentials: map[string]Credential{}}); err != nil {
			return nil, err
		}
	}

	log.Debug().Str("path", s.path).Msg("Credential store opened")
	return s, nil
}

// Save stores cred under its name, replacing any previous token. The first
// credential saved becomes the default.
func (s *Store) Save(cred Credential) (*Credential, error) {
	if strings.TrimSpace(cred.Name) == "" {
		return nil, errors.New("credential name is required")
	}

	err := s.update(func(f *File) error {
		now := time.Now().UTC()
		cred.CreatedAt = now
		if prev, ok := f.Credentials[cred.Name]; ok {
			cred.CreatedAt = prev.CreatedAt
		}
		cred.UpdatedAt = now

		f.Credentials[cred.Name] = cred
		if f.Default == "" {
			f.Default = cred.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("name", cred.Name).Str("server", cred.Server).Time("expires_at", cred.ExpiresAt).Msg("Credential saved")
	return &cred, nil
}

// Get returns the named credential.
func (s *Store) Get(name string) (*Credential, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.lookup(name)
}

// GetDefault returns the default credential or ErrNoDefaultCredential.
func (s *Store) GetDefault() (*Credential, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	if f.Default == "" {
		return nil, ErrNoDefaultCredential
	}
	return f.lookup(f.Default)
}

// Resolve returns the named credential, or the default when name is empty.
func (s *Store) Resolve(name string) (*Credential, error) {
	if name == "" {
		return s.GetDefault()
	}
	return s.Get(name)
}

// List returns all stored credentials ordered by name.
func (s *Store) List() ([]Credential, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}

	creds := make([]Credential, 0, len(f.Credentials))
	for _, cred := range f.Credentials {
		creds = append(creds, cred)
	}
	slices.SortFunc(creds, func(a, b Credential) int { return strings.Compare(a.Name, b.Name) })
	return creds, nil
}

// Delete removes a credential, clearing the default if it pointed there.
func (s *Store) Delete(name string) error {
	err := s.update(func(f *File) error {
		if _, err := f.lookup(name); err != nil {
			return err
		}
		delete(f.Credentials, name)
		if f.Default == name {
			f.Default = ""
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().Str("name", name).Msg("Credential deleted")
	return nil
}

// SetDefault makes name the credential used when none is selected.
func (s *Store) SetDefault(name string) error {
	return s.update(func(f *File) error {
		if _, err := f.lookup(name); err != nil {
			return err
		}
		f.Default = name
		return nil
	})
}

// DefaultName returns the name of the default credential, empty when unset.
func (s *Store) DefaultName() (string, error) {
	f, err := s.read()
	if err != nil {
		return "", err
	}
	return f.Default, nil
}

func (s *Store) update(fn func(*File) error) error {
	f, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.write(f)
}

func (s *Store) read() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	if f.Version > fileVersion {
		return nil, fmt.Errorf("%s has version %d, this build understands %d", s.path, f.Version, fileVersion)
	}
	if f.Credentials == nil {
		f.Credentials = map[string]Credential{}
	}
	return &f, nil
}

// write replaces the file via rename so a crash never leaves half a token on disk.
func (s *Store) write(f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), fileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
