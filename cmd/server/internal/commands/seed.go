package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/login"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// SeedCmd loads users, organizations and projects from a YAML file. Running
// it twice with the same file is harmless.
type SeedCmd struct {
	File  string     `help:"seed file" default:"seed.yaml" type:"existingfile"`
	Store StoreFlags `embed:""`
}

type seedFile struct {
	Users         []seedUser         `yaml:"users"`
	Organizations []seedOrganization `yaml:"organizations"`
}

type seedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	// Personal provisions the user's personal organization, default true.
	Personal *bool `yaml:"personal"`
}

type seedOrganization struct {
	Name     string        `yaml:"name"`
	Owner    string        `yaml:"owner"` // owner email
	Members  []seedMember  `yaml:"members"`
	Projects []seedProject `yaml:"projects"`
}

type seedMember struct {
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type seedProject struct {
	Name        string  `yaml:"name"`
	Slug        *string `yaml:"slug"`
	Description *string `yaml:"description"`
}

type seedReport struct {
	UsersCreated         int
	OrganizationsCreated int
	MembersAdded         int
	ProjectsCreated      int
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	log, err := globals.setupLogger()
	if err != nil {
		return err
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	seed, err := parseSeed(f)
	if err != nil {
		return err
	}

	stores, err := c.Store.open(ctx)
	if err != nil {
		return err
	}
	defer stores.close()

	report, err := applySeed(ctx, stores.users, engine.New(stores.store), seed)
	if err != nil {
		return err
	}

	log.Info().
		Int("users", report.UsersCreated).
		Int("organizations", report.OrganizationsCreated).
		Int("members", report.MembersAdded).
		Int("projects", report.ProjectsCreated).
		Str("file", c.File).
		Msg("Seed applied")
	return nil
}

func parseSeed(r io.Reader) (*seedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed seedFile
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

func applySeed(ctx context.Context, users store.UserStore, eng *engine.Engine, seed *seedFile) (*seedReport, error) {
	report := &seedReport{}

	for _, su := range seed.Users {
		created, err := seedUserAccount(ctx, users, eng, su)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", su.Email, err)
		}
		if created {
			report.UsersCreated++
		}
	}

	for _, so := range seed.Organizations {
		if err := seedOrg(ctx, users, eng, so, report); err != nil {
			return nil, fmt.Errorf("organization %q: %w", so.Name, err)
		}
	}

	return report, nil
}

func seedUserAccount(ctx context.Context, users store.UserStore, eng *engine.Engine, su seedUser) (bool, error) {
	email := models.NormalizeEmail(su.Email)
	if email == "" {
		return false, errors.New("email is required")
	}

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		log.Debug().Str("email", email).Msg("Seed user exists, skipping")
		return false, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return false, err
	}

	var hash string
	if su.Password != "" {
		if hash, err = login.HashPassword(su.Password); err != nil {
			return false, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:       id.String(),
		Name:         su.Name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		return false, err
	}

	if su.Personal == nil || *su.Personal {
		if _, _, err := eng.ProvisionPersonalOrganization(ctx, user); err != nil {
			return false, fmt.Errorf("failed to provision personal organization: %w", err)
		}
	}

	return true, nil
}

func seedOrg(ctx context.Context, users store.UserStore, eng *engine.Engine, so seedOrganization, report *seedReport) error {
	owner, err := users.GetByEmail(ctx, models.NormalizeEmail(so.Owner))
	if err != nil {
		return fmt.Errorf("owner %s: %w", so.Owner, err)
	}

	orgID, err := findOrCreateOrg(ctx, eng, owner.UserID, so.Name, report)
	if err != nil {
		return err
	}

	for _, sm := range so.Members {
		role, err := models.ParseRole(sm.Role)
		if err != nil {
			return fmt.Errorf("member %s: %w", sm.Email, err)
		}
		_, err = eng.AddMember(ctx, owner.UserID, orgID, engine.MemberRef{Email: sm.Email}, role)
		switch {
		case err == nil:
			report.MembersAdded++
		case errors.Is(err, engine.ErrAlreadyMember):
		default:
			return fmt.Errorf("member %s: %w", sm.Email, err)
		}
	}

	for _, sp := range so.Projects {
		_, err := eng.CreateProject(ctx, owner.UserID, orgID, engine.CreateProjectInput{
			Name:        sp.Name,
			Slug:        sp.Slug,
			Description: sp.Description,
		})
		switch {
		case err == nil:
			report.ProjectsCreated++
		case errors.Is(err, engine.ErrDuplicateSlug):
		default:
			return fmt.Errorf("project %q: %w", sp.Name, err)
		}
	}

	return nil
}

// findOrCreateOrg matches an existing organization of the owner by name.
func findOrCreateOrg(ctx context.Context, eng *engine.Engine, ownerID, name string, report *seedReport) (uuid.UUID, error) {
	orgs, err := eng.ListOrganizationsForUser(ctx, ownerID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, org := range orgs {
		if org.Name == name && org.Role == models.RoleOwner {
			return org.OrgID, nil
		}
	}

	org, err := eng.CreateOrganization(ctx, ownerID, name)
	if err != nil {
		return uuid.Nil, err
	}
	report.OrganizationsCreated++
	return org.OrgID, nil
}
