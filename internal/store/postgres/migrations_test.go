package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"10_add_index.sql":     {Data: []byte("CREATE INDEX x ON t (a);")},
		"2_projects.sql":       {Data: []byte("CREATE TABLE p ();")},
		"1_initial_schema.sql": {Data: []byte("CREATE TABLE t ();")},
		"README.md":            {Data: []byte("notes")},
		"initial.sql":          {Data: []byte("SELECT 1;")},
		"v3_bad_version.sql":   {Data: []byte("SELECT 1;")},
		"archive/4_old.sql":    {Data: []byte("SELECT 1;")},
	}

	migrations, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	require.Equal(t, 1, migrations[0].Version)
	require.Equal(t, "1_initial_schema.sql", migrations[0].Name)
	require.Equal(t, "CREATE TABLE t ();", migrations[0].SQL)
	require.Len(t, migrations[0].Checksum, 64)

	require.Equal(t, 2, migrations[1].Version)
	require.Equal(t, 10, migrations[2].Version)
	require.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestLoadMigrations_duplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"1_initial_schema.sql": {Data: []byte("CREATE TABLE t ();")},
		"01_again.sql":         {Data: []byte("CREATE TABLE u ();")},
	}

	_, err := loadMigrations(fsys)
	require.ErrorContains(t, err, "share version 1")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := embeddedMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, 1, migrations[0].Version)
	require.Contains(t, migrations[0].SQL, "organizations")
}
