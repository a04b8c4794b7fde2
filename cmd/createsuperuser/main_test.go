package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withStoreEnv(t *testing.T) {
	t.Helper()
	t.Setenv("IDENTITY_SIGNING_KEY", "")
	t.Setenv("IDENTITY_DB_DRIVER", "sqlite")
	t.Setenv("IDENTITY_DB_DSN", ":memory:")
	t.Setenv("IDENTITY_LOG_LEVEL", "error")
}

func TestRunWithoutSigningKey(t *testing.T) {
	withStoreEnv(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-email", "Root@Example.com",
		"-password", "s3cret-pass",
	}, os.Stdin, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Superuser root@example.com created.")
}

func TestRunPromptsForMissingValues(t *testing.T) {
	withStoreEnv(t)

	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte("root@example.com\ns3cret-pass\n"), 0o600))
	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), nil, in, &out))
	assert.Contains(t, out.String(), "Email: ")
	assert.Contains(t, out.String(), "Password: ")
	assert.Contains(t, out.String(), "Superuser root@example.com created.")
}

func TestRunPromoteUnknownUser(t *testing.T) {
	withStoreEnv(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-email", "nobody@example.com",
		"-promote",
	}, os.Stdin, &out)
	assert.Error(t, err)
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	withStoreEnv(t)
	t.Setenv("IDENTITY_DB_DRIVER", "oracle")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-email", "root@example.com", "-password", "x"}, os.Stdin, &out)
	assert.Error(t, err)
}
