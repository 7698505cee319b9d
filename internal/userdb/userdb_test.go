package userdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUsers(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "users.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndAuthenticate(t *testing.T) {
	path := writeUsers(t, "# comment\nalice secret 1\n\nbob hunter2 10\n")
	db, err := Load(path)
	require.NoError(t, err)

	assert.True(t, db.Authenticate("alice", "secret", 1))
	assert.False(t, db.Authenticate("alice", "wrong", 1))
	assert.False(t, db.Authenticate("alice", "secret", 10))
	assert.True(t, db.Authenticate("bob", "hunter2", 1))
	assert.False(t, db.Authenticate("nobody", "x", 1))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestLoadMalformedLine(t *testing.T) {
	path := writeUsers(t, "alice secret notanumber\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadWrongFieldCount(t *testing.T) {
	path := writeUsers(t, "alice secret\n")
	_, err := Load(path)
	assert.Error(t, err)
}
