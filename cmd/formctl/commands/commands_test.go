package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcraft/internal/core/auth"
	"formcraft/pkg/utils"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestValidate(t *testing.T) {
	ok := writeFile(t, `{"title":"Contact","fields":[{"id":"f1","type":"text","label":"Name","required":true}]}`)
	out, err := run(t, "validate", ok)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (1 fields)")

	bad := writeFile(t, `{"title":"","fields":[{"id":"s","type":"select","label":"Size"}]}`)
	out, err = run(t, "validate", bad)
	assert.ErrorIs(t, err, errInvalidForm)
	assert.Contains(t, out, "MissingTitle")
	assert.Contains(t, out, "InvalidOptions")
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "hash-password", "secret1")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("secret1", strings.TrimSpace(out)))
}

func TestToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "cli-secret")
	out, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "token", "--uid", "ops", "--role", "admin")
	require.NoError(t, err)

	claims, err := auth.NewJWTer("cli-secret", "formcraft", 0).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}
