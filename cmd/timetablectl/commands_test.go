package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/el-siradj/SCHOOL/internal/models"
	"github.com/el-siradj/SCHOOL/internal/service"
	"github.com/el-siradj/SCHOOL/pkg/config"
)

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "ctl-secret")
	t.Setenv("JWT_ISSUER", "school-api")

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"token", "--user", "ops-1", "--role", "director", "--ttl", "10m"})
	require.NoError(t, root.Execute())

	var payload struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)

	cfg, err := config.Load()
	require.NoError(t, err)
	claims, err := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}).ValidateToken(payload.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.UserID)
	assert.Equal(t, models.RoleDirector, claims.Role)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--role", "janitor"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestCommandsValidateIDsBeforeConnecting(t *testing.T) {
	for _, args := range [][]string{
		{"autofill", "abc"},
		{"clear", "0"},
		{"export", "class", "-3"},
		{"export", "room", "3"},
	} {
		root := newRootCmd(&bytes.Buffer{})
		root.SetArgs(args)
		assert.Error(t, root.Execute(), "%v", args)
	}
}

func TestAutofillRejectsCapWithSameDayAllowed(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	root.SetArgs([]string{"autofill", "12", "--allow-same-day", "--max-same", "2"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allow-same-day")

	autofill, _, err := newRootCmd(&bytes.Buffer{}).Find([]string{"autofill"})
	require.NoError(t, err)
	assert.NotContains(t, autofill.Long, "--allow-same-day --max-same")
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 12 ", "class-id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = parseID("x", "class-id")
	assert.EqualError(t, err, `class-id must be a positive integer, got "x"`)
}

func TestPruneExportsCommand(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"prune-exports", "--dir", dir, "--older-than", "1h"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Pruned 0 files")
}
