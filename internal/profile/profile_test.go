package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported database driver "mysql"`)
}

func TestValidateDefaultsSqliteDSN(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}

	require.NoError(t, p.Validate())
	assert.Equal(t, filepath.Join(dir, "assist_dev.db"), p.DSN)
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "postgres", Data: t.TempDir()}

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres driver requires an explicit DSN")
}

func TestValidateNormalizesUnknownMode(t *testing.T) {
	p := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}

	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
	assert.Equal(t, filepath.Base(p.DSN), "assist_demo.db")
}

func TestValidateRequiresSecretInProd(t *testing.T) {
	p := &Profile{Mode: "prod", Driver: "sqlite", Data: t.TempDir()}

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOIT_JWT_SECRET must be set in prod mode")
}

func TestValidateGeneratesEphemeralSecretInDev(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}

	require.NoError(t, p.Validate())
	assert.Len(t, p.Secret, 64)
}

func TestValidateKeepsExplicitSecret(t *testing.T) {
	p := &Profile{Mode: "prod", Driver: "sqlite", Data: t.TempDir(), Secret: "configured"}

	require.NoError(t, p.Validate())
	assert.Equal(t, "configured", p.Secret)
}

func TestIsDev(t *testing.T) {
	assert.True(t, (&Profile{Mode: "dev"}).IsDev())
	assert.True(t, (&Profile{Mode: "demo"}).IsDev())
	assert.False(t, (&Profile{Mode: "prod"}).IsDev())
}

func TestIsCloudLLMEnabled(t *testing.T) {
	assert.False(t, (&Profile{}).IsCloudLLMEnabled())
	assert.True(t, (&Profile{LLMAPIKey: "sk-test"}).IsCloudLLMEnabled())
}
