package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitpm/assist/internal/profile"
	"github.com/doitpm/assist/store"
	"github.com/doitpm/assist/store/db/sqlite"
)

const (
	testSecret   = "test-secret"
	testAgentKey = "agent-service-key"
)

func newAuthFixture(t *testing.T) (*Authenticator, *store.User, *store.User) {
	t.Helper()
	p := &profile.Profile{DSN: filepath.Join(t.TempDir(), "assist_test.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	ctx := context.Background()
	require.NoError(t, driver.Migrate(ctx))
	s := store.New(driver, p)

	human, err := s.CreateUser(ctx, &store.User{Name: "Mel Member", Email: "mel@doit.dev", Role: store.RoleMember})
	require.NoError(t, err)
	agent, err := s.CreateUser(ctx, &store.User{Name: "DOIT Agent", Email: "agent@doit.dev", Role: store.RoleMember})
	require.NoError(t, err)

	return NewAuthenticator(s, testSecret, testAgentKey, agent.ID), human, agent
}

func TestAuthenticateAccessToken(t *testing.T) {
	authenticator, human, _ := newAuthFixture(t)

	token, err := GenerateAccessToken(human.Name, human.ID, time.Now().Add(AccessTokenDuration), []byte(testSecret))
	require.NoError(t, err)

	result := authenticator.Authenticate(context.Background(), "Bearer "+token, "")
	require.NotNil(t, result)
	assert.Equal(t, human.ID, result.User.ID)
	assert.False(t, result.ServiceChannel)
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	authenticator, human, _ := newAuthFixture(t)

	token, err := GenerateAccessToken(human.Name, human.ID, time.Now().Add(time.Hour), []byte("other-secret"))
	require.NoError(t, err)

	assert.Nil(t, authenticator.Authenticate(context.Background(), "Bearer "+token, ""))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	authenticator, human, _ := newAuthFixture(t)

	token, err := GenerateAccessToken(human.Name, human.ID, time.Now().Add(-time.Hour), []byte(testSecret))
	require.NoError(t, err)

	assert.Nil(t, authenticator.Authenticate(context.Background(), "Bearer "+token, ""))
}

func TestAuthenticateRejectsUnknownSubject(t *testing.T) {
	authenticator, _, _ := newAuthFixture(t)

	token, err := GenerateAccessToken("Ghost", 9999, time.Now().Add(time.Hour), []byte(testSecret))
	require.NoError(t, err)

	assert.Nil(t, authenticator.Authenticate(context.Background(), "Bearer "+token, ""))
}

func TestAuthenticateAgentServiceKey(t *testing.T) {
	authenticator, _, agent := newAuthFixture(t)

	result := authenticator.Authenticate(context.Background(), "", testAgentKey)
	require.NotNil(t, result)
	assert.True(t, result.ServiceChannel)
	assert.Equal(t, agent.ID, result.User.ID)

	assert.Nil(t, authenticator.Authenticate(context.Background(), "", "wrong-key"))
}

func TestAuthenticateNoCredentials(t *testing.T) {
	authenticator, _, _ := newAuthFixture(t)

	assert.Nil(t, authenticator.Authenticate(context.Background(), "", ""))
	assert.Nil(t, authenticator.Authenticate(context.Background(), "Bearer not-a-token", ""))
}
