package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	svc := &AuthService{Secret: "test-secret"}

	token, err := svc.signToken(42, time.Hour)
	require.NoError(t, err)

	userID, err := svc.verifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := (&AuthService{Secret: "one"}).signToken(1, time.Hour)
	require.NoError(t, err)

	_, err = (&AuthService{Secret: "other"}).verifyToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	svc := &AuthService{Secret: "test-secret"}
	token, err := svc.signToken(1, -time.Minute)
	require.NoError(t, err)

	_, err = svc.verifyToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	_, err := (&AuthService{Secret: "test-secret"}).verifyToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, validateUsername("alice"))
	assert.NoError(t, validateUsername("al-ice_01"))
	assert.Error(t, validateUsername("al"))
	assert.Error(t, validateUsername("has space"))
	assert.Error(t, validateUsername("has@symbol"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validatePassword("Abc123"))
	assert.Error(t, validatePassword("Ab1"))          // too short
	assert.Error(t, validatePassword("alllower1"))    // no upper
	assert.Error(t, validatePassword("ALLUPPER1"))    // no lower
	assert.Error(t, validatePassword("NoDigitsHere")) // no digit
}
