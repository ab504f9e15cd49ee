package transport

import (
	"testing"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestPeekClaims(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{
		"sub": "u1",
		"exp": expiry.Unix(),
	})

	subject, err := TokenSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	got, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(expiry))
}

func TestPeekClaimsRejectsGarbage(t *testing.T) {
	_, err := PeekClaims("not-a-token")
	assert.Error(t, err)

	_, err = TokenExpiry(signedToken(t, jwt.MapClaims{"sub": "u1"}))
	assert.Error(t, err)
}

func TestRestSenderURILayout(t *testing.T) {
	s := NewRestSender("https://api.example.com", "")

	assert.Equal(t,
		"https://api.example.com/api/channels/42/messages",
		s.conversationURI(models.ConversationKey{
			Type:     models.ConversationTypeChannel,
			TargetID: "42",
		}, "/messages"))
	assert.Equal(t,
		"https://api.example.com/api/direct/9/messages/100/reactions",
		s.conversationURI(models.ConversationKey{
			Type:     models.ConversationTypeDirect,
			TargetID: "9",
		}, "/messages/100/reactions"))
}
