package controllers

import (
	"net/http"
	"testing"

	"stylistapi/models"
	"stylistapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	s := newTestServer(t)
	user := test.FakeUser(s.db, models.Premium)

	rec := s.do(t, http.MethodGet, "/profile/me", user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "premium", body["subscription"])
	assert.Equal(t, float64(30), body["daily_limit"])
}

func TestGetProfileHonorsEnforcedLimit(t *testing.T) {
	s := newTestServer(t)
	user := test.FakeUser(s.db, models.Free)
	s.db.Model(user).Update("enforced_daily_suggestion_limit", 12)

	body := decode(t, s.do(t, http.MethodGet, "/profile/me", user.ID, nil))
	assert.Equal(t, float64(12), body["daily_limit"])
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	user := test.FakeUser(s.db, models.Free)

	rec := s.do(t, http.MethodPatch, "/profile/me", user.ID, map[string]any{
		"presentation_style":    "feminine",
		"style_profile":         "minimal, muted colors",
		"receive_notifications": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "feminine", body["presentation_style"])
	assert.Equal(t, false, body["receive_notifications"])

	rec = s.do(t, http.MethodPatch, "/profile/me", user.ID, map[string]any{"presentation_style": "gothic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPushToken(t *testing.T) {
	s := newTestServer(t)
	user := test.FakeUser(s.db, models.Free)

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/profile/push-tokens", user.ID, PushTokenIn{Token: "ios-device-1", Platform: "ios"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	}
	var tokens []models.UserPushToken
	s.db.Where("user_account_id = ? AND token = ?", user.ID, "ios-device-1").Find(&tokens)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].Active)
	assert.Equal(t, models.PlatformIOS, tokens[0].Platform)

	rec := s.do(t, http.MethodPost, "/profile/push-tokens", user.ID, PushTokenIn{Token: "x", Platform: "windows-phone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBannedUserIsLocked(t *testing.T) {
	s := newTestServer(t)
	user := test.FakeUser(s.db, models.Free)
	s.db.Model(user).Update("banned", true)

	rec := s.do(t, http.MethodGet, "/profile/me", user.ID, nil)
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
