package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	db "github.com/eric-nichols-nyc/recall-api/internal/core/database"
)

const testJWTSecret = "handler-test-secret"

func doAuth(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	store := db.NewMemoryClient()
	h := NewAuthHandler(store, testJWTSecret)

	rec := doAuth(t, h.Signup, `{"email":"a@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var signupResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signupResp))
	require.NotEmpty(t, signupResp["token"])

	// The issued token carries the user ID and verifies with the secret.
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(signupResp["token"], claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	assert.NotEmpty(t, claims["user_id"])

	rec = doAuth(t, h.Login, `{"email":"a@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var loginResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	assert.NotEmpty(t, loginResp["token"])
}

func TestSignup_DuplicateEmail(t *testing.T) {
	store := db.NewMemoryClient()
	h := NewAuthHandler(store, testJWTSecret)

	rec := doAuth(t, h.Signup, `{"email":"a@example.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doAuth(t, h.Signup, `{"email":"a@example.com","password":"pw2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"An account with this email already exists."}`, rec.Body.String())
}

func TestSignup_MissingFields(t *testing.T) {
	h := NewAuthHandler(db.NewMemoryClient(), testJWTSecret)

	rec := doAuth(t, h.Signup, `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := db.NewMemoryClient()
	h := NewAuthHandler(store, testJWTSecret)

	rec := doAuth(t, h.Signup, `{"email":"a@example.com","password":"right"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doAuth(t, h.Login, `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid email or password."}`, rec.Body.String())
}

func TestLogin_UnknownUser(t *testing.T) {
	h := NewAuthHandler(db.NewMemoryClient(), testJWTSecret)

	rec := doAuth(t, h.Login, `{"email":"nobody@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
