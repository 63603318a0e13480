package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/userdeck/backend/internal/accounts"
	"github.com/userdeck/backend/internal/auth"
	"github.com/userdeck/backend/internal/database"
	"github.com/userdeck/backend/internal/server"
	"github.com/userdeck/backend/internal/users"
	"gorm.io/gorm"
)

const (
	signingSecret   = "integration-secret"
	jsonContentType = "application/json"
)

func buildHandler(testContext *testing.T) (http.Handler, users.Store) {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db, nil); err != nil {
		testContext.Fatalf("failed to migrate: %v", err)
	}

	store, err := users.NewGormStore(db)
	if err != nil {
		testContext.Fatalf("failed to build store: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(signingSecret),
		Issuer:        "userdeck-auth",
		Audience:      "userdeck-api",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		testContext.Fatalf("failed to build issuer: %v", err)
	}
	gate, err := auth.NewGate(auth.GateConfig{Verifier: issuer, Store: store})
	if err != nil {
		testContext.Fatalf("failed to build gate: %v", err)
	}
	accountService, err := accounts.NewService(accounts.ServiceConfig{Store: store, Tokens: issuer})
	if err != nil {
		testContext.Fatalf("failed to build account service: %v", err)
	}
	moderation, err := users.NewModeration(users.ModerationConfig{Store: store})
	if err != nil {
		testContext.Fatalf("failed to build moderation service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts:   accountService,
		Moderation: moderation,
		Gate:       gate,
		Store:      store,
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	return handler, store
}

func postJSON(testContext *testing.T, handler http.Handler, path, token string, payload any) *httptest.ResponseRecorder {
	testContext.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		testContext.Fatalf("failed to encode payload: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", jsonContentType)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func getWithToken(testContext *testing.T, handler http.Handler, path, token string) *httptest.ResponseRecorder {
	testContext.Helper()
	request := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestRegisterLoginModerateFlow(testContext *testing.T) {
	handler, _ := buildHandler(testContext)

	// Register Ana.
	recorder := postJSON(testContext, handler, "/auth/register", "", map[string]string{
		"name":     "Ana",
		"email":    "ana@x.com",
		"password": "secret1",
	})
	if recorder.Code != http.StatusCreated {
		testContext.Fatalf("register returned %d: %s", recorder.Code, recorder.Body.String())
	}

	// Login with the same credentials.
	recorder = postJSON(testContext, handler, "/auth/login", "", map[string]string{
		"email":    "ana@x.com",
		"password": "secret1",
	})
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("login returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var loginResponse struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &loginResponse); err != nil {
		testContext.Fatalf("failed to decode login response: %v", err)
	}
	if loginResponse.Token == "" || loginResponse.ExpiresIn <= 0 {
		testContext.Fatalf("unexpected login response: %+v", loginResponse)
	}

	// The list shows Ana as active.
	recorder = getWithToken(testContext, handler, "/users", loginResponse.Token)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("list returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var listed []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &listed); err != nil {
		testContext.Fatalf("failed to decode user list: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "Ana" || listed[0].Status != "active" {
		testContext.Fatalf("unexpected user list: %+v", listed)
	}

	// Ana blocks herself through the bulk action.
	recorder = postJSON(testContext, handler, "/users/action", loginResponse.Token, map[string]any{
		"ids":    []string{listed[0].ID},
		"action": "block",
	})
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("block action returned %d: %s", recorder.Code, recorder.Body.String())
	}

	// The gate re-checks status, so her still-valid token is now denied.
	recorder = getWithToken(testContext, handler, "/users", loginResponse.Token)
	if recorder.Code != http.StatusForbidden {
		testContext.Fatalf("expected 403 after self-block, got %d", recorder.Code)
	}

	// And logging in again with the correct password is also denied.
	recorder = postJSON(testContext, handler, "/auth/login", "", map[string]string{
		"email":    "ana@x.com",
		"password": "secret1",
	})
	if recorder.Code != http.StatusForbidden {
		testContext.Fatalf("expected 403 login for blocked user, got %d", recorder.Code)
	}
}
