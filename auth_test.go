package girder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// Test JWT Generation and Validation
func TestJWTGeneration(t *testing.T) {
	secret := "test-secret-key"
	userID := "user123"
	expiration := 1 * time.Hour

	// Generate token
	token, err := GenerateJWT(userID, secret, expiration)
	if err != nil {
		t.Fatalf("Failed to generate JWT: %v", err)
	}

	if token == "" {
		t.Fatal("Generated token is empty")
	}

	// Validate token
	extractedUserID, err := ValidateJWT(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate JWT: %v", err)
	}

	if extractedUserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, extractedUserID)
	}
}

func TestJWTValidation_InvalidSecret(t *testing.T) {
	secret := "test-secret-key"
	userID := "user123"
	expiration := 1 * time.Hour

	token, _ := GenerateJWT(userID, secret, expiration)

	// Try to validate with wrong secret
	_, err := ValidateJWT(token, "wrong-secret")
	if err == nil {
		t.Error("Should fail with wrong secret")
	}
}

func TestJWTValidation_ExpiredToken(t *testing.T) {
	secret := "test-secret-key"
	userID := "user123"
	expiration := -1 * time.Hour // Expired 1 hour ago

	token, _ := GenerateJWT(userID, secret, expiration)

	// Should fail because token is expired
	_, err := ValidateJWT(token, secret)
	if err == nil {
		t.Error("Should fail with expired token")
	}
}

func TestJWTValidation_MalformedToken(t *testing.T) {
	secret := "test-secret-key"

	// Try to validate garbage token
	_, err := ValidateJWT("this.is.not.a.jwt", secret)
	if err == nil {
		t.Error("Should fail with malformed token")
	}
}

// Test Password Hashing
func TestPasswordHashing(t *testing.T) {
	password := "mySecurePassword123!"

	// Hash password
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Fatal("Generated hash is empty")
	}

	if hash == password {
		t.Error("Hash should not be the same as password")
	}
}

func TestPasswordCheck_ValidPassword(t *testing.T) {
	password := "mySecurePassword123!"
	hash, _ := HashPassword(password)

	// Should succeed with correct password
	err := CheckPassword(password, hash)
	if err != nil {
		t.Error("Valid password should pass check")
	}
}

func TestPasswordCheck_InvalidPassword(t *testing.T) {
	password := "mySecurePassword123!"
	hash, _ := HashPassword(password)

	// Should fail with wrong password
	err := CheckPassword("wrongPassword", hash)
	if err == nil {
		t.Error("Invalid password should fail check")
	}
}

func TestPasswordCheck_DifferentHashEachTime(t *testing.T) {
	password := "mySecurePassword123!"

	// Generate two hashes of the same password
	hash1, _ := HashPassword(password)
	hash2, _ := HashPassword(password)

	// Hashes should be different (bcrypt includes random salt)
	if hash1 == hash2 {
		t.Error("Each hash should be unique due to random salt")
	}

	// But both should validate correctly
	if err := CheckPassword(password, hash1); err != nil {
		t.Error("First hash should validate")
	}
	if err := CheckPassword(password, hash2); err != nil {
		t.Error("Second hash should validate")
	}
}

// Test Context Helpers
func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	userID := "user123"

	// Add user ID to context
	ctx = WithUserID(ctx, userID)

	// Extract user ID from context
	extractedUserID, ok := GetUserID(ctx)
	if !ok {
		t.Fatal("Failed to extract user ID from context")
	}

	if extractedUserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, extractedUserID)
	}
}

func TestContextHelpers_NotFound(t *testing.T) {
	ctx := context.Background()

	// Try to get user ID from empty context
	_, ok := GetUserID(ctx)
	if ok {
		t.Error("Should not find user ID in empty context")
	}
}

// runAuth drives the auth middleware through a one-stage chain, the same
// way the HTTP binding does, and returns the chain outcome and contexts.
func runAuth(t *testing.T, mw Middleware, r *http.Request, handler Handler) (*RequestScope, *ResponseSlot, error) {
	t.Helper()

	scope := &RequestScope{Request: r}
	slot := &ResponseSlot{}
	terminal := func(req, res any) error {
		s := req.(*RequestScope)
		res.(*ResponseSlot).Response = handler(s.Request.Context(), s.Request)
		return nil
	}
	err := RunChain([]Middleware{mw}, terminal, scope, slot)
	return scope, slot, err
}

// Test RequireAuth Middleware
func TestRequireAuth_ValidToken(t *testing.T) {
	secret := "test-secret"
	userID := "user123"

	// Generate valid token
	token, _ := GenerateJWT(userID, secret, 1*time.Hour)

	// Create a test handler that checks for user ID in context
	testHandler := func(ctx context.Context, r *http.Request) Response {
		extractedUserID, ok := GetUserID(ctx)
		if !ok {
			return JSON(500, map[string]string{"error": "user ID not found"})
		}
		return JSON(200, map[string]string{"userID": extractedUserID})
	}

	// Create request with valid token
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, slot, err := runAuth(t, RequireAuth(secret), req, testHandler)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}

	// Verify it's a JSONResponse with status 200
	jsonResp, ok := slot.Response.(JSONResponse)
	if !ok {
		t.Fatal("Expected JSONResponse")
	}

	if jsonResp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", jsonResp.StatusCode)
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	secret := "test-secret"

	handlerRan := false
	testHandler := func(ctx context.Context, r *http.Request) Response {
		handlerRan = true
		return JSON(200, map[string]string{"status": "ok"})
	}

	// Create request without Authorization header
	req := httptest.NewRequest("GET", "/test", nil)

	_, slot, err := runAuth(t, RequireAuth(secret), req, testHandler)

	// The chain halts with the prepared 401
	if !errors.Is(err, ErrHalt) {
		t.Fatalf("Expected ErrHalt, got %v", err)
	}
	if handlerRan {
		t.Error("Handler ran despite missing credentials")
	}

	jsonResp, ok := slot.Response.(JSONResponse)
	if !ok {
		t.Fatal("Expected JSONResponse")
	}
	if jsonResp.StatusCode != 401 {
		t.Errorf("Expected status 401, got %d", jsonResp.StatusCode)
	}
}

func TestRequireAuth_InvalidFormat(t *testing.T) {
	secret := "test-secret"

	testHandler := func(ctx context.Context, r *http.Request) Response {
		return JSON(200, map[string]string{"status": "ok"})
	}

	// Create request with invalid format (missing "Bearer")
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "some-token")

	_, slot, err := runAuth(t, RequireAuth(secret), req, testHandler)
	if !errors.Is(err, ErrHalt) {
		t.Fatalf("Expected ErrHalt, got %v", err)
	}

	jsonResp, ok := slot.Response.(JSONResponse)
	if !ok {
		t.Fatal("Expected JSONResponse")
	}
	if jsonResp.StatusCode != 401 {
		t.Errorf("Expected status 401, got %d", jsonResp.StatusCode)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	secret := "test-secret"

	testHandler := func(ctx context.Context, r *http.Request) Response {
		return JSON(200, map[string]string{"status": "ok"})
	}

	// Create request with invalid token
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid.token.here")

	_, slot, err := runAuth(t, RequireAuth(secret), req, testHandler)
	if !errors.Is(err, ErrHalt) {
		t.Fatalf("Expected ErrHalt, got %v", err)
	}

	jsonResp, ok := slot.Response.(JSONResponse)
	if !ok {
		t.Fatal("Expected JSONResponse")
	}
	if jsonResp.StatusCode != 401 {
		t.Errorf("Expected status 401, got %d", jsonResp.StatusCode)
	}
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	correctSecret := "correct-secret"
	wrongSecret := "wrong-secret"
	userID := "user123"

	// Generate token with correct secret
	token, _ := GenerateJWT(userID, correctSecret, 1*time.Hour)

	testHandler := func(ctx context.Context, r *http.Request) Response {
		return JSON(200, map[string]string{"status": "ok"})
	}

	// Create request with token signed by different secret
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, slot, err := runAuth(t, RequireAuth(wrongSecret), req, testHandler)
	if !errors.Is(err, ErrHalt) {
		t.Fatalf("Expected ErrHalt, got %v", err)
	}

	jsonResp, ok := slot.Response.(JSONResponse)
	if !ok {
		t.Fatal("Expected JSONResponse")
	}
	if jsonResp.StatusCode != 401 {
		t.Errorf("Expected status 401, got %d", jsonResp.StatusCode)
	}
}

// RequireAuth swaps the request to carry the user ID; later stages see the
// replacement through the shared scope.
func TestRequireAuth_RequestScopeUpdated(t *testing.T) {
	secret := "test-secret"
	token, _ := GenerateJWT("user123", secret, 1*time.Hour)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	scope, _, err := runAuth(t, RequireAuth(secret), req, func(ctx context.Context, r *http.Request) Response {
		return JSON(200, nil)
	})
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}

	userID, ok := GetUserID(scope.Request.Context())
	if !ok || userID != "user123" {
		t.Errorf("Expected user123 in request scope, got %q (found=%v)", userID, ok)
	}
}
