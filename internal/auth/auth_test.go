package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"silvess-backend/internal/config"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/models"
	"silvess-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTExpiry: 7 * 24 * time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: 4, Name: "Ana", Email: "ana@example.com", Role: models.RoleAdmin}
	token, err := GenerateToken(testSecret, time.Hour, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 4 || claims.Role != models.RoleAdmin || claims.Name != "Ana" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := ParseToken("another-secret-another-secret-xx", token); err == nil {
		t.Fatal("token accepted with the wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken(testSecret, -time.Minute, &models.User{ID: 1, Role: models.RoleUser})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(testSecret, token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "s3cret!") || CheckPassword(hash, "other") {
		t.Fatal("bcrypt check mismatch")
	}
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testConfig()

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Post("/register", RegisterHandler(db, cfg))
	app.Post("/login", LoginHandler(db, cfg))
	app.Get("/me", JWTMiddleware(cfg), MeHandler(db))
	app.Post("/change-password", JWTMiddleware(cfg), ChangePasswordHandler(db))
	app.Get("/admin", JWTMiddleware(cfg), RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func tokenOf(t *testing.T, out map[string]any) string {
	t.Helper()
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", out)
	}
	return token
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	app := newApp(t)

	code, out := call(t, app, "POST", "/register", "", `{"name":"Ana","email":"Ana@Example.com","password":"secret1"}`)
	if code != http.StatusCreated {
		t.Fatalf("register status = %d %v", code, out)
	}
	if role := out["user"].(map[string]any)["role"]; role != "admin" {
		t.Fatalf("first user role = %v", role)
	}
	admin := tokenOf(t, out)

	code, out = call(t, app, "POST", "/register", "", `{"name":"Bo","email":"bo@example.com","password":"secret2"}`)
	if code != http.StatusCreated {
		t.Fatalf("second register status = %d", code)
	}
	if role := out["user"].(map[string]any)["role"]; role != "user" {
		t.Fatalf("second user role = %v", role)
	}
	regular := tokenOf(t, out)

	if code, _ := call(t, app, "POST", "/register", "", `{"name":"Dup","email":"ana@example.com","password":"secret3"}`); code != http.StatusBadRequest {
		t.Fatalf("duplicate email status = %d", code)
	}

	if code, _ := call(t, app, "GET", "/admin", admin, ""); code != http.StatusOK {
		t.Fatalf("admin gate rejected admin: %d", code)
	}
	if code, _ := call(t, app, "GET", "/admin", regular, ""); code != http.StatusForbidden {
		t.Fatalf("admin gate let user through: %d", code)
	}
}

func TestLoginMeAndChangePassword(t *testing.T) {
	app := newApp(t)
	call(t, app, "POST", "/register", "", `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)

	if code, _ := call(t, app, "POST", "/login", "", `{"email":"ana@example.com","password":"wrong"}`); code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", code)
	}

	code, out := call(t, app, "POST", "/login", "", `{"email":"ana@example.com","password":"secret1"}`)
	if code != http.StatusOK {
		t.Fatalf("login status = %d %v", code, out)
	}
	token := tokenOf(t, out)

	code, out = call(t, app, "GET", "/me", token, "")
	if code != http.StatusOK || out["email"] != "ana@example.com" {
		t.Fatalf("me = %d %v", code, out)
	}

	if code, _ := call(t, app, "GET", "/me", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("me without token = %d", code)
	}
	if code, _ := call(t, app, "GET", "/me", "garbage", ""); code != http.StatusUnauthorized {
		t.Fatalf("me with bad token = %d", code)
	}

	if code, _ := call(t, app, "POST", "/change-password", token, `{"current_password":"nope","new_password":"secret9"}`); code != http.StatusUnauthorized {
		t.Fatalf("wrong current password status = %d", code)
	}
	if code, _ := call(t, app, "POST", "/change-password", token, `{"current_password":"secret1","new_password":"secret9"}`); code != http.StatusOK {
		t.Fatalf("change password status = %d", code)
	}
	if code, _ := call(t, app, "POST", "/login", "", `{"email":"ana@example.com","password":"secret9"}`); code != http.StatusOK {
		t.Fatalf("login with new password = %d", code)
	}
}
