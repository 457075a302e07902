package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

func newTestApp(t *testing.T, rl RateLimit) (*fiber.App, *Service) {
	t.Helper()
	service, err := NewService(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	views := fstest.MapFS{
		"login.html": {Data: []byte(`<form>{{.AppName}}{{if .Error}}<p>{{.Error}}</p>{{end}}</form>`)},
	}
	app := fiber.New(fiber.Config{Views: html.NewFileSystem(http.FS(views), ".html")})
	RegisterRoutes(app, NewHandler(service, "Navidrop"), rl)

	app.Get("/dashboard", RequireSession(service), func(c *fiber.Ctx) error {
		return c.SendString("hello " + c.Locals(UserKey).(string))
	})
	app.Get("/api/ping", RequireSession(service), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app, service
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "navidrop_session" {
			return c
		}
	}
	return nil
}

func TestLogin_Flow(t *testing.T) {
	app, _ := newTestApp(t, RateLimit{})

	resp, err := app.Test(loginRequest("admin", "wrong"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized || sessionCookie(resp) != nil {
		t.Fatalf("expected 401 without cookie, got %d", resp.StatusCode)
	}

	resp, err = app.Test(loginRequest("admin", "changeme"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusSeeOther || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected 303 to /dashboard, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	cookie := sessionCookie(resp)
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected dashboard with session, got %d", resp.StatusCode)
	}
}

func TestRequireSession_RejectsAnonymous(t *testing.T) {
	app, _ := newTestApp(t, RateLimit{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("expected redirect to login, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.AddCookie(&http.Cookie{Name: "navidrop_session", Value: "logged_in"})
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 for api call, got %d", resp.StatusCode)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	app, _ := newTestApp(t, RateLimit{})
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/logout", nil))
	if err != nil {
		t.Fatal(err)
	}
	cookie := sessionCookie(resp)
	if resp.StatusCode != fiber.StatusSeeOther || cookie == nil || cookie.Value != "" {
		t.Errorf("expected cleared cookie and redirect, got %d %+v", resp.StatusCode, cookie)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	app, _ := newTestApp(t, RateLimit{Max: 2, Window: time.Minute})
	for i := range 2 {
		resp, err := app.Test(loginRequest("admin", "wrong"))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}
	resp, err := app.Test(loginRequest("admin", "changeme"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("expected 429 after limit, got %d", resp.StatusCode)
	}
}
