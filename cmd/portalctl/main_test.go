package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgcportal/portal/api"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"access_token":"tok-3","expires_in":3600,"user":{"id":3,"employee_no":"E003","name":"Wu","roles":["USER"],"permissions":[]}}}`)
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	})
	mux.HandleFunc("GET /api/v1/auth/guard-config", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"routes":[],"actions":[]}}`)
	})
	mux.HandleFunc("GET /api/v1/skus/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":21,"brand":"Dell","model":"U2723","reference_price":"2899.00","available_stock":4}}`)
	})
	const submitted = `{"id":88,"application_no":"AP-88","status":"LOCKED","delivery_type":"PICKUP","items":[]}`
	var created atomic.Bool
	mux.HandleFunc("POST /api/v1/applications", func(w http.ResponseWriter, r *http.Request) {
		created.Store(true)
		_, _ = io.WriteString(w, `{"success":true,"data":`+submitted+`}`)
	})
	mux.HandleFunc("GET /api/v1/me/applications", func(w http.ResponseWriter, r *http.Request) {
		if !created.Load() {
			_, _ = io.WriteString(w, `{"success":true,"data":{"items":[],"total":0,"page":1,"page_size":20}}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"items":[`+submitted+`],"total":1,"page":1,"page_size":20}}`)
	})
	mux.HandleFunc("GET /api/v1/admin/sku-stocks/{id}/flows/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", api.XLSXContentType)
		_ = api.WriteStockFlowWorkbook(w, []api.StockFlow{
			{ID: 1, SKUID: 21, Type: "INBOUND", Delta: 5, Balance: 5, CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type cli struct {
	t    *testing.T
	base []string
}

func newCLI(t *testing.T) cli {
	t.Helper()
	srv := newBackend(t)
	db := filepath.Join(t.TempDir(), "state.db")
	return cli{t: t, base: []string{"-env", "", "-base-url", srv.URL, "-db", db, "-password", "pw"}}
}

func (c cli) run(args ...string) (string, int) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append(append([]string(nil), c.base...), args...), &stdout, &stderr)
	if code != 0 {
		return stderr.String(), code
	}
	return stdout.String(), code
}

func (c cli) mustRun(args ...string) string {
	c.t.Helper()
	out, code := c.run(args...)
	if code != 0 {
		c.t.Fatalf("%v exited %d: %s", args, code, out)
	}
	return out
}

func TestSessionSurvivesInvocations(t *testing.T) {
	c := newCLI(t)

	if out := c.mustRun("whoami"); !strings.Contains(out, "not signed in") {
		t.Fatalf("whoami before login: %q", out)
	}
	if out := c.mustRun("login", "E003"); !strings.Contains(out, "signed in as E003 (USER)") {
		t.Fatalf("login: %q", out)
	}
	if out := c.mustRun("whoami"); !strings.HasPrefix(out, "E003 id=3") {
		t.Fatalf("whoami after login: %q", out)
	}
	if out := c.mustRun("nav", "/admin/rbac"); !strings.Contains(out, "forbidden by role: required=SUPER_ADMIN current=USER") {
		t.Fatalf("nav: %q", out)
	}
	if out := c.mustRun("nav", "/catalog"); strings.TrimSpace(out) != "render" {
		t.Fatalf("nav catalog: %q", out)
	}

	c.mustRun("logout")
	if out := c.mustRun("nav", "/assets"); strings.TrimSpace(out) != "redirect /login?redirect=%2Fassets" {
		t.Fatalf("nav after logout: %q", out)
	}
}

func TestCartAndCheckout(t *testing.T) {
	c := newCLI(t)
	c.mustRun("login", "E003")

	if out := c.mustRun("cart-add", "21"); !strings.Contains(out, "Dell U2723 x1") {
		t.Fatalf("cart-add: %q", out)
	}
	c.mustRun("cart-set", "21", "9")
	out := c.mustRun("cart")
	if !strings.Contains(out, "Dell U2723") || !strings.Contains(out, "11596.00") {
		t.Fatalf("expected quantity clamped to stock 4, got:\n%s", out)
	}

	if out := c.mustRun("checkout", "-reason", "second screen"); !strings.Contains(out, "submitted AP-88") {
		t.Fatalf("checkout: %q", out)
	}
	if out := c.mustRun("cart"); !strings.Contains(out, "cart is empty") {
		t.Fatalf("cart after checkout: %q", out)
	}
	if out := c.mustRun("apps"); !strings.Contains(out, "AP-88") {
		t.Fatalf("apps should list the submitted application: %q", out)
	}
	if out, code := c.run("checkout"); code != 1 || !strings.Contains(out, "cart is empty") {
		t.Fatalf("empty checkout: code=%d out=%q", code, out)
	}
}

func TestThemeAndUsageErrors(t *testing.T) {
	c := newCLI(t)
	if out := c.mustRun("theme"); strings.TrimSpace(out) != "system" {
		t.Fatalf("default theme: %q", out)
	}
	c.mustRun("theme", "dark")
	if out := c.mustRun("theme"); strings.TrimSpace(out) != "dark" {
		t.Fatalf("theme: %q", out)
	}
	if _, code := c.run("theme", "pink"); code != 1 {
		t.Fatalf("invalid theme exit = %d", code)
	}
	if _, code := c.run("cart-add", "x"); code != 2 {
		t.Fatalf("bad id exit = %d", code)
	}
	if _, code := c.run("frobnicate"); code != 2 {
		t.Fatalf("unknown command exit = %d", code)
	}
}

func TestExportFlows(t *testing.T) {
	c := newCLI(t)
	c.mustRun("login", "E003")

	dst := filepath.Join(t.TempDir(), "flows.xlsx")
	if out := c.mustRun("export-flows", "21", dst); !strings.Contains(out, "wrote 1 flows") {
		t.Fatalf("export: %q", out)
	}
	if info, err := os.Stat(dst); err != nil || info.Size() == 0 {
		t.Fatalf("expected workbook on disk: %v", err)
	}
}

func TestDevRedisAndMetrics(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("-dev-redis", "metrics")
	if !strings.Contains(out, "portal_api_requests_total") {
		t.Fatalf("metrics output: %q", out)
	}
}
