package guard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := DecisionFromContext(r.Context()); !ok && r.URL.Path != "/healthz" {
		http.Error(w, "missing decision", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestMiddleware(t *testing.T) {
	table := NewTable(DefaultRoutes())
	resolver := permission.NewResolver()

	cases := []struct {
		name   string
		state  session.State
		target string
		status int
		header string
	}{
		{"unmatched passes", session.State{}, "/healthz", http.StatusOK, ""},
		{"boot", session.State{}, "/catalog", http.StatusServiceUnavailable, ""},
		{"redirect", session.State{Initialized: true}, "/cart?x=1", http.StatusFound, "/login?redirect=%2Fcart%3Fx%3D1"},
		{"forbidden", authed([]string{"USER"}, nil), "/admin/rbac", http.StatusForbidden, ""},
		{"render", authed([]string{"USER"}, nil), "/cart", http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Middleware(table, resolver, func(*http.Request) session.State { return tc.state })(http.HandlerFunc(okHandler))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.header != "" && rec.Header().Get("Location") != tc.header {
				t.Fatalf("expected Location %s, got %s", tc.header, rec.Header().Get("Location"))
			}
		})
	}
}

func TestMiddlewareForbiddenBody(t *testing.T) {
	h := Middleware(NewTable(DefaultRoutes()), nil, func(*http.Request) session.State {
		return authed([]string{"USER"}, nil)
	})(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/rbac", nil))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Details struct {
				Reason   string   `json:"reason"`
				Required []string `json:"required"`
				Current  []string `json:"current"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error.Code != "FORBIDDEN" || body.Error.Details.Reason != "role" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Error.Details.Required[0] != "SUPER_ADMIN" || body.Error.Details.Current[0] != "USER" {
		t.Fatalf("unexpected details %+v", body.Error.Details)
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	state := session.State{Initialized: true}
	r := gin.New()
	r.Use(GinMiddleware(NewTable(DefaultRoutes()), permission.NewResolver(), func(*gin.Context) session.State { return state }))
	r.GET("/cart", func(c *gin.Context) {
		if _, ok := c.Get(GinDecisionKey); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/admin/rbac", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login?redirect=%2Fcart" {
		t.Fatalf("expected redirect, got %d %s", rec.Code, rec.Header().Get("Location"))
	}

	state = authed([]string{"USER"}, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/rbac", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUnmatchedPathDefaults(t *testing.T) {
	signedOut := session.State{Initialized: true}
	table := NewTable(DefaultRoutes())

	h := Middleware(table, nil, func(*http.Request) session.State { return signedOut })(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("middleware must pass unmatched paths, got %d", rec.Code)
	}

	g := New(Options{Session: &stubSession{state: signedOut}})
	if d := g.Evaluate("/healthz"); d.Outcome != OutcomeRedirect || d.Location != "/login?redirect=%2Fhealthz" {
		t.Fatalf("navigator must treat unknown pages as protected, got %+v", d)
	}
}
