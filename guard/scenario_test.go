package guard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/events"
	"github.com/pgcportal/portal/session"
	"github.com/pgcportal/portal/storage"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"access_token":"tok","expires_in":3600,"user":{"id":1,"employee_no":"E001","name":"Ada","roles":["USER"],"permissions":[]}}}`)
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	})
	mux.HandleFunc("GET /api/v1/auth/guard-config", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"routes":[],"actions":[]}}`)
	})
	mux.HandleFunc("GET /api/v1/me/assets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"data":null,"error":{"code":"UNAUTHORIZED","message":"token revoked"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type portalStack struct {
	client *api.Client
	sess   *session.Store
	guard  *Guard
}

func newStack(t *testing.T) portalStack {
	t.Helper()
	srv := newBackend(t)
	bus := events.NewBus()

	client, err := api.NewClient(api.Config{BaseURL: srv.URL, Publisher: bus})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sess, err := session.New(session.Options{Auth: client, Durable: storage.NewMemory()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(sess.Close)

	g := New(Options{Session: sess, Resolver: sess.Resolver()})
	t.Cleanup(g.Listen(bus))

	sess.Init(context.Background())
	return portalStack{client: client, sess: sess, guard: g}
}

func TestScenarioUserForbiddenOnRBAC(t *testing.T) {
	st := newStack(t)
	if err := st.sess.Login(context.Background(), "E001", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	st.sess.Wait()

	d := st.guard.Navigate("/admin/rbac")
	if d.Outcome != OutcomeForbidden || d.Reason != ReasonRole {
		t.Fatalf("expected role forbidden, got %+v", d)
	}
	if d.Required[0] != "SUPER_ADMIN" || d.Current[0] != "USER" {
		t.Fatalf("expected SUPER_ADMIN vs USER, got %v vs %v", d.Required, d.Current)
	}
}

func TestScenarioUnauthorizedRedirectsToLogin(t *testing.T) {
	st := newStack(t)
	if err := st.sess.Login(context.Background(), "E001", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	st.sess.Wait()

	if d := st.guard.Navigate("/assets"); d.Outcome != OutcomeRender {
		t.Fatalf("expected /assets to render, got %+v", d)
	}

	_, err := st.client.ListMyAssets(context.Background(), st.sess.Token(), api.PageQuery{})
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	if st.sess.IsAuthenticated() {
		t.Fatal("expected forced logout")
	}
	if got := st.guard.Location(); got != "/login?redirect=%2Fassets" {
		t.Fatalf("expected login redirect remembering /assets, got %s", got)
	}
	st.sess.Wait()
}
