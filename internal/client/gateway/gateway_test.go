package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reportagua/internal/backendtest"
	"reportagua/internal/client/session"
	"reportagua/internal/shared/models"
)

func newTestClient(t *testing.T) (*Client, *backendtest.Backend, *session.MemStore) {
	t.Helper()
	backend := backendtest.New()
	srv := backend.Start(t)
	store := &session.MemStore{}
	return New(srv.URL, store), backend, store
}

func authenticate(t *testing.T, b *backendtest.Backend, store *session.MemStore) {
	t.Helper()
	if err := store.Set(b.IssueToken("ciudadano"), "refresh-fixture"); err != nil {
		t.Fatal(err)
	}
}

func TestLoginStoresTokenPair(t *testing.T) {
	c, backend, store := newTestClient(t)
	backend.AddUser("maria", "secreta")

	tokens, err := c.Login(context.Background(), "maria", "secreta")
	if err != nil {
		t.Fatal(err)
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatal("incomplete token pair")
	}
	if store.AccessToken() != tokens.Access || store.RefreshToken() != tokens.Refresh {
		t.Fatal("store does not hold the returned pair")
	}
	// the stored credential authenticates subsequent calls
	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatalf("authenticated call failed: %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	c, backend, store := newTestClient(t)
	backend.AddUser("maria", "secreta")

	_, err := c.Login(context.Background(), "maria", "incorrecta")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if store.AccessToken() != "" || store.RefreshToken() != "" {
		t.Fatal("failed login must not leave credentials behind")
	}
}

func TestAuthorizationHeaderVerbatim(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	store := &session.MemStore{}
	c := New(srv.URL, store)

	// no token: the request goes out unauthenticated, never blocked
	if _, err := c.Reports(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("unexpected header: %q", got)
	}

	_ = store.Set("token-abc", "refresh-xyz")
	if _, err := c.Reports(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer token-abc" {
		t.Fatalf("header not verbatim: %q", got)
	}

	// logout: header disappears again
	if err := c.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reports(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("header after logout: %q", got)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c, _, store := newTestClient(t)
	_ = store.Set("token-caducado", "refresh-caducado")

	_, err := c.Profile(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if store.AccessToken() != "" || store.RefreshToken() != "" {
		t.Fatal("session must be cleared on 401")
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	c, backend, _ := newTestClient(t)
	backend.AddUser("maria", "x")

	err := c.Register(context.Background(), RegisterRequest{
		Username:   "maria",
		Email:      "m@example.com",
		Password:   "uno",
		RePassword: "dos",
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(ve.Fields["username"]) == 0 || len(ve.Fields["re_password"]) == 0 {
		t.Fatalf("fields not surfaced: %+v", ve.Fields)
	}
	if ve.First() == "" {
		t.Fatal("First() empty")
	}
}

func TestServerError(t *testing.T) {
	c, backend, store := newTestClient(t)
	authenticate(t, backend, store)
	backend.ForceStatus("GET /api/pipas/", http.StatusInternalServerError)

	_, err := c.Resources(context.Background())
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("want ServerError, got %v", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status: %d", se.StatusCode)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, &session.MemStore{})
	_, err := c.Noticias(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
}

func TestListShapeNarrowing(t *testing.T) {
	c, backend, store := newTestClient(t)
	authenticate(t, backend, store)
	backend.SeedReport(models.Report{TipoProblema: models.ProblemFuga, Descripcion: "fuga en banqueta", Ubicacion: "POINT(-99.1 19.4)"})
	backend.SeedReport(models.Report{TipoProblema: models.ProblemEscasez, Descripcion: "sin agua", Ubicacion: "POINT(-99.2 19.5)"})

	// the fake serves the paginated shape here and the bare array there
	all, err := c.Reports(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	mine, err := c.MyReports(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || len(mine) != 2 {
		t.Fatalf("lists: %d / %d", len(all), len(mine))
	}
}

func TestCreateReportMultipart(t *testing.T) {
	c, backend, store := newTestClient(t)
	authenticate(t, backend, store)

	foto := &Attachment{Field: "foto", Name: "evidencia.jpg", Content: strings.NewReader("jpegbytes")}
	created, err := c.CreateReport(context.Background(), CreateReportRequest{
		TipoProblema: models.ProblemCalidad,
		Descripcion:  "agua turbia",
		Ubicacion:    models.Point{Lat: 19.4326, Lng: -99.1332},
		Foto:         foto,
		RequestID:    "req-001",
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.Status != models.StatusPendiente {
		t.Fatalf("status: %s", created.Status)
	}
	if created.Folio == "" || created.Foto == "" {
		t.Fatalf("created: %+v", created)
	}
	if ids := backend.RequestIDs(); len(ids) != 1 || ids[0] != "req-001" {
		t.Fatalf("request ids: %v", ids)
	}
}

func TestManageReportPartialPatch(t *testing.T) {
	c, backend, store := newTestClient(t)
	authenticate(t, backend, store)
	id := backend.SeedReport(models.Report{TipoProblema: models.ProblemFuga, Descripcion: "fuga", Ubicacion: "POINT(-99.1 19.4)"})

	updated, err := c.ManageReport(context.Background(), id, ManageReportRequest{
		Status:  models.StatusAsignado,
		NotaSeg: "cuadrilla en camino",
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.StatusAsignado || updated.NotaSeg != "cuadrilla en camino" {
		t.Fatalf("updated: %+v", updated)
	}
	if updated.PipaAsignada != 0 {
		t.Fatal("resource must stay unassigned")
	}
}

func TestExportReports(t *testing.T) {
	c, backend, store := newTestClient(t)
	authenticate(t, backend, store)
	backend.SeedReport(models.Report{Folio: "EXP-0001", TipoProblema: models.ProblemFuga, Descripcion: "fuga", Ubicacion: "POINT(-99.1 19.4)"})

	var buf bytes.Buffer
	if err := c.ExportReports(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "folio,tipo_problema,status") {
		t.Fatalf("export: %q", buf.String())
	}
}

func TestNoticiasArePublic(t *testing.T) {
	c, backend, _ := newTestClient(t)
	backend.SeedNoticias(models.Noticia{Titulo: "Corte programado", Contenido: "Zona norte sin servicio el martes"})

	noticias, err := c.Noticias(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(noticias) != 1 || noticias[0].Titulo != "Corte programado" {
		t.Fatalf("noticias: %+v", noticias)
	}
}

func TestUpdateProfile(t *testing.T) {
	c, backend, store := newTestClient(t)
	authenticate(t, backend, store)

	p, err := c.UpdateProfile(context.Background(), map[string]string{"colonia": "Centro"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Colonia != "Centro" {
		t.Fatalf("profile: %+v", p)
	}
}
