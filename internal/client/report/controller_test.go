package report

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"reportagua/internal/backendtest"
	"reportagua/internal/client/draft"
	"reportagua/internal/client/gateway"
	"reportagua/internal/client/geo"
	"reportagua/internal/client/session"
	"reportagua/internal/shared/models"
)

func newTestController(t *testing.T, locator geo.Locator) (*Controller, *backendtest.Backend) {
	t.Helper()
	backend := backendtest.New()
	srv := backend.Start(t)
	store := &session.MemStore{}
	if err := store.Set(backend.IssueToken("ciudadano"), "refresh-fixture"); err != nil {
		t.Fatal(err)
	}
	gw := gateway.New(srv.URL, store)
	return NewController(gw, locator, nil, nil), backend
}

func fixedLocator() geo.Locator {
	return geo.StaticLocator{Point: models.Point{Lat: 19.4326, Lng: -99.1332}, Set: true}
}

func TestCreateWithoutLocationMakesNoCalls(t *testing.T) {
	ctrl, backend := newTestController(t, geo.StaticLocator{})

	_, err := ctrl.Create(context.Background(), CreateInput{
		TipoProblema: models.ProblemFuga,
		Descripcion:  "fuga en la esquina",
	})
	if !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("want ErrLocationRequired, got %v", err)
	}
	if backend.TotalCalls() != 0 {
		t.Fatalf("no request may leave the client, saw %d", backend.TotalCalls())
	}
}

func TestCreateRejectsBadInputLocally(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())

	if _, err := ctrl.Create(context.Background(), CreateInput{TipoProblema: "INUNDACION", Descripcion: "x"}); err == nil {
		t.Fatal("invalid type accepted")
	}
	if _, err := ctrl.Create(context.Background(), CreateInput{TipoProblema: models.ProblemFuga}); err == nil {
		t.Fatal("empty description accepted")
	}
	if backend.TotalCalls() != 0 {
		t.Fatal("local validation must not reach the network")
	}
}

func TestCreateSubmitsOnceAndRefreshesOnce(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())

	res, err := ctrl.Create(context.Background(), CreateInput{
		TipoProblema: models.ProblemEscasez,
		Descripcion:  "tres dias sin agua",
		Direccion:    "Col. Centro",
	})
	if err != nil {
		t.Fatal(err)
	}
	if backend.Calls("POST /api/reportes/") != 1 {
		t.Fatalf("posts: %d", backend.Calls("POST /api/reportes/"))
	}
	if backend.Calls("GET /api/reportes/mis_reportes/") != 1 {
		t.Fatalf("refreshes: %d", backend.Calls("GET /api/reportes/mis_reportes/"))
	}
	if res.Created.Status != models.StatusPendiente || res.Created.Folio == "" {
		t.Fatalf("created: %+v", res.Created)
	}
	if res.RefreshErr != nil || len(res.Mine) != 1 {
		t.Fatalf("refresh: %v, %d", res.RefreshErr, len(res.Mine))
	}
	if ids := backend.RequestIDs(); len(ids) != 1 || ids[0] == "" {
		t.Fatalf("request id not attached: %v", ids)
	}
}

func TestDoubleSubmitIsSingleRequest(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	backend.Stall("POST /api/reportes/", 150*time.Millisecond)

	in := CreateInput{TipoProblema: models.ProblemFuga, Descripcion: "doble click"}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ctrl.Create(context.Background(), in)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSubmitInFlight):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("ok=%d rejected=%d", ok, rejected)
	}
	if backend.Calls("POST /api/reportes/") != 1 {
		t.Fatalf("posts: %d", backend.Calls("POST /api/reportes/"))
	}
}

func TestCreateSurfacesBackendRejection(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	backend.ForceStatus("POST /api/reportes/", http.StatusBadRequest)

	_, err := ctrl.Create(context.Background(), CreateInput{TipoProblema: models.ProblemFuga, Descripcion: "fuga"})
	var ve *gateway.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.First() == "" {
		t.Fatal("first structured error must be available")
	}
	// the failed mutation must not trigger a refresh
	if backend.Calls("GET /api/reportes/mis_reportes/") != 0 {
		t.Fatal("refresh after failed create")
	}
}

func TestCreateDeletesSubmittedDraft(t *testing.T) {
	backend := backendtest.New()
	srv := backend.Start(t)
	store := &session.MemStore{}
	_ = store.Set(backend.IssueToken("ciudadano"), "refresh-fixture")

	drafts, err := draft.New("file:ctrldrafts?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer drafts.Close()
	d, err := drafts.Save(context.Background(), draft.Draft{
		TipoProblema: models.ProblemOtro,
		Descripcion:  "olor extrano en la toma",
	})
	if err != nil {
		t.Fatal(err)
	}

	ctrl := NewController(gateway.New(srv.URL, store), fixedLocator(), drafts, nil)
	if _, err := ctrl.Create(context.Background(), CreateInput{
		TipoProblema: d.TipoProblema,
		Descripcion:  d.Descripcion,
		DraftID:      d.ID,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := drafts.Get(context.Background(), d.ID); !errors.Is(err, draft.ErrNotFound) {
		t.Fatalf("draft must be gone after submit, got %v", err)
	}
}

func TestManageRefreshesListAndStats(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	id := backend.SeedReport(models.Report{TipoProblema: models.ProblemFuga, Descripcion: "fuga", Ubicacion: "POINT(-99.1 19.4)"})

	res, err := ctrl.Manage(context.Background(), id, ManageInput{
		Status:  models.StatusResuelto,
		NotaSeg: "reparado",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated.Status != models.StatusResuelto || res.Updated.NotaSeg != "reparado" {
		t.Fatalf("updated: %+v", res.Updated)
	}
	if backend.Calls("PATCH /api/reportes/{id}/") != 1 {
		t.Fatal("exactly one patch expected")
	}
	if backend.Calls("GET /api/reportes/") != 1 {
		t.Fatal("list refresh expected")
	}
	if backend.Calls("GET /api/admin-dashboard/estadisticas_generales/") != 1 {
		t.Fatal("stats refresh expected")
	}
	// resolving without a solution photo is allowed but warned about
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings: %v", res.Warnings)
	}
}

func TestManageWarnsOnReopeningTerminalStatus(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	id := backend.SeedReport(models.Report{TipoProblema: models.ProblemFuga, Descripcion: "fuga", Ubicacion: "POINT(-99.1 19.4)", Status: models.StatusResuelto})

	res, err := ctrl.Manage(context.Background(), id, ManageInput{
		Status:   models.StatusEnProceso,
		Previous: models.StatusResuelto,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings: %v", res.Warnings)
	}
	if res.Updated.Status != models.StatusEnProceso {
		t.Fatalf("status: %s", res.Updated.Status)
	}
}

func TestManageFailureKeepsEditOpen(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	id := backend.SeedReport(models.Report{TipoProblema: models.ProblemFuga, Descripcion: "fuga", Ubicacion: "POINT(-99.1 19.4)"})
	backend.ForceStatus("PATCH /api/reportes/{id}/", http.StatusInternalServerError)

	_, err := ctrl.Manage(context.Background(), id, ManageInput{Status: models.StatusAsignado})
	var se *gateway.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("want ServerError, got %v", err)
	}
	if backend.Calls("GET /api/reportes/") != 0 {
		t.Fatal("no refresh after failed patch")
	}
}

func TestValidateReport(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	id := backend.SeedReport(models.Report{TipoProblema: models.ProblemFuga, Descripcion: "fuga", Ubicacion: "POINT(-99.1 19.4)"})

	if err := ctrl.Validate(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if got := backend.Reports()[0].Validaciones; got != 1 {
		t.Fatalf("validaciones: %d", got)
	}
}

func TestLoadDashboardToleratesMissingSeries(t *testing.T) {
	ctrl, backend := newTestController(t, fixedLocator())
	var stats models.DashboardStats
	stats.KPIs.TotalHistorico = 12
	stats.KPIs.PendientesUrgentes = 3
	backend.SetStats(stats)
	backend.ForceStatus("GET /api/admin-dashboard/reporte_semanal/", http.StatusInternalServerError)

	dash, err := ctrl.LoadDashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if dash.Stats.KPIs.TotalHistorico != 12 {
		t.Fatalf("stats: %+v", dash.Stats)
	}
	if dash.Weekly != nil {
		t.Fatal("missing series must render empty")
	}
}
