// Package backendtest is an in-process stand-in for the government
// reporting backend. Package tests point the gateway at it; it issues
// real bearer tokens, enforces them on protected routes, counts every
// request per route and can inject failures.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"reportagua/internal/shared/models"
)

type Backend struct {
	mu sync.Mutex

	users     map[string]string // username -> password
	reports   []models.Report
	resources []models.Resource
	noticias  []models.Noticia
	stats     models.DashboardStats
	weekly    []models.WeeklyPoint
	nextID    int64

	calls      map[string]int
	forced     map[string]int // route key -> status to inject once
	delays     map[string]time.Duration
	requestIDs []string

	jwtSecret []byte
}

func New() *Backend {
	return &Backend{
		users:     map[string]string{},
		calls:     map[string]int{},
		forced:    map[string]int{},
		delays:    map[string]time.Duration{},
		nextID:    1,
		jwtSecret: []byte("backendtest-" + uuid.NewString()),
	}
}

// Start runs the fake behind an httptest server torn down with the test.
func (b *Backend) Start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// AddUser registers a login fixture.
func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
}

// SeedReport stores a report fixture and returns its id.
func (b *Backend) SeedReport(r models.Report) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.ID = b.nextID
	b.nextID++
	if r.Status == "" {
		r.Status = models.StatusPendiente
	}
	b.reports = append(b.reports, r)
	return r.ID
}

func (b *Backend) SeedResources(rs ...models.Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources = append(b.resources, rs...)
}

func (b *Backend) SeedNoticias(ns ...models.Noticia) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.noticias = append(b.noticias, ns...)
}

func (b *Backend) SetStats(s models.DashboardStats) { b.mu.Lock(); b.stats = s; b.mu.Unlock() }
func (b *Backend) SetWeekly(w []models.WeeklyPoint) { b.mu.Lock(); b.weekly = w; b.mu.Unlock() }

// Calls returns how many requests hit the given "METHOD path" route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls counts every request the fake has seen.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// ForceStatus makes the next request to the route answer with the
// given status instead of the normal behavior.
func (b *Backend) ForceStatus(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forced[route] = status
}

// Stall makes every request to the route wait before being handled.
func (b *Backend) Stall(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = d
}

// RequestIDs lists the X-Request-ID headers seen on report creation.
func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requestIDs...)
}

// Reports returns a copy of the stored reports.
func (b *Backend) Reports() []models.Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Report(nil), b.reports...)
}

func (b *Backend) Handler() http.Handler {
	mux := chi.NewRouter()

	mux.Post("/auth/jwt/create/", b.handleLogin)
	mux.Post("/auth/users/", b.handleRegister)
	mux.Get("/api/noticias/", b.handleNoticias)

	mux.Group(func(pr chi.Router) {
		pr.Use(b.authMiddleware)
		pr.Get("/api/perfil/me/", b.handleProfile)
		pr.Patch("/api/perfil/me/", b.handleProfilePatch)
		pr.Get("/api/reportes/", b.handleListReports)
		pr.Get("/api/reportes/mis_reportes/", b.handleMyReports)
		pr.Post("/api/reportes/", b.handleCreateReport)
		pr.Patch("/api/reportes/{id}/", b.handleManageReport)
		pr.Post("/api/reportes/{id}/validar/", b.handleValidate)
		pr.Get("/api/pipas/", b.handleResources)
		pr.Get("/api/admin-dashboard/estadisticas_generales/", b.handleStats)
		pr.Get("/api/admin-dashboard/reporte_semanal/", b.handleWeekly)
		pr.Get("/api/admin-dashboard/exportar_reportes/", b.handleExport)
	})

	return mux
}

// record bumps the route counter and applies a forced status, if any.
// It returns false when the request was already answered.
func (b *Backend) record(w http.ResponseWriter, route string) bool {
	b.mu.Lock()
	b.calls[route]++
	status, ok := b.forced[route]
	if ok {
		delete(b.forced, route)
	}
	delay := b.delays[route]
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return true
	}
	switch {
	case status == http.StatusBadRequest:
		writeJSON(w, status, map[string]any{"descripcion": []string{"demasiados reportes, espere unos minutos"}})
	case status == http.StatusUnauthorized:
		writeJSON(w, status, map[string]string{"detail": "token invalido"})
	default:
		writeJSON(w, status, map[string]string{"detail": "error"})
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authz := req.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "falta el token"})
			return
		}
		token := strings.TrimPrefix(authz, "Bearer ")
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return b.jwtSecret, nil
		})
		if err != nil || !parsed.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token invalido"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

// IssueToken signs an access token the middleware will accept; tests
// use it to fabricate a logged-in state without the login round trip.
func (b *Backend) IssueToken(username string) string {
	claims := jwt.MapClaims{"sub": username, "exp": time.Now().Add(time.Hour).Unix()}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := t.SignedString(b.jwtSecret)
	return signed
}

func (b *Backend) handleLogin(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "POST /auth/jwt/create/") {
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "json invalido"})
		return
	}
	b.mu.Lock()
	pass, ok := b.users[body.Username]
	b.mu.Unlock()
	if !ok || pass != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "credenciales invalidas"})
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{
		Access:  b.IssueToken(body.Username),
		Refresh: uuid.NewString(),
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "POST /auth/users/") {
		return
	}
	var body struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		RePassword string `json:"re_password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "json invalido"})
		return
	}
	fieldErrs := map[string][]string{}
	if body.Username == "" {
		fieldErrs["username"] = []string{"este campo es obligatorio"}
	}
	if body.Password != body.RePassword {
		fieldErrs["re_password"] = []string{"las contrasenas no coinciden"}
	}
	b.mu.Lock()
	if _, taken := b.users[body.Username]; taken {
		fieldErrs["username"] = append(fieldErrs["username"], "ya existe un usuario con ese nombre")
	}
	b.mu.Unlock()
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}
	b.mu.Lock()
	b.users[body.Username] = body.Password
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"username": body.Username, "email": body.Email})
}

func (b *Backend) handleProfile(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/perfil/me/") {
		return
	}
	writeJSON(w, http.StatusOK, models.Profile{Username: "ciudadano", Email: "c@example.com"})
}

func (b *Backend) handleProfilePatch(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "PATCH /api/perfil/me/") {
		return
	}
	var fields map[string]string
	if err := json.NewDecoder(req.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "json invalido"})
		return
	}
	p := models.Profile{Username: "ciudadano", Email: "c@example.com"}
	if v, ok := fields["colonia"]; ok {
		p.Colonia = v
	}
	if v, ok := fields["telefono"]; ok {
		p.Telefono = v
	}
	if v, ok := fields["nombre_completo"]; ok {
		p.FullName = v
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) handleListReports(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/reportes/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// paginated shape on purpose: clients must narrow both forms
	writeJSON(w, http.StatusOK, map[string]any{"results": b.reports})
}

func (b *Backend) handleMyReports(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/reportes/mis_reportes/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.reports)
}

func (b *Backend) handleCreateReport(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "POST /api/reportes/") {
		return
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"detail": "se requiere multipart"})
		return
	}
	if err := req.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "formulario invalido"})
		return
	}
	tipo := models.ProblemType(req.FormValue("tipo_problema"))
	desc := req.FormValue("descripcion")
	ubicacion := req.FormValue("ubicacion")
	fieldErrs := map[string][]string{}
	if !tipo.Valid() {
		fieldErrs["tipo_problema"] = []string{"valor no permitido"}
	}
	if desc == "" {
		fieldErrs["descripcion"] = []string{"este campo es obligatorio"}
	}
	if _, err := models.ParseWKT(ubicacion); err != nil {
		fieldErrs["ubicacion"] = []string{"se requiere un punto valido"}
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	b.mu.Lock()
	if rid := req.Header.Get("X-Request-ID"); rid != "" {
		b.requestIDs = append(b.requestIDs, rid)
	}
	r := models.Report{
		ID:           b.nextID,
		Folio:        fmt.Sprintf("EXP-%04d", b.nextID),
		TipoProblema: tipo,
		Descripcion:  desc,
		Direccion:    req.FormValue("direccion"),
		Ubicacion:    ubicacion,
		Status:       models.StatusPendiente,
		FechaHora:    time.Now().UTC(),
	}
	if _, hdr, err := req.FormFile("foto"); err == nil {
		r.Foto = "/media/reportes/" + hdr.Filename
	}
	b.nextID++
	b.reports = append(b.reports, r)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, r)
}

func (b *Backend) handleManageReport(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "PATCH /api/reportes/{id}/") {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "id invalido"})
		return
	}
	if err := req.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "formulario invalido"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.reports {
		if b.reports[i].ID != id {
			continue
		}
		if v := req.FormValue("status"); v != "" {
			st := models.ReportStatus(v)
			if !st.Valid() {
				writeJSON(w, http.StatusBadRequest, map[string]any{"status": []string{"valor no permitido"}})
				return
			}
			b.reports[i].Status = st
		}
		if v := req.FormValue("nota_seguimiento"); v != "" {
			b.reports[i].NotaSeg = v
		}
		if v := req.FormValue("pipa_asignada"); v != "" {
			pid, _ := strconv.ParseInt(v, 10, 64)
			b.reports[i].PipaAsignada = pid
		}
		if _, hdr, err := req.FormFile("foto_solucion"); err == nil {
			b.reports[i].FotoSolucion = "/media/soluciones/" + hdr.Filename
		}
		writeJSON(w, http.StatusOK, b.reports[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "reporte no encontrado"})
}

func (b *Backend) handleValidate(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "POST /api/reportes/{id}/validar/") {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.reports {
		if b.reports[i].ID == id {
			b.reports[i].Validaciones++
			writeJSON(w, http.StatusOK, map[string]int{"validaciones": b.reports[i].Validaciones})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "reporte no encontrado"})
}

func (b *Backend) handleResources(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/pipas/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.resources)
}

func (b *Backend) handleNoticias(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/noticias/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.noticias)
}

func (b *Backend) handleStats(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/admin-dashboard/estadisticas_generales/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.stats)
}

func (b *Backend) handleWeekly(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/admin-dashboard/reporte_semanal/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.weekly)
}

func (b *Backend) handleExport(w http.ResponseWriter, req *http.Request) {
	if !b.record(w, "GET /api/admin-dashboard/exportar_reportes/") {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "text/csv")
	fmt.Fprintln(w, "folio,tipo_problema,status")
	for _, r := range b.reports {
		fmt.Fprintf(w, "%s,%s,%s\n", r.Folio, r.TipoProblema, r.Status)
	}
}
