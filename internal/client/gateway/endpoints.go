package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"reportagua/internal/shared/models"
)

// listEnvelope narrows the two list shapes the backend has shipped:
// a bare array, or a paginated {"results": [...]} object.
type listEnvelope[T any] struct {
	items []T
}

func (l *listEnvelope[T]) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &l.items); err == nil {
		return nil
	}
	var wrapped struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	l.items = wrapped.Results
	return nil
}

// Login exchanges credentials for a token pair and stores it. The pair
// is written together or not at all.
func (c *Client) Login(ctx context.Context, username, password string) (models.TokenResponse, error) {
	var tokens models.TokenResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.postJSON(ctx, "/auth/jwt/create/", body, &tokens); err != nil {
		return models.TokenResponse{}, err
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return models.TokenResponse{}, fmt.Errorf("respuesta con forma inesperada: par de tokens incompleto")
	}
	if err := c.store.Set(tokens.Access, tokens.Refresh); err != nil {
		return models.TokenResponse{}, err
	}
	return tokens, nil
}

// Logout drops the stored pair; subsequent requests go out without an
// Authorization header.
func (c *Client) Logout() error { return c.store.Clear() }

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
}

func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	return c.postJSON(ctx, "/auth/users/", r, nil)
}

func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	err := c.getJSON(ctx, "/api/perfil/me/", &p)
	return p, err
}

// UpdateProfile patches only the provided fields.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]string) (models.Profile, error) {
	var p models.Profile
	err := c.patchJSON(ctx, "/api/perfil/me/", fields, &p)
	return p, err
}

// Reports returns every report (map and admin list view).
func (c *Client) Reports(ctx context.Context) ([]models.Report, error) {
	var env listEnvelope[models.Report]
	if err := c.getJSON(ctx, "/api/reportes/", &env); err != nil {
		return nil, err
	}
	return env.items, nil
}

// MyReports returns only the caller's reports.
func (c *Client) MyReports(ctx context.Context) ([]models.Report, error) {
	var env listEnvelope[models.Report]
	if err := c.getJSON(ctx, "/api/reportes/mis_reportes/", &env); err != nil {
		return nil, err
	}
	return env.items, nil
}

// CreateReportRequest is the multipart payload for a new incident. The
// location is already captured and validated by the caller.
type CreateReportRequest struct {
	TipoProblema models.ProblemType
	Descripcion  string
	Direccion    string
	Ubicacion    models.Point
	Foto         *Attachment
	// RequestID is echoed as X-Request-ID so the backend can
	// deduplicate a manual re-submission.
	RequestID string
}

func (c *Client) CreateReport(ctx context.Context, r CreateReportRequest) (models.Report, error) {
	fields := map[string]string{
		"tipo_problema": string(r.TipoProblema),
		"descripcion":   r.Descripcion,
		"ubicacion":     r.Ubicacion.WKT(),
	}
	if r.Direccion != "" {
		fields["direccion"] = r.Direccion
	}
	var atts []Attachment
	if r.Foto != nil {
		atts = append(atts, *r.Foto)
	}
	req, err := c.multipartRequest(ctx, http.MethodPost, "/api/reportes/", fields, atts)
	if err != nil {
		return models.Report{}, err
	}
	if r.RequestID != "" {
		req.Header.Set("X-Request-ID", r.RequestID)
	}
	var created models.Report
	if err := c.do(req, &created); err != nil {
		return models.Report{}, err
	}
	return created, nil
}

// ManageReportRequest is the government-side partial update: only the
// fields being changed travel, plus the status.
type ManageReportRequest struct {
	Status       models.ReportStatus
	NotaSeg      string
	PipaAsignada string
	FotoSolucion *Attachment
}

func (c *Client) ManageReport(ctx context.Context, id int64, r ManageReportRequest) (models.Report, error) {
	fields := map[string]string{"status": string(r.Status)}
	if r.NotaSeg != "" {
		fields["nota_seguimiento"] = r.NotaSeg
	}
	if r.PipaAsignada != "" {
		fields["pipa_asignada"] = r.PipaAsignada
	}
	var atts []Attachment
	if r.FotoSolucion != nil {
		atts = append(atts, *r.FotoSolucion)
	}
	path := fmt.Sprintf("/api/reportes/%d/", id)
	req, err := c.multipartRequest(ctx, http.MethodPatch, path, fields, atts)
	if err != nil {
		return models.Report{}, err
	}
	var updated models.Report
	if err := c.do(req, &updated); err != nil {
		return models.Report{}, err
	}
	return updated, nil
}

// ValidateReport corroborates an existing report (anti-spam).
func (c *Client) ValidateReport(ctx context.Context, id int64) error {
	return c.postJSON(ctx, fmt.Sprintf("/api/reportes/%d/validar/", id), struct{}{}, nil)
}

func (c *Client) Resources(ctx context.Context) ([]models.Resource, error) {
	var env listEnvelope[models.Resource]
	if err := c.getJSON(ctx, "/api/pipas/", &env); err != nil {
		return nil, err
	}
	return env.items, nil
}

func (c *Client) Noticias(ctx context.Context) ([]models.Noticia, error) {
	var env listEnvelope[models.Noticia]
	if err := c.getJSON(ctx, "/api/noticias/", &env); err != nil {
		return nil, err
	}
	return env.items, nil
}

func (c *Client) Stats(ctx context.Context) (models.DashboardStats, error) {
	var s models.DashboardStats
	err := c.getJSON(ctx, "/api/admin-dashboard/estadisticas_generales/", &s)
	return s, err
}

func (c *Client) Weekly(ctx context.Context) ([]models.WeeklyPoint, error) {
	var env listEnvelope[models.WeeklyPoint]
	if err := c.getJSON(ctx, "/api/admin-dashboard/reporte_semanal/", &env); err != nil {
		return nil, err
	}
	return env.items, nil
}

// ExportReports streams the backend's report export into w.
func (c *Client) ExportReports(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/admin-dashboard/exportar_reportes/"), nil)
	if err != nil {
		return err
	}
	return c.do(req, w)
}
