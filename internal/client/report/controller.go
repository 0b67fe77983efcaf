// Package report orchestrates the report lifecycle as this client
// drives it: citizen creation with a mandatory location fix, and
// government-side status management. Every mutation is followed by a
// sequential refresh so the rendered lists reflect it.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"reportagua/internal/client/draft"
	"reportagua/internal/client/gateway"
	"reportagua/internal/client/geo"
	"reportagua/internal/shared/models"
)

var (
	// ErrSubmitInFlight rejects a second submit while the first is
	// still waiting on the backend, so a double click cannot create
	// two reports.
	ErrSubmitInFlight = errors.New("ya hay un envio en curso")
	// ErrLocationRequired blocks creation locally; no request is sent
	// without a coordinate fix.
	ErrLocationRequired = errors.New("se requiere la ubicacion para crear un reporte")
)

type Controller struct {
	gw      *gateway.Client
	locator geo.Locator
	drafts  *draft.Store // optional
	logger  *log.Logger

	submitting atomic.Bool
}

func NewController(gw *gateway.Client, locator geo.Locator, drafts *draft.Store, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Controller{gw: gw, locator: locator, drafts: drafts, logger: logger}
}

type CreateInput struct {
	TipoProblema models.ProblemType
	Descripcion  string
	Direccion    string
	Foto         *gateway.Attachment
	// DraftID, when set, names the stored draft this submission came
	// from; it is deleted once the backend accepts the report.
	DraftID string
}

type CreateResult struct {
	Created models.Report
	// Mine is the re-fetched report list of the caller; nil when the
	// refresh failed (RefreshErr says why). The creation itself stands.
	Mine       []models.Report
	RefreshErr error
}

// Create submits a new incident. Local checks (enum, description,
// location fix) run before any network call; at most one request is in
// flight per controller at a time.
func (c *Controller) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if !in.TipoProblema.Valid() {
		return CreateResult{}, fmt.Errorf("tipo de problema invalido: %q", in.TipoProblema)
	}
	if in.Descripcion == "" {
		return CreateResult{}, errors.New("la descripcion es obligatoria")
	}
	loc, err := c.locator.Locate()
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}

	if !c.submitting.CompareAndSwap(false, true) {
		return CreateResult{}, ErrSubmitInFlight
	}
	defer c.submitting.Store(false)

	created, err := c.gw.CreateReport(ctx, gateway.CreateReportRequest{
		TipoProblema: in.TipoProblema,
		Descripcion:  in.Descripcion,
		Direccion:    in.Direccion,
		Ubicacion:    loc,
		Foto:         in.Foto,
		RequestID:    uuid.NewString(),
	})
	if err != nil {
		return CreateResult{}, err
	}

	if in.DraftID != "" && c.drafts != nil {
		if err := c.drafts.Delete(ctx, in.DraftID); err != nil && !errors.Is(err, draft.ErrNotFound) {
			c.logger.Printf("no se pudo eliminar el borrador %s: %v", in.DraftID, err)
		}
	}

	res := CreateResult{Created: created}
	res.Mine, res.RefreshErr = c.gw.MyReports(ctx)
	return res, nil
}

type ManageInput struct {
	Status       models.ReportStatus
	NotaSeg      string
	PipaAsignada string
	FotoSolucion *gateway.Attachment
	// Previous, when known, is the status before this edit and is only
	// used to warn about reopening a closed folio.
	Previous models.ReportStatus
}

type ManageResult struct {
	Updated    models.Report
	Reports    []models.Report
	Stats      models.DashboardStats
	RefreshErr error
	// Warnings are policy notices (reopening a terminal status,
	// resolving without a solution photo); the update went through.
	Warnings []string
}

// Manage applies a government-side partial update. Status regression
// from a terminal state is allowed but warned about; the backend is
// the authority.
func (c *Controller) Manage(ctx context.Context, id int64, in ManageInput) (ManageResult, error) {
	if !in.Status.Valid() {
		return ManageResult{}, fmt.Errorf("status invalido: %q", in.Status)
	}
	var warnings []string
	if in.Previous.Terminal() && in.Status != in.Previous {
		warnings = append(warnings, fmt.Sprintf("el folio estaba %s; se esta reabriendo", in.Previous))
	}
	if in.Status == models.StatusResuelto && in.FotoSolucion == nil {
		warnings = append(warnings, "se marca RESUELTO sin foto de solucion")
	}

	updated, err := c.gw.ManageReport(ctx, id, gateway.ManageReportRequest{
		Status:       in.Status,
		NotaSeg:      in.NotaSeg,
		PipaAsignada: in.PipaAsignada,
		FotoSolucion: in.FotoSolucion,
	})
	if err != nil {
		return ManageResult{Warnings: warnings}, err
	}

	res := ManageResult{Updated: updated, Warnings: warnings}
	// Refresh runs after the mutation completed so the list and the
	// aggregates reflect it.
	if res.Reports, err = c.gw.Reports(ctx); err != nil {
		res.RefreshErr = err
		return res, nil
	}
	if res.Stats, err = c.gw.Stats(ctx); err != nil {
		res.RefreshErr = err
	}
	return res, nil
}

// Validate corroborates an existing report on behalf of the citizen.
func (c *Controller) Validate(ctx context.Context, id int64) error {
	return c.gw.ValidateReport(ctx, id)
}

type Dashboard struct {
	Stats  models.DashboardStats
	Weekly []models.WeeklyPoint
}

// LoadDashboard is a pure read; a missing series renders as empty, not
// as a failure, so a partial backend payload never blanks the screen.
func (c *Controller) LoadDashboard(ctx context.Context) (Dashboard, error) {
	stats, err := c.gw.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	weekly, err := c.gw.Weekly(ctx)
	if err != nil {
		c.logger.Printf("serie semanal no disponible: %v", err)
		weekly = nil
	}
	return Dashboard{Stats: stats, Weekly: weekly}, nil
}
