package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProblemType classifies a citizen water incident.
type ProblemType string

const (
	ProblemFuga           ProblemType = "FUGA"
	ProblemEscasez        ProblemType = "ESCASEZ"
	ProblemCalidad        ProblemType = "CALIDAD"
	ProblemAlcantarillado ProblemType = "ALCANTARILLADO"
	ProblemOtro           ProblemType = "OTRO"
)

func (p ProblemType) Valid() bool {
	switch p {
	case ProblemFuga, ProblemEscasez, ProblemCalidad, ProblemAlcantarillado, ProblemOtro:
		return true
	}
	return false
}

// ReportStatus is the backend-owned lifecycle state of a report.
type ReportStatus string

const (
	StatusPendiente ReportStatus = "PENDIENTE"
	StatusAsignado  ReportStatus = "ASIGNADO"
	StatusEnProceso ReportStatus = "EN_PROCESO"
	StatusResuelto  ReportStatus = "RESUELTO"
	StatusCancelado ReportStatus = "CANCELADO"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPendiente, StatusAsignado, StatusEnProceso, StatusResuelto, StatusCancelado:
		return true
	}
	return false
}

// Terminal reports whether the status closes the case.
func (s ReportStatus) Terminal() bool {
	return s == StatusResuelto || s == StatusCancelado
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// WKT renders the point in the well-known-text form the backend stores,
// longitude first.
func (p Point) WKT() string {
	return fmt.Sprintf("POINT(%g %g)", p.Lng, p.Lat)
}

// ParseWKT parses "POINT(<lng> <lat>)" as returned by the backend.
func ParseWKT(s string) (Point, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(s), "POINT(")
	if !ok {
		return Point{}, fmt.Errorf("not a WKT point: %q", s)
	}
	body, ok = strings.CutSuffix(body, ")")
	if !ok {
		return Point{}, fmt.Errorf("not a WKT point: %q", s)
	}
	var lng, lat float64
	if _, err := fmt.Sscanf(body, "%f %f", &lng, &lat); err != nil {
		return Point{}, fmt.Errorf("not a WKT point: %q", s)
	}
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, errors.New("coordinates out of range")
	}
	return p, nil
}

// Report is a citizen-submitted incident as the backend returns it.
// Field names follow the backend wire contract.
type Report struct {
	ID           int64        `json:"id"`
	Folio        string       `json:"folio,omitempty"`
	TipoProblema ProblemType  `json:"tipo_problema"`
	Descripcion  string       `json:"descripcion"`
	Direccion    string       `json:"direccion,omitempty"`
	Ubicacion    string       `json:"ubicacion"` // WKT point
	Foto         string       `json:"foto,omitempty"`
	Status       ReportStatus `json:"status"`
	NotaSeg      string       `json:"nota_seguimiento,omitempty"`
	PipaAsignada int64        `json:"pipa_asignada,omitempty"`
	FotoSolucion string       `json:"foto_solucion,omitempty"`
	Validaciones int          `json:"validaciones,omitempty"`
	FechaHora    time.Time    `json:"fecha_hora"`
}

// ResourceState is the availability of a dispatchable unit.
type ResourceState string

const (
	ResourceDisponible ResourceState = "DISPONIBLE"
	ResourceEnRuta     ResourceState = "EN_RUTA"
	ResourceTaller     ResourceState = "TALLER"
)

// Resource is a dispatchable government unit (water truck). Read-only
// from this client; the backend owns the catalog.
type Resource struct {
	ID              int64         `json:"id"`
	NumeroEconomico string        `json:"numero_economico"`
	Chofer          string        `json:"chofer,omitempty"`
	Estado          ResourceState `json:"estado"`
}

// Profile is the authenticated user's account data.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"nombre_completo,omitempty"`
	Colonia  string `json:"colonia,omitempty"`
	Telefono string `json:"telefono,omitempty"`
}

// Noticia is a public announcement.
type Noticia struct {
	ID               int64     `json:"id"`
	Titulo           string    `json:"titulo"`
	Contenido        string    `json:"contenido"`
	Imagen           string    `json:"imagen,omitempty"`
	FechaPublicacion time.Time `json:"fecha_publicacion"`
}

type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// DashboardStats carries the precomputed counters the admin dashboard
// shows. All counting happens server-side; missing sub-objects decode
// to zero values so a partial payload still renders.
type DashboardStats struct {
	KPIs struct {
		TotalHistorico     int `json:"total_historico"`
		PendientesUrgentes int `json:"pendientes_urgentes"`
		Resueltos          int `json:"resueltos"`
	} `json:"kpis"`
	PorTipo map[string]int `json:"por_tipo,omitempty"`
}

// WeeklyPoint is one bucket of the weekly report time series.
type WeeklyPoint struct {
	Dia   string `json:"dia"`
	Total int    `json:"total"`
}
