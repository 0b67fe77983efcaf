// Package draft persists not-yet-submitted reports between CLI
// invocations. A draft is local form state only; submitting it is what
// turns it into a backend Report, and a successful submit deletes it.
package draft

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reportagua/internal/shared/models"
)

var ErrNotFound = errors.New("borrador no encontrado")

type Draft struct {
	ID           string
	TipoProblema models.ProblemType
	Descripcion  string
	Direccion    string
	Ubicacion    *models.Point
	FotoPath     string
	CreatedAt    time.Time
}

type Store struct {
	db *sql.DB
}

// DefaultDSN places the draft database under the user home.
func DefaultDSN() string {
	home, _ := os.UserHomeDir()
	return "file:" + home + string(os.PathSeparator) + ".reportagua_drafts.db?cache=shared&mode=rwc"
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			tipo_problema TEXT NOT NULL,
			descripcion TEXT NOT NULL,
			direccion TEXT NOT NULL DEFAULT '',
			lat REAL,
			lng REAL,
			foto_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);
	`); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, d Draft) (Draft, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	var lat, lng sql.NullFloat64
	if d.Ubicacion != nil {
		lat = sql.NullFloat64{Float64: d.Ubicacion.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: d.Ubicacion.Lng, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts(id, tipo_problema, descripcion, direccion, lat, lng, foto_path, created_at)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			tipo_problema=excluded.tipo_problema,
			descripcion=excluded.descripcion,
			direccion=excluded.direccion,
			lat=excluded.lat,
			lng=excluded.lng,
			foto_path=excluded.foto_path
	`, d.ID, string(d.TipoProblema), d.Descripcion, d.Direccion, lat, lng, d.FotoPath, d.CreatedAt)
	if err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s *Store) Get(ctx context.Context, id string) (Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tipo_problema, descripcion, direccion, lat, lng, foto_path, created_at
		FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	return d, err
}

func (s *Store) List(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tipo_problema, descripcion, direccion, lat, lng, foto_path, created_at
		FROM drafts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(r rowScanner) (Draft, error) {
	var d Draft
	var tipo string
	var lat, lng sql.NullFloat64
	if err := r.Scan(&d.ID, &tipo, &d.Descripcion, &d.Direccion, &lat, &lng, &d.FotoPath, &d.CreatedAt); err != nil {
		return Draft{}, err
	}
	d.TipoProblema = models.ProblemType(tipo)
	if lat.Valid && lng.Valid {
		d.Ubicacion = &models.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return d, nil
}
