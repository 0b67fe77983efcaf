package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reportagua/internal/client/draft"
	"reportagua/internal/client/gateway"
	"reportagua/internal/client/geo"
	"reportagua/internal/client/report"
	"reportagua/internal/shared/models"
)

type reportesClient struct {
	serverURL *string

	tipo         string
	descripcion  string
	direccion    string
	lat, lng     float64
	fotoPath     string
	draftID      string
	status       string
	nota         string
	pipa         string
	fotoSolucion string
}

func newReportesCmd(serverURL *string) *cobra.Command {
	r := &reportesClient{serverURL: serverURL}
	cmd := &cobra.Command{Use: "reportes", Short: "Reportes de incidentes de agua"}

	crear := &cobra.Command{Use: "crear", Short: "Crear un reporte nuevo", RunE: r.crear}
	crear.Flags().StringVar(&r.tipo, "tipo", "", "Tipo de problema (FUGA, ESCASEZ, CALIDAD, ALCANTARILLADO, OTRO)")
	crear.Flags().StringVar(&r.descripcion, "descripcion", "", "Descripcion del problema")
	crear.Flags().StringVar(&r.direccion, "direccion", "", "Direccion o referencia (opcional)")
	crear.Flags().Float64Var(&r.lat, "lat", 0, "Latitud")
	crear.Flags().Float64Var(&r.lng, "lng", 0, "Longitud")
	crear.Flags().StringVar(&r.fotoPath, "foto", "", "Ruta de la foto de evidencia (opcional)")
	crear.Flags().StringVar(&r.draftID, "borrador", "", "Enviar un borrador guardado")
	cmd.AddCommand(crear)

	cmd.AddCommand(&cobra.Command{Use: "lista", Short: "Listar todos los reportes (mapa/admin)", RunE: r.lista})
	cmd.AddCommand(&cobra.Command{Use: "mios", Short: "Listar mis reportes", RunE: r.mios})
	cmd.AddCommand(&cobra.Command{Use: "validar", Short: "Corroborar un reporte existente", Args: cobra.ExactArgs(1), RunE: r.validar})

	gestionar := &cobra.Command{Use: "gestionar", Short: "Actualizar un reporte (gobierno)", Args: cobra.ExactArgs(1), RunE: r.gestionar}
	gestionar.Flags().StringVar(&r.status, "status", "", "Nuevo status (PENDIENTE, ASIGNADO, EN_PROCESO, RESUELTO, CANCELADO)")
	gestionar.Flags().StringVar(&r.nota, "nota", "", "Nota de seguimiento")
	gestionar.Flags().StringVar(&r.pipa, "pipa", "", "ID de la pipa asignada")
	gestionar.Flags().StringVar(&r.fotoSolucion, "foto-solucion", "", "Ruta de la foto de solucion")
	cmd.AddCommand(gestionar)

	cmd.AddCommand(newBorradoresCmd(r))
	return cmd
}

func (r *reportesClient) locator(cmd *cobra.Command) geo.Locator {
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
		return geo.StaticLocator{Point: models.Point{Lat: r.lat, Lng: r.lng}, Set: true}
	}
	return geo.FromEnv()
}

func openAttachment(field, path string) (*gateway.Attachment, *os.File, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo abrir %s: %w", path, err)
	}
	return &gateway.Attachment{Field: field, Name: filepath.Base(path), Content: f}, f, nil
}

func (r *reportesClient) crear(cmd *cobra.Command, args []string) error {
	in := report.CreateInput{
		TipoProblema: models.ProblemType(r.tipo),
		Descripcion:  r.descripcion,
		Direccion:    r.direccion,
	}

	var drafts *draft.Store
	if r.draftID != "" {
		var err error
		if drafts, err = draft.New(draft.DefaultDSN()); err != nil {
			return err
		}
		defer drafts.Close()
		d, err := drafts.Get(cmd.Context(), r.draftID)
		if err != nil {
			return err
		}
		in.TipoProblema = d.TipoProblema
		in.Descripcion = d.Descripcion
		in.Direccion = d.Direccion
		in.DraftID = d.ID
		if r.fotoPath == "" {
			r.fotoPath = d.FotoPath
		}
		if d.Ubicacion != nil && !cmd.Flags().Changed("lat") {
			r.lat, r.lng = d.Ubicacion.Lat, d.Ubicacion.Lng
			_ = cmd.Flags().Set("lat", strconv.FormatFloat(d.Ubicacion.Lat, 'f', -1, 64))
			_ = cmd.Flags().Set("lng", strconv.FormatFloat(d.Ubicacion.Lng, 'f', -1, 64))
		}
	}

	att, f, err := openAttachment("foto", r.fotoPath)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}
	in.Foto = att

	ctrl := report.NewController(newGateway(r.serverURL), r.locator(cmd), drafts, newLogger())
	res, err := ctrl.Create(cmd.Context(), in)
	if err != nil {
		var ve *gateway.ValidationError
		switch {
		case errors.Is(err, report.ErrLocationRequired):
			return errors.New("se requiere la ubicacion: use --lat/--lng o defina REPORTAGUA_LAT/REPORTAGUA_LNG")
		case errors.As(err, &ve):
			return fmt.Errorf("reporte rechazado: %s", ve.First())
		default:
			return fmt.Errorf("no se pudo crear el reporte: %w", err)
		}
	}

	folio := res.Created.Folio
	if folio == "" {
		folio = strconv.FormatInt(res.Created.ID, 10)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reporte creado, folio %s\n", folio)
	if res.RefreshErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "aviso: no se pudo refrescar la lista: %v\n", res.RefreshErr)
		return nil
	}
	printReports(cmd, res.Mine)
	return nil
}

func (r *reportesClient) lista(cmd *cobra.Command, args []string) error {
	reports, err := newGateway(r.serverURL).Reports(cmd.Context())
	if err != nil {
		return err
	}
	printReports(cmd, reports)
	return nil
}

func (r *reportesClient) mios(cmd *cobra.Command, args []string) error {
	reports, err := newGateway(r.serverURL).MyReports(cmd.Context())
	if err != nil {
		return err
	}
	printReports(cmd, reports)
	return nil
}

func (r *reportesClient) validar(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("id invalido: %q", args[0])
	}
	if err := newGateway(r.serverURL).ValidateReport(cmd.Context(), id); err != nil {
		return fmt.Errorf("no se pudo validar el reporte: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Reporte validado, gracias por corroborar")
	return nil
}

func (r *reportesClient) gestionar(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("id invalido: %q", args[0])
	}
	gw := newGateway(r.serverURL)

	// load current state so a reopened folio can be warned about
	var previous models.ReportStatus
	if reports, err := gw.Reports(cmd.Context()); err == nil {
		for _, rep := range reports {
			if rep.ID == id {
				previous = rep.Status
				break
			}
		}
	}

	att, f, err := openAttachment("foto_solucion", r.fotoSolucion)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}

	ctrl := report.NewController(gw, geo.StaticLocator{}, nil, newLogger())
	res, err := ctrl.Manage(cmd.Context(), id, report.ManageInput{
		Status:       models.ReportStatus(r.status),
		NotaSeg:      r.nota,
		PipaAsignada: r.pipa,
		FotoSolucion: att,
		Previous:     previous,
	})
	for _, warning := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "aviso: %s\n", warning)
	}
	if err != nil {
		return fmt.Errorf("no se pudo actualizar el reporte: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Folio %s actualizado a %s\n", res.Updated.Folio, res.Updated.Status)
	if res.RefreshErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "aviso: no se pudo refrescar: %v\n", res.RefreshErr)
	}
	return nil
}

func printReports(cmd *cobra.Command, reports []models.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FOLIO\tTIPO\tSTATUS\tDESCRIPCION")
	for _, r := range reports {
		folio := r.Folio
		if folio == "" {
			folio = strconv.FormatInt(r.ID, 10)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", folio, r.TipoProblema, r.Status, r.Descripcion)
	}
	_ = w.Flush()
}
