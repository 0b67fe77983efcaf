package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reportagua/internal/client/draft"
	"reportagua/internal/shared/models"
)

// newBorradoresCmd manages locally saved report drafts. A draft never
// touches the network; "reportes crear --borrador <id>" submits it.
func newBorradoresCmd(r *reportesClient) *cobra.Command {
	cmd := &cobra.Command{Use: "borradores", Short: "Borradores locales de reportes"}

	guardar := &cobra.Command{Use: "guardar", Short: "Guardar un borrador", RunE: func(cmd *cobra.Command, args []string) error {
		drafts, err := draft.New(draft.DefaultDSN())
		if err != nil {
			return err
		}
		defer drafts.Close()
		d := draft.Draft{
			TipoProblema: models.ProblemType(r.tipo),
			Descripcion:  r.descripcion,
			Direccion:    r.direccion,
			FotoPath:     r.fotoPath,
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			d.Ubicacion = &models.Point{Lat: r.lat, Lng: r.lng}
		}
		saved, err := drafts.Save(cmd.Context(), d)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Borrador guardado: %s\n", saved.ID)
		return nil
	}}
	guardar.Flags().StringVar(&r.tipo, "tipo", "", "Tipo de problema")
	guardar.Flags().StringVar(&r.descripcion, "descripcion", "", "Descripcion del problema")
	guardar.Flags().StringVar(&r.direccion, "direccion", "", "Direccion o referencia")
	guardar.Flags().Float64Var(&r.lat, "lat", 0, "Latitud")
	guardar.Flags().Float64Var(&r.lng, "lng", 0, "Longitud")
	guardar.Flags().StringVar(&r.fotoPath, "foto", "", "Ruta de la foto de evidencia")
	cmd.AddCommand(guardar)

	cmd.AddCommand(&cobra.Command{Use: "lista", Short: "Listar borradores", RunE: func(cmd *cobra.Command, args []string) error {
		drafts, err := draft.New(draft.DefaultDSN())
		if err != nil {
			return err
		}
		defer drafts.Close()
		list, err := drafts.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIPO\tDESCRIPCION\tUBICACION")
		for _, d := range list {
			loc := "sin ubicacion"
			if d.Ubicacion != nil {
				loc = d.Ubicacion.WKT()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.TipoProblema, d.Descripcion, loc)
		}
		return w.Flush()
	}})

	cmd.AddCommand(&cobra.Command{Use: "eliminar", Short: "Eliminar un borrador", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		drafts, err := draft.New(draft.DefaultDSN())
		if err != nil {
			return err
		}
		defer drafts.Close()
		if err := drafts.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Borrador eliminado")
		return nil
	}})

	return cmd
}
