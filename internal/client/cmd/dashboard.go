package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reportagua/internal/client/geo"
	"reportagua/internal/client/report"
)

type dashboardClient struct {
	serverURL *string
	salida    string
}

func newDashboardCmd(serverURL *string) *cobra.Command {
	d := &dashboardClient{serverURL: serverURL}
	cmd := &cobra.Command{Use: "dashboard", Short: "Panel de administracion (gobierno)"}
	cmd.AddCommand(&cobra.Command{Use: "stats", Short: "Indicadores generales y serie semanal", RunE: d.stats})

	exportar := &cobra.Command{Use: "exportar", Short: "Descargar la exportacion de reportes", RunE: d.exportar}
	exportar.Flags().StringVar(&d.salida, "salida", "reportes.csv", "Archivo de salida")
	cmd.AddCommand(exportar)
	return cmd
}

func (d *dashboardClient) stats(cmd *cobra.Command, args []string) error {
	ctrl := report.NewController(newGateway(d.serverURL), geo.StaticLocator{}, nil, newLogger())
	dash, err := ctrl.LoadDashboard(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total expedientes: %d\n", dash.Stats.KPIs.TotalHistorico)
	fmt.Fprintf(out, "Pendientes:        %d\n", dash.Stats.KPIs.PendientesUrgentes)
	fmt.Fprintf(out, "Resueltos:         %d\n", dash.Stats.KPIs.Resueltos)
	if len(dash.Weekly) > 0 {
		fmt.Fprintln(out, "\nReportes por dia:")
		for _, p := range dash.Weekly {
			fmt.Fprintf(out, "  %-10s %d\n", p.Dia, p.Total)
		}
	}
	return nil
}

func (d *dashboardClient) exportar(cmd *cobra.Command, args []string) error {
	f, err := os.Create(d.salida)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := newGateway(d.serverURL).ExportReports(cmd.Context(), f); err != nil {
		return fmt.Errorf("no se pudo exportar: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exportacion guardada en %s\n", d.salida)
	return nil
}
