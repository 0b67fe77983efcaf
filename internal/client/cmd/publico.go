package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPipasCmd(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pipas",
		Short: "Catalogo de pipas (unidades despachables)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipas, err := newGateway(serverURL).Resources(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMERO\tCHOFER\tESTADO")
			for _, p := range pipas {
				chofer := p.Chofer
				if chofer == "" {
					chofer = "sin chofer"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.NumeroEconomico, chofer, p.Estado)
			}
			return w.Flush()
		},
	}
}

func newNoticiasCmd(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "noticias",
		Short: "Avisos publicos",
		RunE: func(cmd *cobra.Command, args []string) error {
			noticias, err := newGateway(serverURL).Noticias(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range noticias {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n%s\n\n",
					n.FechaPublicacion.Format("2006-01-02"), n.Titulo, n.Contenido)
			}
			return nil
		},
	}
}
