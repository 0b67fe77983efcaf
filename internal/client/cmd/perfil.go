package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type perfilClient struct {
	serverURL *string

	nombre   string
	colonia  string
	telefono string
}

func newPerfilCmd(serverURL *string) *cobra.Command {
	p := &perfilClient{serverURL: serverURL}
	cmd := &cobra.Command{Use: "perfil", Short: "Perfil del usuario", RunE: p.ver}

	actualizar := &cobra.Command{Use: "actualizar", Short: "Actualizar campos del perfil", RunE: p.actualizar}
	actualizar.Flags().StringVar(&p.nombre, "nombre", "", "Nombre completo")
	actualizar.Flags().StringVar(&p.colonia, "colonia", "", "Colonia")
	actualizar.Flags().StringVar(&p.telefono, "telefono", "", "Telefono")
	cmd.AddCommand(actualizar)
	return cmd
}

func (p *perfilClient) ver(cmd *cobra.Command, args []string) error {
	profile, err := newGateway(p.serverURL).Profile(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Usuario: %s\nCorreo: %s\n", profile.Username, profile.Email)
	if profile.FullName != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Nombre: %s\n", profile.FullName)
	}
	if profile.Colonia != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Colonia: %s\n", profile.Colonia)
	}
	if profile.Telefono != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Telefono: %s\n", profile.Telefono)
	}
	return nil
}

func (p *perfilClient) actualizar(cmd *cobra.Command, args []string) error {
	fields := map[string]string{}
	if cmd.Flags().Changed("nombre") {
		fields["nombre_completo"] = p.nombre
	}
	if cmd.Flags().Changed("colonia") {
		fields["colonia"] = p.colonia
	}
	if cmd.Flags().Changed("telefono") {
		fields["telefono"] = p.telefono
	}
	if len(fields) == 0 {
		return fmt.Errorf("nada que actualizar; use --nombre, --colonia o --telefono")
	}
	if _, err := newGateway(p.serverURL).UpdateProfile(cmd.Context(), fields); err != nil {
		return fmt.Errorf("no se pudo actualizar el perfil: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Perfil actualizado")
	return nil
}
