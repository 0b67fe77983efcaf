package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"reportagua/internal/client/config"
	"reportagua/internal/client/gateway"
	"reportagua/internal/client/session"
)

func NewRootCmd(version, buildDate string) *cobra.Command {
	cfg := config.Load()
	var serverURL string
	root := &cobra.Command{
		Use:   "reportagua",
		Short: "Cliente de la Ventanilla Unica del Agua",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", cfg.ServerURL, "URL base del backend")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newAuthCmd(&serverURL))
	root.AddCommand(newPerfilCmd(&serverURL))
	root.AddCommand(newReportesCmd(&serverURL))
	root.AddCommand(newPipasCmd(&serverURL))
	root.AddCommand(newNoticiasCmd(&serverURL))
	root.AddCommand(newDashboardCmd(&serverURL))
	return root
}

func newGateway(serverURL *string) *gateway.Client {
	return gateway.New(*serverURL, session.NewFileStore())
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}
