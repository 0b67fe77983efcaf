package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reportagua/internal/client/gateway"
	"reportagua/internal/client/session"
)

type authClient struct {
	serverURL *string
}

func newAuthCmd(serverURL *string) *cobra.Command {
	a := &authClient{serverURL: serverURL}
	cmd := &cobra.Command{Use: "auth", Short: "Autenticacion"}
	cmd.AddCommand(&cobra.Command{Use: "login", Short: "Iniciar sesion y guardar tokens", RunE: a.login})
	cmd.AddCommand(&cobra.Command{Use: "registro", Short: "Registrar un usuario nuevo", RunE: a.register})
	cmd.AddCommand(&cobra.Command{Use: "logout", Short: "Cerrar sesion y borrar tokens", RunE: a.logout})
	return cmd
}

func (a *authClient) login(cmd *cobra.Command, args []string) error {
	store := session.NewFileStore()
	// entering the login surface drops any stale session first
	_ = store.Clear()

	username, err := promptLine(cmd, "Usuario: ")
	if err != nil {
		return err
	}
	password, err := promptPassword(cmd, "Contrasena: ")
	if err != nil {
		return err
	}
	gw := gateway.New(*a.serverURL, store)
	if _, err := gw.Login(cmd.Context(), username, string(password)); err != nil {
		return fmt.Errorf("no se pudo iniciar sesion: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Sesion iniciada")
	return nil
}

func (a *authClient) register(cmd *cobra.Command, args []string) error {
	username, err := promptLine(cmd, "Usuario: ")
	if err != nil {
		return err
	}
	email, err := promptLine(cmd, "Correo: ")
	if err != nil {
		return err
	}
	password, err := promptPassword(cmd, "Contrasena: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(cmd, "Confirmar contrasena: ")
	if err != nil {
		return err
	}
	gw := newGateway(a.serverURL)
	err = gw.Register(cmd.Context(), gateway.RegisterRequest{
		Username:   username,
		Email:      email,
		Password:   string(password),
		RePassword: string(confirm),
	})
	if err != nil {
		var ve *gateway.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("registro rechazado: %s", ve.Error())
		}
		return fmt.Errorf("no se pudo registrar: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Usuario registrado; ahora inicie sesion")
	return nil
}

func (a *authClient) logout(cmd *cobra.Command, args []string) error {
	if err := session.NewFileStore().Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Sesion cerrada")
	return nil
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	return pass, err
}
