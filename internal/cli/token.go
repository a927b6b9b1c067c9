package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"memviz/internal/config"
	"memviz/internal/middleware"
	"memviz/internal/services"
)

var viewerName string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a viewer token for the /ws endpoint",
	Long: `Viewer tokens are only minted here, never over HTTP. The server and ` +
		`this command share the jwt_secret setting, or the key persisted in ` +
		`the home directory when it is unset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		configureLogger(cfg)

		if !middleware.NewInputValidator().ValidateViewerName(viewerName) {
			return errors.Errorf("invalid viewer name %q", viewerName)
		}

		auth := services.NewAuthService(cfg.JWTSecret, cfg.TokenExpiry)
		token, err := auth.GenerateToken(viewerName)
		if err != nil {
			return err
		}
		middleware.NewSecurityLogger().LogTokenGenerated(viewerName)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "token:   %s\n", token)
		fmt.Fprintf(out, "expires: %s\n", auth.TokenExpiry().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "url:     ws://%s/ws?token=%s\n", cfg.ListenAddress, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&viewerName, "viewer", "viewer", "name embedded in the token")
	tokenCmd.Flags().Duration("token-expiry", config.Default().TokenExpiry, "how long the token stays valid")
	rootCmd.AddCommand(tokenCmd)
}
