package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/converter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report upload API",
	Long: `Run the HTTP API used by the upload front-end. The listen address is
server.listen_addr (or QBOCONV_LISTEN_ADDR). The server stops gracefully on
SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(mainConfig, converter.New(mainConfig, log), log)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
