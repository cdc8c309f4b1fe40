package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/analyzer"
	"github.com/spigell/resume-analyzer/internal/jobpost"
	"github.com/spigell/resume-analyzer/internal/logger"
	"github.com/spigell/resume-analyzer/internal/prompts"
	"github.com/spigell/resume-analyzer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default :8080)")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	l, config := bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, config.AI, l)
	if err != nil {
		l.Fatal("creating the model client", zap.Error(err))
	}

	catalog := prompts.MustLoad()
	pipeline := *config.Pipeline
	factory := func(id string) (*analyzer.Session, error) {
		return analyzer.NewSession(pipeline, generator, catalog, logger.WithSession(l, id))
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(*config.Server, factory, jobpost.New(l), l)
	if err := srv.Run(ctx); err != nil {
		l.Fatal("serving http api", zap.Error(err))
	}
}
