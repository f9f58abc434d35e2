package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jsoncache/core/loader"
	"jsoncache/core/logger"
	"jsoncache/core/middleware/auth"
	"jsoncache/core/middleware/rayid"
	cachesync "jsoncache/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "jsoncache/docs/swagger"
)

// @title JSON Cache API
// @version 1.0
// @description API for staging, merging and reading back JSON dictionaries.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cache server",
	Long:  `Bootstraps the store from the model and serves the cache API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(context.Background(), true)
		if err != nil {
			return err
		}
		defer a.close()
		zap.ReplaceGlobals(a.logger)
		logg := a.logger

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager()
		mgr.Register(cachesync.NewFeature(a.service, logg))

		// RayID first so every log line can be traced.
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		go func() {
			logg.Info("Starting server", zap.String("address", a.cfg.Server.Address()))
			if err := app.Listen(a.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
