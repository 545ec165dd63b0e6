package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/careerforge/careerforge/app/repository"
	"github.com/careerforge/careerforge/internal/pkg/cache"
	"github.com/careerforge/careerforge/internal/pkg/database"
	"github.com/careerforge/careerforge/internal/pkg/env"
	"github.com/careerforge/careerforge/internal/pkg/generation"
	"github.com/careerforge/careerforge/internal/pkg/jobqueue"
	"github.com/careerforge/careerforge/internal/pkg/ledger"
	metrics "github.com/careerforge/careerforge/internal/pkg/metrics/counter"
	"github.com/careerforge/careerforge/internal/pkg/notify"
	"github.com/careerforge/careerforge/internal/pkg/payment"
	"github.com/careerforge/careerforge/internal/pkg/provider"
	"github.com/careerforge/careerforge/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Graceful shutdown: stop accepting requests, then drain the job queue
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		if mgr := jobqueue.GetManager(); mgr != nil {
			mgr.Stop()
		}
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	orchestrator := generation.NewOrchestrator(
		repository.GetGlobalRepositories(),
		ledger.New(db),
		provider.NewRouterFromEnv(),
		notify.GetGlobalBus(),
		metrics.NewRecorder(),
		generation.CostsFromEnv(),
	)
	paymentSvc := payment.NewServiceFromDB(
		db,
		ledger.New(db),
		payment.NewRazorpayClientFromEnv(),
		env.GetEnv("RAZORPAY_WEBHOOK_SECRET", ""),
	)
	jobqueue.Initialize(orchestrator, paymentSvc).Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, JSON API only
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
