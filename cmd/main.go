package main

import (
	"log"

	"route-tracker/internal/config"
	"route-tracker/internal/handlers"
	"route-tracker/internal/location"
	"route-tracker/internal/repository"
	"route-tracker/internal/services"
	"route-tracker/internal/storage"
	"route-tracker/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := InitConfig()
	store := InitRouteStore(cfg)
	minioClient := InitMinIOClient(cfg)

	metrics := utils.NewMetrics()
	media := services.NewMinioMediaStore(minioClient, cfg.MinioBucket)
	mapView := services.NewRedisMapView(cfg.RedisAddr)

	perms := devicePermissions{}
	feed := location.NewFeedSource(perms)
	sampleOpts := location.Options{
		MinInterval: cfg.SampleMinInterval,
		MinDistance: cfg.SampleMinDistance,
	}

	catalog := services.NewRouteCatalog(store)
	controller := services.NewSessionController(feed, perms, store, mapView, metrics, sampleOpts)
	export := services.NewExportService(cfg.DataDir)

	if err := catalog.Refresh(); err != nil {
		log.Printf("Initial catalog refresh failed: %v", err)
	}

	app := fiber.New()

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	sessionHandler := handlers.NewSessionHandler(controller, media, catalog)
	routeHandler := handlers.NewRouteHandler(store, catalog, controller, export)
	locationHandler := handlers.NewLocationHandler(feed, metrics)

	api := app.Group("/api/tracker")
	api.Post("/location", locationHandler.ReportFix)

	api.Post("/session/start", sessionHandler.StartSession)
	api.Post("/session/stop", sessionHandler.StopSession)
	api.Post("/session/save", sessionHandler.SaveSession)
	api.Post("/session/discard", sessionHandler.DiscardSession)
	api.Post("/session/points", sessionHandler.AddCharacteristicPoint)
	api.Get("/session", sessionHandler.LiveSession)

	// /routes/export must be registered before the :id routes
	api.Get("/routes/export", routeHandler.ExportRoutes)
	api.Get("/routes", routeHandler.ListRoutes)
	api.Get("/routes/:id", routeHandler.GetRoute)
	api.Post("/routes/:id/open", routeHandler.OpenRoute)
	api.Put("/routes/:id", routeHandler.RenameRoute)
	api.Delete("/routes/:id", routeHandler.DeleteRoute)

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Add Health check endpoint
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	port := cfg.AppPort
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}
	log.Printf("Server listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func InitRouteStore(cfg *config.Config) *repository.FileRouteStore {
	store, err := repository.NewFileRouteStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Route store initialization failed: %v", err)
	}
	return store
}

func InitMinIOClient(cfg *config.Config) *minio.Client {
	minioClient, err := storage.NewMinioClient(cfg)
	if err != nil {
		log.Fatalf("MinIO client initialization failed: %v", err)
	}
	return minioClient
}

// devicePermissions reflects the deployment model: the mobile client
// completes the platform permission prompts before it starts feeding fixes,
// so the service side treats them as granted.
type devicePermissions struct{}

func (devicePermissions) RequestForegroundLocation() bool { return true }
func (devicePermissions) RequestBackgroundLocation() bool { return true }
func (devicePermissions) RequestCamera() bool             { return true }
