// cmd/server/main.go
package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dicom-catalog/internal/catalog"
	"dicom-catalog/internal/config"
	"dicom-catalog/internal/database"
	"dicom-catalog/internal/handlers"
	"dicom-catalog/internal/middleware"
	"dicom-catalog/internal/storage"
	"dicom-catalog/pkg/dicom"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate models
	if err := database.MigrateDB(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize MinIO client", zap.Error(err))
	}

	extractor := dicom.NewExtractor(cfg.PythonExecutable, cfg.ExtractorScript, cfg.ExtractTimeout, cfg.MaxExtractOutput)
	svc := catalog.NewService(db, logger)

	// Initialize Gin router
	r := gin.Default()

	// CORS middleware
	r.Use(middleware.CORSMiddleware())

	// Public routes
	public := r.Group("/api")
	{
		public.POST("/register", handlers.Register(db))
		public.POST("/login", handlers.Login(db))
		public.POST("/logout", handlers.Logout)
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/profile", handlers.GetProfile(db))

		protected.POST("/upload", handlers.UploadDICOM(svc, extractor, minioClient, logger))
		protected.GET("/files/:stored", handlers.DownloadFile(svc, minioClient, logger))

		protected.GET("/patients", handlers.ListPatients(svc))
		protected.GET("/studies", handlers.ListStudies(svc))
		protected.GET("/series", handlers.ListSeries(svc))
		protected.GET("/modalities", handlers.ListModalities(svc))
		protected.GET("/files", handlers.ListFiles(svc))

		protected.POST("/patients", handlers.CreatePatient(svc))
		protected.POST("/studies", handlers.CreateStudy(svc))
		protected.POST("/modalities", handlers.CreateModality(svc))
		protected.POST("/series", handlers.CreateSeries(svc))
		protected.POST("/files", handlers.RecordFile(svc))

		protected.DELETE("/patients/:id", handlers.DeleteEntity(svc.DeletePatient))
		protected.DELETE("/studies/:id", handlers.DeleteEntity(svc.DeleteStudy))
		protected.DELETE("/series/:id", handlers.DeleteEntity(svc.DeleteSeries))
		protected.DELETE("/modalities/:id", handlers.DeleteEntity(svc.DeleteModality))
	}

	logger.Info("Server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
