package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/yishak-cs/FlavorAI/internal/database"
	"github.com/yishak-cs/FlavorAI/internal/extract"
	"github.com/yishak-cs/FlavorAI/internal/handlers"
	"github.com/yishak-cs/FlavorAI/internal/metrics"
	"github.com/yishak-cs/FlavorAI/internal/observability"
	"github.com/yishak-cs/FlavorAI/internal/services"
	"github.com/yishak-cs/FlavorAI/pkg/helper"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	env, level := helper.LogSettingsFromEnv()
	observability.InitLogger("flavorai", env, level)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Error loading .env file")
	}

	config := helper.LoadConfigFromEnv()

	// Initialize Neo4j client
	neo4jClient, err := database.NewNeo4jClient(config.Neo4j)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Neo4j")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := neo4jClient.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Error closing Neo4j connection")
		}
	}()

	// Import the venue catalogue
	if config.ImportOnStart && config.VenueDataURL != "" {
		importer := database.NewVenueImporter(neo4jClient)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := importer.ImportAllData(ctx, config.VenueDataURL); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Venue import failed")
		}
		status, err := importer.GetImportStatus(ctx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get import status")
		}
		log.Info().Interface("status", status).Msg("Venue catalogue ready")
	}

	// Initialize metrics
	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	// Initialize stores
	profileStore := database.NewProfileStore(neo4jClient)
	cachedProfiles, err := database.NewCachedProfileStore(profileStore, config.ProfileCacheSize, pipelineMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create profile cache")
	}
	venueStore := database.NewVenueStore(neo4jClient)

	// Initialize services
	opts, err := serviceOptions(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pipeline configuration")
	}
	tasteService, err := services.NewTasteService(cachedProfiles, venueStore, profileStore, opts, pipelineMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create taste service")
	}

	// Initialize API handlers
	apiHandler := handlers.NewAPIHandler(tasteService, neo4jClient, config.MaxArchiveBytes)

	// Setup Gin router
	if config.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = 32 << 20

	// Add CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Setup API routes
	apiHandler.SetupRoutes(router)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", config.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Gracefully shutdown with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited properly")
}

// serviceOptions applies the optional lexicon file and meal timezone to the defaults
func serviceOptions(config helper.AppConfig) (services.Options, error) {
	opts := services.DefaultOptions()
	opts.MaxEntryBytes = config.MaxEntryBytes
	opts.CandidatePoolSize = config.CandidatePoolSize

	if config.LexiconFile != "" {
		f, err := os.Open(config.LexiconFile)
		if err != nil {
			return services.Options{}, fmt.Errorf("failed to open lexicon file: %w", err)
		}
		defer f.Close()
		cfg, err := extract.LoadConfigYAML(f, opts.Extract)
		if err != nil {
			return services.Options{}, err
		}
		opts.Extract = cfg
		log.Info().Str("file", config.LexiconFile).Msg("Loaded lexicon")
	}

	if config.Timezone != "" {
		loc, err := time.LoadLocation(config.Timezone)
		if err != nil {
			return services.Options{}, fmt.Errorf("invalid MEAL_TIMEZONE: %w", err)
		}
		opts.Extract.Location = loc
	}
	return opts, nil
}
