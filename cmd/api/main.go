package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/agent-builder/travel-planner/internal/auth"
	"github.com/bizmatters/agent-builder/travel-planner/internal/chat"
	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
	"github.com/bizmatters/agent-builder/travel-planner/internal/gateway"
	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/metrics"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/orchestration"
	"github.com/bizmatters/agent-builder/travel-planner/internal/planner"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"

	_ "github.com/bizmatters/agent-builder/travel-planner/docs" // swagger docs
)

// @title Travel Planner API
// @version 1.0
// @description Plans trips with a plan, research, draft and validate loop, then answers follow-up questions about the accepted itinerary.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// store is what the service and the login handler need from persistence.
type store interface {
	orchestration.RunStore
	orchestration.UserStore
}

func main() {
	// Initialize OpenTelemetry
	if err := initTracer(); err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var (
		st    store
		ready func(ctx context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pool := connectDatabase(cfg.DatabaseURL)
		defer pool.Close()
		pg := orchestration.NewPostgresStore(pool)
		st, ready = pg, pg.Ping
	} else {
		log.Println("DATABASE_URL not set, keeping runs and users in memory")
		mem := orchestration.NewMemoryStore()
		if err := seedDevUser(context.Background(), mem, cfg.DevUserEmail, cfg.DevUserPassword); err != nil {
			log.Fatalf("Failed to seed development user: %v", err)
		}
		st, ready = mem, func(context.Context) error { return nil }
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	gen, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize language model: %v", err)
	}
	tool, err := search.New(cfg.Search)
	if err != nil {
		log.Fatalf("Failed to initialize search tool: %v", err)
	}
	planMetrics, err := metrics.NewPlanMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize orchestration layer
	service := orchestration.NewService(orchestration.Options{
		Planner:    planner.New(gen, tool, cfg),
		Assistant:  chat.NewAssistant(gen, tool, cfg.LLM.ChatTemperature, cfg.Session.HistoryLimit),
		Suggester:  planner.NewSuggester(gen, cfg.LLM.Temperature),
		Store:      st,
		Metrics:    planMetrics,
		Provider:   cfg.LLM.Provider,
		SessionTTL: cfg.Session.TTL,
	})

	// Initialize gateway layer
	gatewayHandler := gateway.NewHandler(service, st, jwtManager)
	planStream := gateway.NewPlanStream(service, jwtManager)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// Add structured JSON logging middleware
	router.Use(structuredLoggingMiddleware())

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "database connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	gateway.RegisterRoutes(router, gatewayHandler, planStream, jwtManager)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting travel planner API on port %s (llm=%s, search=%s)\n", cfg.Port, cfg.LLM.Provider, cfg.Search.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// In-flight runs are cancelled and recorded as failed.
	if err := service.Shutdown(ctx); err != nil {
		log.Printf("Planning runs did not finish cleanly: %v", err)
	}

	log.Println("Server exited")
}

// connectDatabase connects to PostgreSQL with retry logic.
func connectDatabase(dbURL string) *pgxpool.Pool {
	log.Println("Connecting to PostgreSQL database...")
	var pool *pgxpool.Pool
	var err error

	for i := 0; i < 10; i++ {
		pool, err = pgxpool.New(context.Background(), dbURL)
		if err == nil {
			err = pool.Ping(context.Background())
			if err == nil {
				break
			}
			pool.Close()
		}
		log.Printf("Waiting for database... (attempt %d/10): %v", i+1, err)
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}

	log.Println("Connected to PostgreSQL database")
	return pool
}

func seedDevUser(ctx context.Context, users orchestration.UserStore, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Name: "Developer", Email: email, HashedPassword: string(hashed)}
	if err := users.CreateUser(ctx, user); err != nil {
		return err
	}
	log.Printf(`{"level":"info","message":"Seeded development user","email":"%s"}`, user.Email)
	return nil
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		userID, _ := c.Get(auth.ContextUserID)

		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		if userID != nil {
			logEntry["user_id"] = userID
		}

		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
