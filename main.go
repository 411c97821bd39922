package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hydrateMeAPI/handlers"
	"hydrateMeAPI/internal/alarm"
	"hydrateMeAPI/internal/dateline"
	"hydrateMeAPI/internal/notification"
	"hydrateMeAPI/internal/persistence"
	"hydrateMeAPI/internal/types/reminder"
	"hydrateMeAPI/middleware"
	"hydrateMeAPI/services"
)

var (
	dbPool              *pgxpool.Pool
	location            *time.Location
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	if err := persistence.EnsureSchema(ctx, dbPool); err != nil {
		log.Fatal("Failed to ensure database schema:", err)
	}

	log.Println("Successfully connected to database")

	location = time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatal("Failed to load TIMEZONE:", err)
		}
		location = loc
	}

	notificationService = services.NewNotificationService()

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
	services.InitStoreMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	dayStore := persistence.NewPostgresDayStore(dbPool)
	prefStore := persistence.NewPostgresPreferenceStore(dbPool)

	// The alarm callback closes over the store pointer so firing alarms can
	// hand off to the dispatch queue. The store is built right after.
	var appStore *services.AppStore
	alarms := alarm.NewClockScheduler(func(at reminder.TimeOfDay) {
		if appStore != nil {
			appStore.Dispatch(services.ShowReminderNotification{})
		}
	})

	scheduler := services.NewReminderScheduler(alarms, prefStore, location)
	aggregation := services.NewAggregationService(dayStore)

	rollover := dateline.New(location)
	rollover.Start()

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := services.NewAppStore(startCtx, services.AppStoreConfig{
		Days:       dayStore,
		Prefs:      prefStore,
		Scheduler:  scheduler,
		Aggregator: aggregation,
		Notifier:   notificationService,
		Alarms:     alarms,
		Rollover:   rollover.Changes(),
		Location:   location,
	})
	startCancel()
	if err != nil {
		log.Fatal("Failed to load initial state:", err)
	}
	appStore = store
	store.Start()

	// Reinstall persisted alarms, mirroring a fresh boot.
	store.Dispatch(services.RestartReminder{})

	hydrationHandler := handlers.NewHydrationHandler(store)
	stateHandler := handlers.NewStateHandler(store, aggregation, location)
	reminderHandler := handlers.NewReminderHandler(store)
	environmentHandler := handlers.NewEnvironmentHandler(store)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "hydrateMe-api"}`))
	}).Methods("GET")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/state", stateHandler.GetState).Methods("GET")
	protected.HandleFunc("/state/stream", stateHandler.StreamState).Methods("GET")
	protected.HandleFunc("/chart", stateHandler.GetChart).Methods("GET")

	protected.HandleFunc("/hydration", hydrationHandler.AddHydration).Methods("POST")
	protected.HandleFunc("/hydration", hydrationHandler.RemoveHydration).Methods("DELETE")
	protected.HandleFunc("/hydration/goal", hydrationHandler.SetDailyGoal).Methods("PUT")
	protected.HandleFunc("/hydration/today", hydrationHandler.ResetToday).Methods("DELETE")
	protected.HandleFunc("/hydration/all", hydrationHandler.DeleteAll).Methods("DELETE")

	protected.HandleFunc("/preferences/theme", hydrationHandler.SetTheme).Methods("PUT")
	protected.HandleFunc("/preferences/unit", hydrationHandler.SetLiquidUnit).Methods("PUT")
	protected.HandleFunc("/preferences/cups", hydrationHandler.SetSelectedCups).Methods("PUT")
	protected.HandleFunc("/preferences/profile", hydrationHandler.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/reminder", reminderHandler.SetReminder).Methods("PUT")
	protected.HandleFunc("/reminder", reminderHandler.DisableReminder).Methods("DELETE")
	protected.HandleFunc("/reminder/restart", reminderHandler.RestartReminder).Methods("POST")
	protected.HandleFunc("/reminder/show", reminderHandler.ShowReminder).Methods("POST")

	protected.HandleFunc("/environment/temperature", environmentHandler.SetTemperature).Methods("PUT")
	protected.HandleFunc("/environment/steps", environmentHandler.SetStepCount).Methods("PUT")
	protected.HandleFunc("/environment/foreground", environmentHandler.SetForeground).Methods("PUT")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // the state stream holds connections open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	store.Stop()
	rollover.Stop()
	alarms.Stop()
	notificationService.Stop()

	log.Println("Server shutdown complete")
}
