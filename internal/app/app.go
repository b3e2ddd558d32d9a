package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"
	"github.com/redis/go-redis/v9"

	"github.com/wholesail/wholesail/config"
	"github.com/wholesail/wholesail/internal/database"
	"github.com/wholesail/wholesail/internal/domain"
	httpHandler "github.com/wholesail/wholesail/internal/http"
	"github.com/wholesail/wholesail/internal/http/middleware"
	"github.com/wholesail/wholesail/internal/migrations"
	"github.com/wholesail/wholesail/internal/repository"
	"github.com/wholesail/wholesail/internal/service"
	"github.com/wholesail/wholesail/pkg/cache"
	"github.com/wholesail/wholesail/pkg/emailblocks"
	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/mailer"
	"github.com/wholesail/wholesail/pkg/ratelimiter"
	"github.com/wholesail/wholesail/pkg/storage"
	"github.com/wholesail/wholesail/pkg/tracing"
	"github.com/wholesail/wholesail/pkg/webhook"
)

// Rate limiter namespaces
const (
	limitSubscribe = "subscribe"
	limitInquiry   = "inquiry"
	limitLogin     = "login"
)

const defaultDraftTTL = 12 * time.Hour

// AppInterface defines the interface for the App
type AppInterface interface {
	Initialize() error
	Start() error
	Shutdown(ctx context.Context) error

	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetMux() *http.ServeMux
	GetDB() *sql.DB
	GetSender() mailer.Sender

	IsServerCreated() bool
	WaitForServerStart(ctx context.Context) bool

	InitDB() error
	InitDraftStore() error
	InitStorage() error
	InitMailer() error
	InitTracing() error
	InitRepositories() error
	InitServices() error
	InitHandlers() error

	// Graceful shutdown methods
	SetShutdownTimeout(timeout time.Duration)
	GetActiveRequestCount() int64
	GetShutdownContext() context.Context
}

// App encapsulates the application dependencies and configuration
type App struct {
	config      *config.Config
	logger      logger.Logger
	db          *sql.DB
	redis       redis.UniversalClient
	sender      mailer.Sender
	storage     storage.Storage
	cache       *cache.InMemoryCache
	limiter     *ratelimiter.RateLimiter
	tracing     *tracing.Provider
	stopDBStats func()

	// Repositories
	productRepo    domain.ProductRepository
	categoryRepo   domain.CategoryRepository
	subscriberRepo domain.SubscriberRepository
	inquiryRepo    domain.InquiryRepository
	templateRepo   domain.TemplateRepository
	campaignRepo   domain.CampaignRepository
	draftStore     domain.DraftStore

	// Services
	authService       *service.AuthService
	catalogService    *service.CatalogService
	subscriberService *service.SubscriberService
	inquiryService    *service.InquiryService
	templateService   *service.TemplateService
	draftService      *service.DraftService
	campaignService   *service.CampaignService
	mediaService      *service.MediaService

	// HTTP handlers
	mux    *http.ServeMux
	server *http.Server

	// Server synchronization
	serverMu      sync.RWMutex
	serverStarted chan struct{}

	// Graceful shutdown management
	shutdownCtx     context.Context
	shutdownCancel  context.CancelFunc
	activeRequests  int64          // atomic counter for active HTTP requests
	requestWg       sync.WaitGroup // wait group for active requests
	shutdownTimeout time.Duration
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use a mock database
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithMockSender configures the app to use a mock email sender
func WithMockSender(s mailer.Sender) AppOption {
	return func(a *App) {
		a.sender = s
	}
}

// WithStorage replaces the configured object store
func WithStorage(s storage.Storage) AppOption {
	return func(a *App) {
		a.storage = s
	}
}

// WithRedis uses an existing Redis client for the draft store
func WithRedis(client redis.UniversalClient) AppOption {
	return func(a *App) {
		a.redis = client
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logger.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) AppInterface {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	app := &App{
		config:          cfg,
		logger:          logger.NewLoggerWithLevel(cfg.LogLevel),
		mux:             http.NewServeMux(),
		serverStarted:   make(chan struct{}),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
		shutdownTimeout: shutdownTimeout,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing registers the OpenCensus exporters
func (a *App) InitTracing() error {
	provider, err := tracing.Init(&a.config.Tracing, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracing = provider
	return nil
}

// InitDB connects to Postgres and creates the schema
func (a *App) InitDB() error {
	if a.db != nil {
		return nil
	}

	password := a.config.Database.Password
	maskedPassword := ""
	if len(password) > 0 {
		maskedPassword = fmt.Sprintf("%c...%c", password[0], password[len(password)-1])
	}
	a.logger.Info(fmt.Sprintf("Connecting to database %s:%d, user %s, sslmode %s, password: %s, dbname: %s",
		a.config.Database.Host, a.config.Database.Port, a.config.Database.User,
		a.config.Database.SSLMode, maskedPassword, a.config.Database.DBName))

	if err := database.EnsureDatabaseExists(&a.config.Database); err != nil {
		a.logger.Error(err.Error())
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	db, err := database.Connect(&a.config.Database, a.config.Tracing.Enabled)
	if err != nil {
		return err
	}

	if err := database.InitializeDatabase(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if err := migrations.NewManager(a.logger).RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if a.config.Tracing.Enabled {
		a.stopDBStats = ocsql.RecordStats(db, 10*time.Second)
		a.logger.Info("Database driver wrapped with OpenCensus tracing")
	}

	a.db = db
	return nil
}

// InitDraftStore selects Redis when an address is configured and the
// in-process cache otherwise.
func (a *App) InitDraftStore() error {
	if a.cache == nil {
		a.cache = cache.NewInMemoryCache(time.Minute)
	}

	ttl := a.config.Redis.DraftTTL
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}

	if a.redis == nil && a.config.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     a.config.Redis.Addr,
			Password: a.config.Redis.Password,
			DB:       a.config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", a.config.Redis.Addr, err)
		}
		a.redis = client
	}

	if a.redis != nil {
		a.draftStore = repository.NewRedisDraftStore(a.redis, ttl)
		a.logger.WithField("ttl", ttl.String()).Info("Using Redis draft store")
		return nil
	}

	if a.config.IsProduction() {
		a.logger.Warn("REDIS_ADDR is not set, drafts are kept in process memory and lost on restart")
	}
	a.draftStore = repository.NewMemoryDraftStore(a.cache, ttl)
	return nil
}

// InitStorage connects the media object store
func (a *App) InitStorage() error {
	if a.storage != nil {
		return nil
	}

	cfg := a.config.Storage
	if cfg.Bucket == "" {
		baseURL := strings.TrimRight(a.config.SiteURL, "/") + "/media"
		a.storage = storage.NewMemoryStorage(baseURL)
		a.logger.Warn("STORAGE_BUCKET is not set, uploaded media is kept in process memory")
		return nil
	}

	s3Storage, err := storage.NewS3Storage(storage.S3Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		PublicBaseURL:  cfg.PublicURL,
		ForcePathStyle: cfg.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	a.storage = s3Storage
	a.logger.WithField("bucket", cfg.Bucket).Info("Using S3 media storage")
	return nil
}

// InitMailer builds the configured email sender
func (a *App) InitMailer() error {
	// Skip if sender already set (e.g., by mock)
	if a.sender != nil {
		return nil
	}

	cfg := a.config.Email
	sender, err := mailer.New(mailer.Config{
		Provider:             cfg.Provider,
		Timeout:              cfg.Timeout,
		SMTPHost:             cfg.SMTPHost,
		SMTPPort:             cfg.SMTPPort,
		SMTPUsername:         cfg.SMTPUsername,
		SMTPPassword:         cfg.SMTPPassword,
		SMTPTLSPolicy:        cfg.SMTPTLSPolicy,
		SESRegion:            cfg.SESRegion,
		SESAccessKey:         cfg.SESAccessKey,
		SESSecretKey:         cfg.SESSecretKey,
		PostmarkServerToken:  cfg.PostmarkServerToken,
		PostmarkAccountToken: cfg.PostmarkAccountToken,
		ResendAPIKey:         cfg.ResendAPIKey,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	a.sender = sender
	a.logger.WithField("provider", cfg.Provider).Info("Email sender initialized")
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.productRepo = repository.NewProductRepository(a.db)
	a.categoryRepo = repository.NewCategoryRepository(a.db)
	a.subscriberRepo = repository.NewSubscriberRepository(a.db)
	a.inquiryRepo = repository.NewInquiryRepository(a.db)
	a.templateRepo = repository.NewTemplateRepository(a.db)
	a.campaignRepo = repository.NewCampaignRepository(a.db)

	return nil
}

// InitServices initializes all services
func (a *App) InitServices() error {
	if a.draftStore == nil {
		return fmt.Errorf("draft store must be initialized before services")
	}
	if a.cache == nil {
		a.cache = cache.NewInMemoryCache(time.Minute)
	}

	signer := service.NewUnsubscribeSigner(a.config.Security.SecretKey, a.config.SiteURL)

	renderer := emailblocks.NewRenderer(emailblocks.Brand{
		Name:           a.config.Brand.Name,
		Tagline:        a.config.Brand.Tagline,
		Year:           a.config.Brand.CopyrightYear,
		SiteURL:        a.config.SiteURL,
		UnsubscribeURL: emailblocks.DefaultUnsubscribeTag,
		AccentColor:    a.config.Brand.AccentColor,
	}, emailblocks.WithLogger(a.logger))

	var notifier domain.EventNotifier
	if a.config.Inquiry.WebhookURL != "" {
		n, err := webhook.NewNotifier(a.config.Inquiry.WebhookURL, a.config.Inquiry.WebhookSecret, nil, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize inquiry webhook: %w", err)
		}
		notifier = n
	}

	a.authService = service.NewAuthService(service.AuthConfig{
		SecretKey:         a.config.Security.SecretKey,
		AdminEmail:        a.config.Security.AdminEmail,
		AdminPasswordHash: a.config.Security.AdminPasswordHash,
		SessionTTL:        a.config.Security.SessionTTL,
	}, a.logger)

	a.catalogService = service.NewCatalogService(a.productRepo, a.categoryRepo, a.cache, a.logger)
	a.subscriberService = service.NewSubscriberService(a.subscriberRepo, signer, a.config.Unsubscribe.RequireSignature, a.logger)
	a.inquiryService = service.NewInquiryService(a.inquiryRepo, notifier, a.logger)
	a.templateService = service.NewTemplateService(a.templateRepo, renderer, a.logger)
	a.draftService = service.NewDraftService(a.draftStore, a.templateRepo, a.logger)
	a.campaignService = service.NewCampaignService(
		a.draftStore,
		a.campaignRepo,
		a.subscriberRepo,
		a.sender,
		renderer,
		signer,
		service.CampaignConfig{
			FromEmail:   a.config.Email.FromEmail,
			FromName:    a.config.Email.FromName,
			Provider:    a.config.Email.Provider,
			Concurrency: a.config.Email.SendConcurrency,
			SendTimeout: a.config.Email.Timeout,
		},
		a.logger,
	)
	a.mediaService = service.NewMediaService(a.storage, a.config.Storage.MaxUploadBytes, a.logger)

	return nil
}

// InitHandlers mounts every route on a fresh mux
func (a *App) InitHandlers() error {
	// Create a new ServeMux to avoid route conflicts on restart
	a.mux = http.NewServeMux()

	if a.limiter != nil {
		a.limiter.Stop()
	}
	a.limiter = ratelimiter.NewRateLimiter()
	a.limiter.SetPolicy(limitSubscribe, a.config.RateLimit.Subscribe, time.Minute)
	a.limiter.SetPolicy(limitInquiry, a.config.RateLimit.Inquiry, time.Minute)
	a.limiter.SetPolicy(limitLogin, a.config.RateLimit.Login, time.Minute)

	proxies, err := middleware.ParseTrustedProxies(a.config.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}

	secureCookie := a.config.Server.SSL.Enabled || strings.HasPrefix(a.config.SiteURL, "https://")
	session := middleware.NewSessionMiddleware(a.authService, "/login", secureCookie, a.logger)
	requireAdmin := session.RequireAdmin

	httpHandler.NewAuthHandler(a.authService, a.draftService, secureCookie, a.logger).
		RegisterRoutes(a.mux, middleware.RateLimit(a.limiter, limitLogin, proxies, a.logger))
	httpHandler.NewCatalogHandler(a.catalogService, a.logger).
		RegisterRoutes(a.mux, requireAdmin)
	httpHandler.NewSubscriberHandler(a.subscriberService, a.logger).
		RegisterRoutes(a.mux, requireAdmin, middleware.RateLimit(a.limiter, limitSubscribe, proxies, a.logger))
	httpHandler.NewInquiryHandler(a.inquiryService, a.logger).
		RegisterRoutes(a.mux, requireAdmin, middleware.RateLimit(a.limiter, limitInquiry, proxies, a.logger))
	httpHandler.NewTemplateHandler(a.templateService, a.logger).
		RegisterRoutes(a.mux, requireAdmin)
	httpHandler.NewCampaignHandler(a.campaignService, a.draftService, a.logger).
		RegisterRoutes(a.mux, requireAdmin)
	httpHandler.NewMediaHandler(a.mediaService, a.config.Storage.MaxUploadBytes, a.logger).
		RegisterRoutes(a.mux, requireAdmin)

	a.mux.HandleFunc("/healthz", a.handleHealth)
	if a.tracing != nil {
		if metrics := a.tracing.MetricsHandler(); metrics != nil {
			a.mux.Handle("/metrics", metrics)
		}
	}

	return nil
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			a.logger.WithField("error", err.Error()).Error("Health check failed")
			httpHandler.WriteJSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"data":{"status":"ok"},"error":null}`))
}

// Start starts the HTTP server
func (a *App) Start() error {
	var handler http.Handler = a.mux

	handler = middleware.Chain(handler, middleware.Recover(a.logger), a.gracefulShutdownMiddleware)

	if a.config.Tracing.Enabled {
		handler = middleware.TracingMiddleware(handler)
		a.logger.Info("OpenCensus tracing middleware enabled")
	}

	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.logger.WithField("address", addr).
		WithField("site_url", a.config.SiteURL).
		Info(fmt.Sprintf("Server starting on %s", addr))

	a.serverMu.Lock()
	if a.serverStarted != nil {
		select {
		case <-a.serverStarted:
		default:
			close(a.serverStarted)
		}
	}
	a.serverStarted = make(chan struct{})

	a.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverStarted := a.serverStarted
	a.serverMu.Unlock()

	close(serverStarted)

	if a.config.Server.SSL.Enabled {
		a.logger.WithField("cert_file", a.config.Server.SSL.CertFile).Info("SSL enabled")
		return a.server.ListenAndServeTLS(a.config.Server.SSL.CertFile, a.config.Server.SSL.KeyFile)
	}

	return a.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Starting graceful shutdown...")

	a.shutdownCancel()

	a.serverMu.RLock()
	server := a.server
	a.serverMu.RUnlock()

	if server == nil {
		a.logger.Info("No server to shutdown")
		return a.cleanupResources(ctx)
	}

	activeCount := a.getActiveRequestCount()
	a.logger.WithField("active_requests", activeCount).Info("Active requests at shutdown start")

	shutdownTimeout := a.shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < shutdownTimeout {
			shutdownTimeout = remaining - time.Second
			if shutdownTimeout < 0 {
				shutdownTimeout = 0
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	serverShutdownDone := make(chan error, 1)
	go func() {
		a.logger.WithField("timeout", shutdownTimeout.String()).Info("Starting HTTP server shutdown")
		serverShutdownDone <- server.Shutdown(shutdownCtx)
	}()

	requestsDone := make(chan struct{})
	go func() {
		defer close(requestsDone)

		done := make(chan struct{})
		go func() {
			a.requestWg.Wait()
			close(done)
		}()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				a.logger.Info("All requests completed")
				return
			case <-ticker.C:
				a.logger.WithField("active_requests", a.getActiveRequestCount()).Info("Still waiting for requests to complete...")
			case <-shutdownCtx.Done():
				a.logger.WithField("active_requests", a.getActiveRequestCount()).Warn("Shutdown timeout reached, forcing shutdown")
				return
			}
		}
	}()

	var shutdownErr error
	select {
	case err := <-serverShutdownDone:
		shutdownErr = err
		a.logger.Info("HTTP server shutdown completed")
	case <-shutdownCtx.Done():
		a.logger.Warn("Shutdown timeout reached")
		shutdownErr = fmt.Errorf("shutdown timeout exceeded")
	}

	if shutdownErr == nil {
		select {
		case <-requestsDone:
		case <-time.After(2 * time.Second):
			if activeCount := a.getActiveRequestCount(); activeCount > 0 {
				a.logger.WithField("active_requests", activeCount).Warn("Some requests still active, proceeding with shutdown")
			}
		}
	}

	if cleanupErr := a.cleanupResources(ctx); cleanupErr != nil {
		a.logger.WithField("error", cleanupErr.Error()).Error("Error during resource cleanup")
		if shutdownErr == nil {
			shutdownErr = cleanupErr
		}
	}

	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr.Error()).Error("Graceful shutdown completed with errors")
	} else {
		a.logger.Info("Graceful shutdown completed successfully")
	}

	return shutdownErr
}

// cleanupResources releases connections and background workers
func (a *App) cleanupResources(ctx context.Context) error {
	a.logger.Info("Cleaning up resources...")

	var firstErr error
	record := func(err error, msg string) {
		if err == nil {
			return
		}
		a.logger.WithField("error", err.Error()).Error(msg)
		if firstErr == nil {
			firstErr = err
		}
	}

	if a.limiter != nil {
		a.limiter.Stop()
		a.limiter = nil
	}
	if a.cache != nil {
		a.cache.Stop()
		a.cache = nil
	}
	if a.redis != nil {
		record(a.redis.Close(), "Error closing redis connection")
		a.redis = nil
	}
	if a.db != nil {
		if a.stopDBStats != nil {
			a.stopDBStats()
			a.stopDBStats = nil
		}
		a.logger.Info("Closing database connection")
		record(a.db.Close(), "Error closing database connection")
		a.db = nil
	}
	if a.tracing != nil {
		record(a.tracing.Shutdown(ctx), "Error flushing tracing exporters")
	}

	a.logger.Info("Resource cleanup completed")
	return firstErr
}

// IsServerCreated safely checks if the server has been created
func (a *App) IsServerCreated() bool {
	a.serverMu.RLock()
	defer a.serverMu.RUnlock()
	return a.server != nil
}

// WaitForServerStart waits for the server to be created and initialized.
// Returns false if ctx expires first.
func (a *App) WaitForServerStart(ctx context.Context) bool {
	a.serverMu.RLock()
	started := a.serverStarted
	a.serverMu.RUnlock()

	if started == nil {
		a.logger.Error("serverStarted channel is nil - server initialization error")
		<-ctx.Done()
		return false
	}

	select {
	case <-started:
		return a.IsServerCreated()
	case <-ctx.Done():
		return false
	}
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting Wholesail storefront")

	steps := []func() error{
		a.InitTracing,
		a.InitDB,
		a.InitDraftStore,
		a.InitStorage,
		a.InitMailer,
		a.InitRepositories,
		a.InitServices,
		a.InitHandlers,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

// GetConfig returns the app's configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetLogger returns the app's logger
func (a *App) GetLogger() logger.Logger {
	return a.logger
}

// GetMux returns the app's HTTP multiplexer
func (a *App) GetMux() *http.ServeMux {
	return a.mux
}

// GetDB returns the app's database connection
func (a *App) GetDB() *sql.DB {
	return a.db
}

// GetSender returns the app's email sender
func (a *App) GetSender() mailer.Sender {
	return a.sender
}

func (a *App) incrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, 1)
	a.requestWg.Add(1)
}

func (a *App) decrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, -1)
	a.requestWg.Done()
}

func (a *App) getActiveRequestCount() int64 {
	return atomic.LoadInt64(&a.activeRequests)
}

// GetActiveRequestCount returns the current number of active requests
func (a *App) GetActiveRequestCount() int64 {
	return a.getActiveRequestCount()
}

// SetShutdownTimeout sets the timeout for graceful shutdown
func (a *App) SetShutdownTimeout(timeout time.Duration) {
	a.shutdownTimeout = timeout
	a.logger.WithField("shutdown_timeout", timeout.String()).Info("Shutdown timeout configured")
}

// GetShutdownContext is cancelled when Shutdown begins
func (a *App) GetShutdownContext() context.Context {
	return a.shutdownCtx
}

func (a *App) isShuttingDown() bool {
	select {
	case <-a.shutdownCtx.Done():
		return true
	default:
		return false
	}
}

// gracefulShutdownMiddleware tracks in-flight requests and refuses new ones
// once shutdown has started.
func (a *App) gracefulShutdownMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isShuttingDown() {
			httpHandler.WriteJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		a.incrementActiveRequests()
		defer a.decrementActiveRequests()

		next.ServeHTTP(w, r)
	})
}

// Ensure App implements AppInterface
var _ AppInterface = (*App)(nil)
