package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/curiouscoder/blogcms/internal/assets"
	"github.com/curiouscoder/blogcms/internal/auth"
	"github.com/curiouscoder/blogcms/internal/blog"
	"github.com/curiouscoder/blogcms/internal/cache"
	"github.com/curiouscoder/blogcms/internal/config"
	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/db"
	"github.com/curiouscoder/blogcms/internal/diagram"
	"github.com/curiouscoder/blogcms/internal/middleware"
	"github.com/curiouscoder/blogcms/internal/misc"
	"github.com/curiouscoder/blogcms/internal/search"
	"github.com/curiouscoder/blogcms/internal/telemetry/metrics"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"
)

// rendered diagrams rarely change, keep them apart from rendered posts
const diagramCacheSizeMB = 8

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	assetsStore assets.Store
	// nil when search is not configured
	searchIndex *search.Index
	renderer    *content.Renderer
	renderCache cache.Cache

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	PostgresUser            string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         params.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	} else if err := db.ApplySchema(ctx, dbPool); err != nil {
		return nil, err
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "blog", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb)
	go func() {
		ticker := time.NewTicker(8 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authService.ScanAndClean(ctx)
			}
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "blog-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	assetsStore, err := newAssetsStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rendererParams := content.RendererParams{
		Sanitizer:          content.NewPolicySanitizer(),
		SiteURL:            cfg.BaseURL,
		DiagramTimeout:     cfg.DiagramTimeout,
		DiagramConcurrency: cfg.DiagramConcurrency,
		MetricsManager:     metricsManager,
	}
	if cfg.DiagramServiceURL != "" {
		rendererParams.Diagrams = diagram.NewClient(
			cfg.DiagramServiceURL,
			tracedHttpClient,
			cache.NewFreeCache(diagramCacheSizeMB),
		)
	} else {
		log.Info("no diagram service configured, diagrams are rendered client side")
	}

	s := &Server{
		config:      cfg,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,
		assetsStore: assetsStore,
		renderer:    content.NewRenderer(rendererParams),
		renderCache: cache.NewFreeCache(cfg.RenderCacheSizeMB),

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if len(cfg.ElasticsearchAddresses) > 0 {
		s.searchIndex, err = newSearchIndex(ctx, cfg)
		if err != nil {
			// search is secondary, the blog works without it
			log.Errorf("search disabled: %s", err)
		}
	} else {
		log.Info("no elasticsearch addresses configured, search disabled")
	}

	return s, nil
}

func newAssetsStore(ctx context.Context, cfg *config.Config) (assets.Store, error) {
	switch cfg.AssetsStore {
	case config.AssetsStoreDrive:
		store, err := assets.NewDriveStore(ctx, cfg.AssetsDriveFolderID)
		if err != nil {
			return nil, fmt.Errorf("new drive assets store: %w", err)
		}
		return store, nil
	default:
		store, err := assets.NewDiskStore(cfg.AssetsRootPath)
		if err != nil {
			return nil, fmt.Errorf("new disk assets store: %w", err)
		}
		return store, nil
	}
}

func newSearchIndex(ctx context.Context, cfg *config.Config) (*search.Index, error) {
	esClient, err := search.NewClient(
		cfg.ElasticsearchAddresses,
		otelhttp.NewTransport(http.DefaultTransport),
	)
	if err != nil {
		return nil, err
	}

	index := search.NewIndex(esClient, cfg.ElasticsearchIndex)
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *Server) blogService() *blog.Service {
	params := blog.NewServiceParams{
		Repo:           blog.NewRepo(s.dbPool),
		Assets:         s.assetsStore,
		Renderer:       s.renderer,
		RenderCache:    s.renderCache,
		MetricsManager: s.metricsManager,
		BaseURL:        s.config.BaseURL,
	}
	// a nil *search.Index must not end up in the interface
	if s.searchIndex != nil {
		params.Search = s.searchIndex
	}
	return blog.NewService(params)
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("blog-router"))

	blogHandler := blog.NewHandler(s.blogService())
	blogHandler.SetupRoutes(r)

	assetsHandler := assets.NewHandler(s.assetsStore, s.config.BaseURL, s.metricsManager)
	assetsHandler.SetupRoutes(r)

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.versionInfo, s.authService)
	miscHandler.SetupRoutes(r, misc.SetupRoutesParams{
		RateLimiter:        reqRateLimiter,
		LoginAllowedPerMin: s.config.LoginRateLimitAllowedPerMin,
		AllowedOrigins:     s.config.AllowedOrigins,
		MetricsManager:     s.metricsManager,
	})

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before closing what they use
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
