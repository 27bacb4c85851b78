// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"admin-console/internal/client"
	"admin-console/internal/config"
	"admin-console/internal/db"
	authHandler "admin-console/internal/handlers/auth"
	roleHandler "admin-console/internal/handlers/role"
	"admin-console/internal/middleware"
	"admin-console/internal/obs"
	"admin-console/internal/pkg/session"
	authUsecase "admin-console/internal/service/auth"
	"admin-console/internal/service/navigation"
	roleUsecase "admin-console/internal/service/role"
	systemUsecase "admin-console/internal/service/system"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	http   *http.Server
	logger *zap.Logger
	redis  redis.UniversalClient
}

// NewServer wires every component of the console. Redis is connected only
// when enabled; otherwise sessions and rate limits live in process.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, engine: gin.New(), logger: logger}

	// ----- Session Store & Rate Limiter -----
	var (
		store   session.Store
		limiter session.AttemptLimiter
	)
	if cfg.RedisEnabled {
		redisClient, err := db.NewRedis(ctx, db.RedisConfig{
			Addresses: cfg.RedisAddrs,
			Password:  cfg.RedisPass,
			DB:        cfg.RedisDB,
			PoolSize:  10,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("redis connected", zap.Strings("addrs", cfg.RedisAddrs))
		s.redis = redisClient
		store = session.NewRedisStore(redisClient, cfg.RedisPrefix)
		limiter = session.NewRateLimiter(redisClient)
	} else {
		logger.Warn("redis disabled, sessions are kept in process")
		store = session.NewMemoryStore()
		limiter = session.NewMemoryRateLimiter()
	}
	sessionManager := session.NewManager(store, session.Options{TTL: cfg.SessionTTL, CSRFCookie: cfg.CSRFCookie}, logger)

	// ----- Metrics -----
	metrics := obs.NewMetrics()

	// ----- API Clients -----
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	newClient := func(name string, extra ...client.Option) (*client.Client, error) {
		opts := append([]client.Option{
			client.WithHTTPClient(httpClient),
			client.WithLogger(logger),
			client.WithMetrics(metrics),
			client.WithCSRFHeader(cfg.CSRFHeader),
		}, extra...)
		return client.New(name, cfg.APIBaseURL, opts...)
	}

	systemClient, err := newClient("system")
	if err != nil {
		return nil, err
	}
	authClient, err := newClient("authentication")
	if err != nil {
		return nil, err
	}

	// ----- Services (Usecases) -----
	systemService := systemUsecase.NewSystemService(systemClient, cfg.HooksCacheTTL, logger)
	authService := authUsecase.NewAuthService(authClient, logger)
	resolver := navigation.NewResolver(systemService, metrics, logger)

	recovery := client.NewRecovery(authService, client.NotifierFunc(func(ctx context.Context) {
		logger.Warn("session expired, waiting for acknowledgement")
	}), logger, metrics)
	roleClient, err := newClient("roles", client.WithRecovery(recovery))
	if err != nil {
		return nil, err
	}
	roleService := roleUsecase.NewRoleService(roleClient, logger)

	// ----- Middlewares -----
	sessions := middleware.NewSessionMiddleware(sessionManager, middleware.CookieConfig{
		Name:   cfg.SessionCookie,
		MaxAge: cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	}, logger)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		metrics.Instrument(),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(authService, resolver, sessions, logger),
		RoleHandler:         roleHandler.NewRoleHandler(roleService, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(),
		SessionMiddleware:   sessions,
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(limiter, logger),
		Metrics:             metrics,
	})

	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the engine, for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("console listening", zap.String("addr", s.cfg.HTTPAddr), zap.String("api", s.cfg.APIBaseURL))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes redis.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
