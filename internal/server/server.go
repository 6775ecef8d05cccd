package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/musicclub/apiserver/config"
	"github.com/musicclub/apiserver/internal/auth"
	"github.com/musicclub/apiserver/internal/db"
	"github.com/musicclub/apiserver/internal/handlers"
	"github.com/musicclub/apiserver/internal/metrics"
	"github.com/musicclub/apiserver/internal/mq"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/internal/storage"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	mq         *mq.MQ
	sweeper    *session.Sweeper
	logger     *zap.Logger
}

// Deps are the external connections the API runs on.
type Deps struct {
	DB      *sql.DB
	Redis   *redis.Client
	Objects services.ObjectStore
	MQ      *mq.MQ
}

// New connects every backend named in cfg and builds the API.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	deps := Deps{DB: dbConn}

	closeAll := func() {
		if deps.MQ != nil {
			_ = deps.MQ.Close()
		}
		if deps.Redis != nil {
			_ = deps.Redis.Close()
		}
		_ = dbConn.Close()
	}

	if cfg.Session.Backend == config.SessionBackendRedis {
		deps.Redis, err = session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		closeAll()
		return nil, err
	}
	deps.Objects = objects

	deps.MQ, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		closeAll()
		return nil, err
	}

	srv, err := NewWithDeps(cfg, deps, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	return srv, nil
}

// NewWithDeps builds the API on already opened connections. A nil Redis
// client selects the postgres session store.
func NewWithDeps(cfg config.Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.DB == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	var (
		sessionStore session.Store
		sweeper      *session.Sweeper
	)
	if deps.Redis != nil {
		sessionStore = session.NewRedisStore(deps.Redis)
	} else {
		pg := session.NewPostgresStore(deps.DB)
		sw, err := session.NewSweeper(pg, cfg.Session.SweepSchedule, logger.Named("session"))
		if err != nil {
			return nil, fmt.Errorf("session sweeper: %w", err)
		}
		sessionStore, sweeper = pg, sw
	}
	sessions := session.NewManager(sessionStore, cfg.Session.Secret, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		CrossSite:  cfg.IsProduction(),
		Logger:     logger.Named("session"),
	})

	sqlxDB := db.Wrap(deps.DB)
	userRepo := store.NewUserRepository(deps.DB)
	memberRepo := store.NewMemberRepository(sqlxDB)
	bandRepo := store.NewBandRepository(sqlxDB)
	scheduleRepo := store.NewScheduleRepository(sqlxDB)
	financeRepo := store.NewFinanceRepository(sqlxDB)
	equipmentRepo := store.NewEquipmentRepository(sqlxDB)
	projectRepo := store.NewProjectRepository(sqlxDB)

	roleOpts := []services.RoleServiceOption{
		services.WithIdentityInvalidator(sessions),
		services.WithRoleLogger(logger.Named("roles")),
		services.WithRoleMetrics(m),
	}
	if deps.MQ != nil {
		roleOpts = append(roleOpts, services.WithRoleEvents(mq.NewRoleEvents(deps.MQ, cfg.MQ.RoleEventsChannel)))
	}

	userService := services.NewUserService(userRepo)
	roleService := services.NewRoleService(userRepo, roleOpts...)
	memberService := services.NewMemberService(memberRepo, userRepo, roleService)
	bandService := services.NewBandService(bandRepo)
	scheduleService := services.NewScheduleService(scheduleRepo, bandRepo)
	financeService := services.NewFinanceService(financeRepo)
	equipmentService := services.NewEquipmentService(equipmentRepo)
	projectService := services.NewProjectService(projectRepo)

	resolver := auth.NewResolver(userRepo, sessions, logger.Named("auth"), m)
	gate := handlers.NewGate(sessions, resolver, logger.Named("authz"), m)
	httpLogger := logger.Named("http")

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(httpLogger, m),
		handlers.CORS(cfg.CORS.Origins),
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", m.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, roleService, sessions, gate, httpLogger)
		})
		r.Route("/permissions", func(r chi.Router) {
			handlers.PermissionsRouter(r, userService, roleService, gate, httpLogger)
		})
		r.Route("/members", func(r chi.Router) {
			handlers.MemberRouter(r, memberService, gate, httpLogger)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.NonMembersRouter(r, memberService, gate, httpLogger)
		})
		r.Route("/bands", func(r chi.Router) {
			handlers.BandRouter(r, bandService, gate, httpLogger)
		})
		r.Route("/schedules", func(r chi.Router) {
			handlers.ScheduleRouter(r, scheduleService, gate, httpLogger)
		})
		r.Route("/finances", func(r chi.Router) {
			handlers.FinanceRouter(r, financeService, gate, httpLogger)
		})
		r.Route("/equipments", func(r chi.Router) {
			handlers.EquipmentRouter(r, equipmentService, gate, httpLogger)
		})
		r.Route("/projects", func(r chi.Router) {
			handlers.ProjectRouter(r, projectService, gate, httpLogger)
		})
		if deps.Objects != nil {
			documentService := services.NewDocumentService(deps.Objects)
			siteService := services.NewSiteService(deps.Objects)
			r.Route("/files", func(r chi.Router) {
				handlers.DocumentRouter(r, documentService, gate, httpLogger)
			})
			r.Route("/upload", func(r chi.Router) {
				handlers.DocumentRouter(r, documentService, gate, httpLogger)
			})
			r.Route("/site", func(r chi.Router) {
				handlers.SiteRouter(r, siteService, gate, httpLogger)
			})
		}
	})
	if deps.Objects != nil {
		router.Route("/uploads", func(r chi.Router) {
			handlers.DownloadRouter(r, services.NewDocumentService(deps.Objects), httpLogger)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         deps.DB,
		redis:      deps.Redis,
		mq:         deps.MQ,
		sweeper:    sweeper,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if s.sweeper != nil {
		s.sweeper.Start()
	}
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.sweeper != nil {
		select {
		case <-s.sweeper.Stop().Done():
		case <-ctx.Done():
		}
	}
	if s.mq != nil {
		if cerr := s.mq.Close(); cerr != nil {
			s.logger.Warn("close mq", zap.Error(cerr))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
