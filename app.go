package yoga

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-yoga/auth"
	"github.com/goliatone/go-yoga/middleware/jwtware"
)

// ShutdownTimeout bounds the graceful shutdown of Serve
var ShutdownTimeout = 5 * time.Second

// App holds the wired HTTP application
type App struct {
	config   Config
	server   router.Server[*fiber.App]
	http     *fiber.App
	repo     RepositoryManager
	tokens   *auth.TokenService
	machine  ParticipationMachine
	logger   Logger
	listener jwtware.ErrorListener
	clock    func() time.Time
	hooks    []TransitionHook
}

// AppOption configures an App
type AppOption func(*App)

// WithAppLogger sets the logger shared by all components
func WithAppLogger(logger Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthErrorListener receives the failures the authentication filter swallows
func WithAuthErrorListener(listener jwtware.ErrorListener) AppOption {
	return func(a *App) {
		a.listener = listener
	}
}

// WithAppClock sets the time source for tokens and transitions
func WithAppClock(clock func() time.Time) AppOption {
	return func(a *App) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithParticipationHook registers a hook run after every join or leave
func WithParticipationHook(h TransitionHook) AppOption {
	return func(a *App) {
		if h != nil {
			a.hooks = append(a.hooks, h)
		}
	}
}

// NewApp wires repositories, the token service, the authentication
// filter and the controllers on top of db
func NewApp(cfg Config, db *bun.DB, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, goerrors.New("config is required", goerrors.CategoryValidation)
	}
	if db == nil {
		return nil, goerrors.New("database is required", goerrors.CategoryValidation)
	}

	a := &App{
		config: cfg,
		logger: auth.DefaultLogger(),
		clock:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.listener == nil {
		a.listener = func(ctx router.Context, err error) {}
	}

	a.repo = NewRepositoryManager(db)
	a.repo.MustValidate()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey:    []byte(cfg.GetSigningKey()),
		SigningMethod: cfg.GetSigningMethod(),
		TTL:           cfg.GetTokenTTL(),
		Issuer:        cfg.GetIssuer(),
	}, auth.WithClock(a.clock), auth.WithTokenLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.tokens = tokens

	machineOpts := []StateMachineOption{
		WithStateMachineClock(a.clock),
		WithStateMachineLogger(a.logger),
	}
	for _, h := range a.hooks {
		machineOpts = append(machineOpts, WithAfterTransitionHook(h))
	}
	a.machine = NewParticipationMachine(a.repo, machineOpts...)

	a.server = a.buildServer()

	return a, nil
}

func (a *App) buildServer() router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		a.http = fiber.New(fiber.Config{
			AppName:               "yoga",
			DisableStartupMessage: true,
			ErrorHandler:          auth.NewErrorHandler(a.logger),
		})

		a.http.Use(recover.New())
		a.http.Use(requestid.New())

		if a.config.GetRequestLogging() {
			a.http.Use(fiberlogger.New())
		}

		return a.http
	})

	store := NewCredentialStore(a.repo.Users())
	loader := auth.NewUserProvider(store).WithLogger(a.logger)

	api := srv.Router().Group("/api")
	api.Use(NewAuthFilter(a.config, a.tokens, loader, a.logger, a.listener))

	authController := auth.NewController(store, a.tokens,
		auth.WithControllerLogger(a.logger),
		auth.WithDebug(a.config.GetDebug()),
		auth.WithPasswordCost(a.config.GetBcryptCost()),
	)
	auth.RegisterAuthRoutes(api.Group("/auth"), authController)

	controller := NewController(a.repo, a.machine,
		WithControllerLogger(a.logger),
		WithControllerDebug(a.config.GetDebug()),
		WithContextKey(a.config.GetContextKey()),
	)
	RegisterRoutes(api, controller, RequireAuthenticated(a.config.GetContextKey()))

	return srv
}

// Server exposes the fiber application
func (a *App) Server() *fiber.App {
	return a.http
}

// Repository exposes the repository manager
func (a *App) Repository() RepositoryManager {
	return a.repo
}

// Tokens exposes the token service
func (a *App) Tokens() *auth.TokenService {
	return a.tokens
}

// Participation exposes the participation state machine
func (a *App) Participation() ParticipationMachine {
	return a.machine
}

// Serve listens on the configured address until ctx is done
func (a *App) Serve(ctx context.Context) error {
	errc := make(chan error, 1)

	go func() {
		a.logger.Info("listening on %s", a.config.GetAddr())
		errc <- a.server.Serve(a.config.GetAddr())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down")
		return a.http.ShutdownWithTimeout(ShutdownTimeout)
	}
}
