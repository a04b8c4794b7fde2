package identity

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

// Service is the fully wired identity service over a migrated database
type Service struct {
	Repo          RepositoryManager
	Store         *IdentityStore
	Users         *UserProvider
	Opaque        *OpaqueTokens
	Tokens        *TokenServiceImpl
	Auther        *Auther
	Policy        *Policy
	Authenticator *RouteAuthenticator
	Controller    *Controller

	logger Logger
}

// NewService wires every component of the service from cfg
func NewService(db *bun.DB, cfg Config, logger Logger) (*Service, error) {
	logger = normalizeLogger(logger)

	repo := NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	tokens, err := NewTokenServiceFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	store := NewIdentityStore(repo).
		WithLogger(logger).
		WithHashid(cfg.GetUseHashid())

	users := NewUserProvider(repo.Users()).WithLogger(logger)

	opaque := NewOpaqueTokens(repo).WithLogger(logger)

	auther := NewAuthenticator(users, opaque, tokens, store).WithLogger(logger)

	policy := NewPolicy().WithLogger(logger)

	return &Service{
		Repo:          repo,
		Store:         store,
		Users:         users,
		Opaque:        opaque,
		Tokens:        tokens,
		Auther:        auther,
		Policy:        policy,
		Authenticator: NewHTTPAuthenticator(auther, cfg).WithLogger(logger),
		Controller:    NewController(store, auther, policy, cfg).WithLogger(logger),
		logger:        logger,
	}, nil
}

// WithActivitySink routes the audit events of every component to sink
func (s *Service) WithActivitySink(sink ActivitySink) *Service {
	s.Store.WithActivitySink(sink)
	s.Users.WithActivitySink(sink)
	s.Policy.WithActivitySink(sink)
	return s
}

// Mount registers the endpoints on r
func (s *Service) Mount(r router.Router[*fiber.App]) {
	RegisterRoutes(r, s.Controller, s.Authenticator.ActorMiddleware())
}

// NewServer returns a fiber backed server with the service mounted at
// the root
func (s *Service) NewServer() router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			ErrorHandler:          NewErrorHandler(s.logger),
			DisableStartupMessage: true,
		})
	})

	s.Mount(srv.Router())
	return srv
}
