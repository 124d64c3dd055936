package tribune

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dailytribune/tribune/authentication"
	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/authorization/casbin"
	"github.com/dailytribune/tribune/cache"
	"github.com/dailytribune/tribune/cache/redis"
	"github.com/dailytribune/tribune/contents"
	"github.com/dailytribune/tribune/db/sqlstore"
	"github.com/dailytribune/tribune/discuss"
	"github.com/dailytribune/tribune/random"
	"github.com/dailytribune/tribune/reactions"
	"github.com/dailytribune/tribune/server"
	"github.com/dailytribune/tribune/web"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/env"
)

type App struct {
	server  *server.Server
	handler *web.Handler
	db      *sql.DB
	closers []io.Closer
}

//go:embed policy.csv
var defaultAuthorizationPolicyContent string

func NewApp(ctx context.Context) (*App, error) {
	driver, err := sqlstore.ParseDriver(env.GetString("DB_DRIVER", string(sqlstore.DriverSQLite)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database driver: %w", err)
	}

	db, err := sqlstore.NewDB(ctx, driver, env.GetString("DB_DSN", "file::memory:?cache=shared"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	app := &App{db: db}

	err = app.init(ctx, driver)
	if err != nil {
		app.close(ctx)

		return nil, err
	}

	return app, nil
}

func (app *App) init(ctx context.Context, driver sqlstore.Driver) error {
	err := sqlstore.MigrateUp(ctx, app.db, driver)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	userRepo := sqlstore.NewUserRepository(app.db, driver)
	sessionRepo := sqlstore.NewSessionRepository(app.db, driver)
	articleRepo := sqlstore.NewArticleRepository(app.db, driver)
	commentRepo := sqlstore.NewCommentRepository(app.db, driver)
	reactionRepo := sqlstore.NewReactionRepository(app.db, driver)

	appCache, err := app.newCache(ctx)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	authzProvider, err := newAuthorizationProvider(ctx, app.db, driver)
	if err != nil {
		return fmt.Errorf("failed to create authorization provider: %w", err)
	}

	authzSvc, err := authorization.NewService(authzProvider)
	if err != nil {
		return fmt.Errorf("failed to create authorization service: %w", err)
	}

	authzClient := authorization.NewClient(authzSvc)
	authSvc := authentication.NewService(userRepo, sessionRepo, authzClient)

	err = ensureAdmin(ctx, authSvc)
	if err != nil {
		return err
	}

	cacheTTL, err := getSecondsFromEnv("CACHE_TTL", reactions.DefaultCountsTTL)
	if err != nil {
		return err
	}

	rateLimit, err := getIntFromEnv("COMMENT_RATE_LIMIT", discuss.DefaultRateLimit)
	if err != nil {
		return err
	}

	rateWindow, err := getDurationFromEnv("COMMENT_RATE_WINDOW", discuss.DefaultRateWindow)
	if err != nil {
		return err
	}

	contentsSvc := contents.NewService(articleRepo)
	reactionsSvc := reactions.NewService(reactionRepo, appCache, cacheTTL, discuss.ReactionTargets(commentRepo, contentsSvc))
	broker := discuss.NewBroker()
	commentSvc := discuss.NewAuthorizationMiddleware(authzClient, discuss.NewCommentService(
		commentRepo,
		contentsSvc,
		discuss.NewRateLimiter(appCache, rateLimit, rateWindow),
		reactionsSvc,
		broker,
	))

	sessionName := env.GetString("SESSION_NAME", "tribune-"+random.String(4))
	sessionKey := env.GetString("SESSION_KEY", random.String(32))
	cookieStore := sessions.NewCookieStore([]byte(sessionKey))
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.SameSite = http.SameSiteLaxMode
	cookieStore.Options.Secure = env.GetBool("TLS_ENABLED", false)

	app.handler = web.NewHandler(
		authSvc,
		contentsSvc,
		commentSvc,
		reactionsSvc,
		broker,
		authzClient,
		cookieStore,
		sessionName,
		env.GetStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	)
	app.server = newServer()

	return nil
}

func (app *App) newCache(ctx context.Context) (cache.Cache, error) {
	redisURL := env.GetString("REDIS_URL", "")
	if redisURL == "" {
		slog.InfoContext(ctx, "using in-memory cache")

		return cache.NewMemory(), nil
	}

	redisCache, err := redis.Connect(ctx, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.closers = append(app.closers, redisCache)

	return redisCache, nil
}

func ensureAdmin(ctx context.Context, authSvc *authentication.Service) error {
	username := env.GetString("ADMIN_USERNAME", "")
	if username == "" {
		return nil
	}

	_, err := authSvc.EnsureUser(ctx, username, env.GetString("ADMIN_PASSWORD", ""), authentication.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}

	slog.InfoContext(ctx, "admin user ensured", "username", username)

	return nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer app.close(ctx)

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func (app *App) close(ctx context.Context) {
	for _, closer := range app.closers {
		err := closer.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "error", err)
		}
	}

	if app.db != nil {
		err := app.db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}
}

func newServer() *server.Server {
	return &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

type InvalidConfigError struct {
	Key   string
	Value string
	Err   error
}

func (err InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", err.Value, err.Key, err.Err)
}

func (err InvalidConfigError) Unwrap() error {
	return err.Err
}

func getIntFromEnv(key string, def int) (int, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, InvalidConfigError{Key: key, Value: value, Err: err}
	}

	return n, nil
}

// getSecondsFromEnv reads a whole number of seconds.
func getSecondsFromEnv(key string, def time.Duration) (time.Duration, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, InvalidConfigError{Key: key, Value: value, Err: err}
	}

	return time.Duration(n) * time.Second, nil
}

func getDurationFromEnv(key string, def time.Duration) (time.Duration, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, InvalidConfigError{Key: key, Value: value, Err: err}
	}

	return d, nil
}

func newAuthorizationProvider(
	ctx context.Context,
	db *sql.DB,
	driver sqlstore.Driver,
) (*casbin.AuthorizationProvider, error) {
	adapter, err := casbin.NewSQLAdapter(db, driver.AdapterDriverName(), "casbin_rule")
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization adapter: %w", err)
	}

	provider, err := casbin.NewAuthorizationProvider(adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	policyContent, err := loadPolicyContent()
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy content: %w", err)
	}

	err = provider.AddPolicyFromCSV(ctx, policyContent)
	if err != nil {
		return nil, fmt.Errorf("failed to add authorization policy from csv: %w", err)
	}

	return provider, nil
}

func loadPolicyContent() (string, error) {
	policyFilePath := env.GetString("AUTHORIZATION_POLICY_FILE", "")

	if policyFilePath == "" {
		return defaultAuthorizationPolicyContent, nil
	}

	content, err := os.ReadFile(policyFilePath) // nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to read policy file %q: %w", policyFilePath, err)
	}

	return string(content), nil
}
