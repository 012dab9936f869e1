package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/metrics/export/prometheus"
	"github.com/MrEthical07/goIAM/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Service is the Engine surface the HTTP API needs. *goIAM.Engine satisfies
// it.
type Service interface {
	middleware.AccessVerifier
	prometheus.MetricsSource

	SignUp(ctx context.Context, in goIAM.SignUpInput) (*goIAM.Profile, error)
	SignIn(ctx context.Context, username, password string) (*goIAM.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*goIAM.TokenPair, error)
	ChangePassword(ctx context.Context, accountID, current, next string) (*goIAM.TokenPair, error)
	DeleteAccount(ctx context.Context, accountID string) error
	GetMe(ctx context.Context, accountID string) (*goIAM.Profile, error)
	EditMe(ctx context.Context, accountID string, patch goIAM.AccountPatch) (*goIAM.Profile, error)
	ListAccounts(ctx context.Context) ([]goIAM.AccountSummary, error)
	GetAccount(ctx context.Context, accountID string) (*goIAM.AccountSummary, error)
	RemoveAccount(ctx context.Context, accountID string) error
	Ping(ctx context.Context) (time.Duration, error)
}

type Options struct {
	Logger *zap.Logger
	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string
	// HealthTimeout bounds the refresh store ping behind /healthz.
	HealthTimeout time.Duration
}

type handler struct {
	svc           Service
	logger        *zap.Logger
	healthTimeout time.Duration
}

// New returns an echo instance with every route registered.
func New(svc Service, opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		svc:           svc,
		logger:        logger.Named("http"),
		healthTimeout: opts.HealthTimeout,
	}
	if h.healthTimeout <= 0 {
		h.healthTimeout = 2 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.errorHandler
	e.Validator = newRequestValidator()

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), h.requestLogger(), requestMetadata)
	if len(opts.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	register(e, h)
	return e
}

func register(e *echo.Echo, h *handler) {
	bearer := echo.WrapMiddleware(middleware.Guard(h.svc))
	admin := echo.WrapMiddleware(middleware.RequireRole(goIAM.RoleAdmin))

	e.GET("/healthz", h.healthz)
	e.GET("/metrics", echo.WrapHandler(prometheus.NewExporter(h.svc).Handler()))

	auth := e.Group("/auth")
	auth.POST("/signup", h.signUp)
	auth.POST("/signin", h.signIn)
	auth.POST("/refresh-tokens", h.refreshTokens)
	auth.POST("/change-password", h.changePassword, bearer)
	auth.DELETE("/delete-account", h.deleteAccount, bearer)
	auth.GET("/get-me", h.getMe, bearer)
	auth.PATCH("/update-me", h.updateMe, bearer)

	users := e.Group("/users", bearer, admin)
	users.GET("", h.listUsers)
	users.GET("/:id", h.getUser)
	users.DELETE("/:id", h.removeUser)
}

// requestMetadata copies the caller's address and user agent into the
// request context for audit events.
func requestMetadata(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := goIAM.WithClientIP(req.Context(), c.RealIP())
		ctx = goIAM.WithUserAgent(ctx, req.UserAgent())
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (h *handler) requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			h.logger.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}

func (h *handler) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.healthTimeout)
	defer cancel()

	latency, err := h.svc.Ping(ctx)
	if err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "redisLatencyMs": latency.Milliseconds()})
}

// errorHandler renders every error as {"error": "..."}.
func (h *handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else {
		status, msg = statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, echo.Map{"error": msg})
}

func statusFor(err error) (int, string) {
	switch goIAM.KindOf(err) {
	case goIAM.KindDuplicateAccount:
		return http.StatusConflict, goIAM.ErrDuplicateAccount.Error()
	case goIAM.KindInvalidCredentials:
		return http.StatusUnauthorized, goIAM.ErrInvalidCredentials.Error()
	case goIAM.KindUnauthorized:
		return http.StatusUnauthorized, goIAM.ErrUnauthorized.Error()
	case goIAM.KindNotFound:
		return http.StatusNotFound, goIAM.ErrNotFound.Error()
	case goIAM.KindInvalidInput:
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
