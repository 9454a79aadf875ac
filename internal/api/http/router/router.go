package router

import (
	"net/http"

	"github.com/authgate/authgate-server/internal/api/http/handler"
	"github.com/authgate/authgate-server/internal/api/http/middleware"
	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
	"github.com/authgate/authgate-server/internal/service"
)

// Router wires authentication endpoints, handlers and middleware into an
// http.Handler.
type Router struct {
	authService    *service.Auth
	totpService    *service.TOTP
	passkeyService *service.Passkey
	sessionService *service.Session
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	authService *service.Auth,
	totpService *service.TOTP,
	passkeyService *service.Passkey,
	sessionService *service.Session,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		totpService:    totpService,
		passkeyService: passkeyService,
		sessionService: sessionService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the route table. Login, bootstrap and passkey login
// ceremonies are public; everything else requires a session token.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.sessionService, r.contextManager, r.logger)

	authHandler := handler.NewAuth(r.authService, r.totpService, r.logger)
	totpHandler := handler.NewTOTP(r.totpService, r.contextManager, r.logger)
	passkeyHandler := handler.NewPasskey(r.passkeyService, r.contextManager, r.logger)
	sessionHandler := handler.NewSession(r.contextManager, r.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/bootstrap", authHandler.Bootstrap)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/login/totp", authHandler.CompleteTOTPLogin)
	mux.HandleFunc("POST /api/auth/passkeys/login/options", passkeyHandler.AuthenticationOptions)
	mux.HandleFunc("POST /api/auth/passkeys/login/verify", passkeyHandler.AuthenticationVerify)

	protected := func(h http.HandlerFunc) http.Handler {
		return authenticate.Handle(h)
	}

	mux.Handle("GET /api/session", protected(sessionHandler.Me))

	mux.Handle("POST /api/auth/totp/enroll", protected(totpHandler.Enroll))
	mux.Handle("POST /api/auth/totp/confirm", protected(totpHandler.Confirm))
	mux.Handle("POST /api/auth/totp/disable", protected(totpHandler.Disable))

	mux.Handle("GET /api/auth/passkeys/register/options", protected(passkeyHandler.RegistrationOptions))
	mux.Handle("POST /api/auth/passkeys/register/verify", protected(passkeyHandler.RegistrationVerify))
	mux.Handle("GET /api/auth/passkeys", protected(passkeyHandler.List))
	mux.Handle("DELETE /api/auth/passkeys/{id}", protected(passkeyHandler.Delete))

	return logging.Handle(mux)
}
