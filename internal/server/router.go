package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/userdeck/backend/internal/accounts"
	"github.com/userdeck/backend/internal/auth"
	"github.com/userdeck/backend/internal/users"
	"go.uber.org/zap"
)

const identityContextKey = "userdeck_identity"

var (
	errMissingAccountService    = errors.New("account service dependency required")
	errMissingModerationService = errors.New("moderation service dependency required")
	errMissingGate              = errors.New("auth gate dependency required")
	errMissingStore             = errors.New("user store dependency required")
	errInvalidAuthorization     = errors.New("authorization header missing or invalid")
)

// AuthGate authorizes a bearer token into the calling identity.
type AuthGate interface {
	Authorize(ctx context.Context, rawToken string) (users.Identity, error)
}

// Dependencies wires the HTTP handler to the services behind it.
type Dependencies struct {
	Accounts   *accounts.Service
	Moderation *users.Moderation
	Gate       AuthGate
	Store      users.Store
	Logger     *zap.Logger
}

// NewHTTPHandler assembles the gin router for the admin API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.Moderation == nil {
		return nil, errMissingModerationService
	}
	if deps.Gate == nil {
		return nil, errMissingGate
	}
	if deps.Store == nil {
		return nil, errMissingStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		accounts:   deps.Accounts,
		moderation: deps.Moderation,
		gate:       deps.Gate,
		store:      deps.Store,
		logger:     logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/users", handler.handleListUsers)
	protected.POST("/users/action", handler.handleUserAction)

	return router, nil
}

type httpHandler struct {
	accounts   *accounts.Service
	moderation *users.Moderation
	gate       AuthGate
	store      users.Store
	logger     *zap.Logger
}

type registerRequestPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	err := h.accounts.Register(c.Request.Context(), request.Name, request.Email, request.Password)
	if err != nil {
		var validation *accounts.ValidationError
		switch {
		case errors.As(err, &validation):
			c.JSON(http.StatusBadRequest, gin.H{"message": validation.Reason})
		case errors.Is(err, users.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"message": "user already exists"})
		default:
			h.logger.Error("registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registration successful"})
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	token, expiresIn, err := h.accounts.Login(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		case errors.Is(err, accounts.ErrBlocked):
			c.JSON(http.StatusForbidden, gin.H{"message": "user is blocked"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
		}
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{Token: token, ExpiresIn: expiresIn})
}

type userPayload struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login"`
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	identities, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
		return
	}

	response := make([]userPayload, 0, len(identities))
	for _, identity := range identities {
		response = append(response, userPayload{
			ID:        identity.ID,
			Name:      identity.Name,
			Email:     identity.Email,
			Status:    string(identity.Status),
			LastLogin: identity.LastLoginAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

type userActionPayload struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
}

func (h *httpHandler) handleUserAction(c *gin.Context) {
	var request userActionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	action, err := users.ParseAction(request.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid action"})
		return
	}

	if actor, ok := callerIdentity(c); ok {
		h.logger.Info("moderation action requested",
			zap.String("actor_id", actor.ID),
			zap.String("action", string(action)),
			zap.Int("targets", len(request.IDs)))
	}

	if err := h.moderation.Apply(c.Request.Context(), request.IDs, action); err != nil {
		switch {
		case errors.Is(err, users.ErrNoTargets):
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user ids"})
		case errors.Is(err, users.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid action"})
		default:
			h.logger.Error("moderation action failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "action performed successfully"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	identity, err := h.gate.Authorize(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errInvalidAuthorization.Error()})
		case errors.Is(err, auth.ErrTokenInvalid):
			h.logger.Info("token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		case errors.Is(err, auth.ErrUnknownSubject):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		case errors.Is(err, auth.ErrBlocked):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
		default:
			h.logger.Error("authorization failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "server error"})
		}
		return
	}

	c.Set(identityContextKey, identity)
	c.Next()
}

// callerIdentity returns the identity the gate attached to the request.
func callerIdentity(c *gin.Context) (users.Identity, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return users.Identity{}, false
	}
	identity, ok := value.(users.Identity)
	return identity, ok
}
