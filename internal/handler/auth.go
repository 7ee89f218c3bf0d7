package handler

import (
    "context"  // provides context with cancellation for store calls
    "errors"   // sentinel matching
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-seat-booking/internal/config"     // app configuration
    "github.com/iliyamo/cinema-seat-booking/internal/model"      // user roles
    "github.com/iliyamo/cinema-seat-booking/internal/repository" // store sentinels
    "github.com/iliyamo/cinema-seat-booking/internal/utils"      // hashing, token issuing
)

// UserStore is implemented by repository.UserRepo and MemoryUserRepo.
type UserStore interface {
    Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error)
    GetByUsername(ctx context.Context, username string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is implemented by repository.TokenRepo and MemoryTokenRepo.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *zap.Logger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Username  string `json:"username" validate:"required,max=150"`
    Email     string `json:"email" validate:"required,email,max=255"`
    Password  string `json:"password" validate:"required,min=8"`
    Password2 string `json:"password2" validate:"required,eqfield=Password"`
}
type loginReq struct {
    Username string `json:"username" validate:"required"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID       uint64 `json:"id"`
    Username string `json:"username"`
    Email    string `json:"email"`
    Role     string `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

// Register: create a customer and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, "invalid body")
    }
    req.Username = strings.TrimSpace(req.Username)
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := c.Validate(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, validationMessage(err))
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, model.RoleCustomer, h.Cfg.BcryptCost)
    switch {
    case errors.Is(err, repository.ErrUsernameExists):
        return errorJSON(c, http.StatusConflict, "username already exists")
    case errors.Is(err, repository.ErrEmailExists):
        return errorJSON(c, http.StatusConflict, "email already exists")
    case err != nil:
        h.Log.Error("register: create user", zap.Error(err))
        return errorJSON(c, http.StatusInternalServerError, "create user failed")
    }

    resp, err := h.issue(ctx, model.User{ID: uid, Username: req.Username, Email: req.Email, Role: model.RoleCustomer})
    if err != nil {
        h.Log.Error("register: issue tokens", zap.Error(err))
        return errorJSON(c, http.StatusInternalServerError, "issue tokens failed")
    }
    return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, "invalid body")
    }
    req.Username = strings.TrimSpace(req.Username)
    if err := c.Validate(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, validationMessage(err))
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByUsername(ctx, req.Username)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
        }
        h.Log.Error("login: load user", zap.Error(err))
        return errorJSON(c, http.StatusInternalServerError, "query failed")
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
    }

    resp, err := h.issue(ctx, u)
    if err != nil {
        h.Log.Error("login: issue tokens", zap.Error(err))
        return errorJSON(c, http.StatusInternalServerError, "issue tokens failed")
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return errorJSON(c, http.StatusBadRequest, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return errorJSON(c, http.StatusUnauthorized, "invalid refresh")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        h.Log.Warn("refresh: revoke old token", zap.Error(err))
    }

    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return errorJSON(c, http.StatusUnauthorized, "invalid refresh")
        }
        return errorJSON(c, http.StatusInternalServerError, "load user failed")
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        h.Log.Error("refresh: issue tokens", zap.Error(err))
        return errorJSON(c, http.StatusInternalServerError, "issue tokens failed")
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when only a valid bearer token is supplied.
func (h *AuthHandler) Logout(c echo.Context) error {
    var uid uint64
    if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
            uid = claims.UserID
        }
    }

    // invalid JSON simply leaves RefreshToken empty
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return errorJSON(c, http.StatusUnauthorized, "invalid refresh token")
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return errorJSON(c, http.StatusInternalServerError, "logout failed")
        }
        return c.NoContent(http.StatusNoContent)
    case uid != 0:
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return errorJSON(c, http.StatusInternalServerError, "logout failed")
        }
        return c.NoContent(http.StatusNoContent)
    }
    return errorJSON(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return errorJSON(c, http.StatusUnauthorized, "unauthorized")
    }
    u, err := h.Users.GetByID(c.Request().Context(), uid)
    if err != nil {
        return errorJSON(c, http.StatusUnauthorized, "unauthorized")
    }
    return c.JSON(http.StatusOK, userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
}
