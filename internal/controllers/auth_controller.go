package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulseopti/hrflow/internal/config"
	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/internal/util"
	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"

	"log/slog"
)

type AuthController struct {
	UserRepo engine.UserRepo
	Clock    core.Clock
}

func NewAuthController(userRepo engine.UserRepo, clock core.Clock) *AuthController {
	return &AuthController{UserRepo: userRepo, Clock: clock}
}

func (c *AuthController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", c.handleLogin)
	mux.HandleFunc("POST /api/logout", c.RequireAuth(c.handleLogout))
}

// RequireAuth authenticates via session cookie first, then the
// X-API-Key header, and places the acting user and their company in the
// request context. Every downstream query is scoped by that company.
func (c *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1) Try session cookie
		if cookie, err := r.Cookie("sessionId"); err == nil && cookie.Value != "" {
			u, err := c.UserRepo.FindBySessionID(cookie.Value, c.Clock.Now().UTC())
			if err == nil && u != nil {
				next(w, c.withUser(r, u))
				return
			}
		}
		// 2) Try API key from headers
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			u, err := c.UserRepo.FindByApiKey(apiKey)
			if err == nil && u != nil {
				next(w, c.withUser(r, u))
				return
			}
		}
		util.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
	}
}

func (c *AuthController) withUser(r *http.Request, u *domain.User) *http.Request {
	ctx := context.WithValue(r.Context(), core.CtxKeyUsername, u.Username)
	ctx = context.WithValue(ctx, core.CtxKeyUserId, fmt.Sprintf("%d", u.ID))
	ctx = context.WithValue(ctx, core.CtxKeyCompanyId, u.CompanyID)
	return r.WithContext(ctx)
}

// actorFromContext rebuilds the acting user from the values RequireAuth
// stored.
func actorFromContext(ctx context.Context) engine.Actor {
	actor := engine.Actor{}
	if v, ok := ctx.Value(core.CtxKeyUserId).(string); ok {
		actor.ID = v
	}
	if v, ok := ctx.Value(core.CtxKeyUsername).(string); ok {
		actor.Name = v
	}
	if v, ok := ctx.Value(core.CtxKeyCompanyId).(string); ok {
		actor.CompanyID = v
	}
	return actor
}

func (c *AuthController) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.LoginRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, err := c.UserRepo.FindByUsername(username)
	if err != nil {
		slog.Error("FindByUsername failed", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "server error")
		return
	}
	if u == nil || (u.Enabled.Valid && !u.Enabled.Bool) {
		util.WriteJSONError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	sessionID := uuid.New().String()
	expiryHours := config.GetSystemSettingInteger(config.WEB_SESSION_EXPIRY_HOURS)
	expires := c.Clock.Now().UTC().Add(time.Duration(expiryHours) * time.Hour)
	if err := c.UserRepo.UpdateSession(u.ID, sessionID, expires); err != nil {
		slog.Error("UpdateSession failed", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "sessionId",
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	util.WriteJSONResponse(w, http.StatusOK, models.LoginResponse{
		SessionID:   sessionID,
		Expires:     expires,
		DisplayName: u.DisplayName,
		CompanyID:   u.CompanyID,
	})
}

func (c *AuthController) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("sessionId"); err == nil && cookie.Value != "" {
		if err := c.UserRepo.ClearSessionBySessionID(cookie.Value); err != nil {
			slog.Error("ClearSessionBySessionID failed", "error", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     "sessionId",
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}
