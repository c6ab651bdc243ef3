package controllers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/internal/util"
	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// UsersController manages users inside the caller's company. A user in
// one company can never see or delete a user in another.
type UsersController struct {
	AuthController
	UserRepo engine.UserRepo
}

func NewUsersController(userRepo engine.UserRepo, auth AuthController) *UsersController {
	return &UsersController{AuthController: auth, UserRepo: userRepo}
}

func companyFromContext(r *http.Request) string {
	if v, ok := r.Context().Value(core.CtxKeyCompanyId).(string); ok {
		return v
	}
	return ""
}

func (c *UsersController) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.UserRepo.FindAllByCompany(companyFromContext(r))
	if err != nil {
		slog.Error("Failed to get users", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to get users")
		return
	}
	out := make([]models.UserApiResponse, 0, len(*users))
	for i := range *users {
		out = append(out, mapUserToApi(&(*users)[i], false))
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}

func (c *UsersController) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.CreateUserRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid user data")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if existing, err := c.UserRepo.FindByUsername(username); err == nil && existing != nil {
		util.WriteJSONError(w, http.StatusConflict, "username already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user := &domain.User{
		CompanyID:   companyFromContext(r),
		Username:    username,
		DisplayName: req.DisplayName,
		Password:    string(hashed),
		Enabled:     sql.NullBool{Bool: true, Valid: true},
	}
	if req.GenerateApiKey {
		user.ApiKey = sql.NullString{String: uuid.New().String(), Valid: true}
	}

	if _, err := c.UserRepo.Save(user); err != nil {
		slog.Error("Failed to create user", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	// The api key is shown once, on creation.
	util.WriteJSONResponse(w, http.StatusCreated, mapUserToApi(user, true))
}

func (c *UsersController) handleGetUserById(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := c.UserRepo.FindById(id)
	if err != nil {
		slog.Error("Failed to get user", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.CompanyID != companyFromContext(r) {
		util.WriteJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapUserToApi(user, false))
}

func (c *UsersController) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := c.UserRepo.FindById(id)
	if err != nil {
		slog.Error("Failed to get user", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if user == nil || user.CompanyID != companyFromContext(r) {
		util.WriteJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := c.UserRepo.DeleteById(id); err != nil {
		slog.Error("Failed to delete user", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapUserToApi(u *domain.User, includeApiKey bool) models.UserApiResponse {
	api := models.UserApiResponse{
		ID:          u.ID,
		CompanyID:   u.CompanyID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Enabled:     !u.Enabled.Valid || u.Enabled.Bool,
	}
	if includeApiKey && u.ApiKey.Valid {
		api.ApiKey = u.ApiKey.String
	}
	if u.Created.Valid {
		t := u.Created.Time
		api.Created = &t
	}
	return api
}
