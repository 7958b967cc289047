package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/commltd/authcore/internal/common"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/services"
)

type userPayload struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func userOf(a *services.Account) *userPayload {
	return &userPayload{
		UserID:    a.UserID,
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

// writeServiceError maps the service error taxonomy to HTTP statuses and
// the messages the clients display. Anything unrecognized collapses into
// a generic 500 so internals never leak.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var violation *policy.Violation

	switch {
	case errors.As(err, &violation):
		writeError(w, http.StatusBadRequest, violation.Message)
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, common.ErrorInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "username or password incorrect")
	case errors.Is(err, common.ErrorAccountLocked):
		writeError(w, http.StatusForbidden, "Maximum login attempts exceeded. Your user blocked.")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "Username or Email are already taken.")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, common.ErrorIncorrectOldPassword):
		writeError(w, http.StatusBadRequest, "Incorrect old password.")
	case errors.Is(err, common.ErrorSamePassword):
		writeError(w, http.StatusBadRequest, "Current password and new password are the same.")
	case errors.Is(err, common.ErrorPasswordReused):
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("New password cannot be the same as the last %d passwords.", s.policy.HistoryCount))
	case errors.Is(err, common.ErrorCodeInvalidOrExpired):
		writeError(w, http.StatusBadRequest, "Incorrect or invalid verification code.")
	case errors.Is(err, common.ErrorNotVerified):
		writeError(w, http.StatusForbidden, "User has not verified the code.")
	case errors.Is(err, common.ErrorDelivery):
		writeError(w, http.StatusBadGateway, "Could not send the email.")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// validationMessage strips the sentinel prefix so the client sees only
// the field list, e.g. "missing parameters: username,password".
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	acc, err := s.accounts.Register(r.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool         `json:"success"`
		User    *userPayload `json:"user"`
	}{Success: true, User: userOf(acc)})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	acc, err := s.accounts.Login(r.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool         `json:"success"`
		User    *userPayload `json:"user"`
	}{Success: true, User: userOf(acc)})
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

func (s *HTTPServer) sendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.verifications.IssueCode(r.Context(), req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		UserID  string `json:"user_id"`
		Info    string `json:"info"`
	}{Success: true, UserID: res.UserID, Info: "Successfully sent the verification code."})
}

type verifyRequest struct {
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

func (s *HTTPServer) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.verifications.ConfirmCode(r.Context(), req.UserID, req.Code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

type changePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
	UserID      string `json:"user_id"`
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := s.passwords.ChangePassword(r.Context(), services.ChangePasswordInput{
		UserID:      req.UserID,
		OldPassword: req.Password,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
	UserID      string `json:"user_id"`
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := s.passwords.ResetPassword(r.Context(), services.ResetPasswordInput{
		UserID:      req.UserID,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

// getPolicy publishes the active password policy so clients can mirror
// the checks before submitting.
func (s *HTTPServer) getPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success bool           `json:"success"`
		Policy  *policy.Policy `json:"policy"`
	}{Success: true, Policy: s.policy})
}
