package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"yaothink/internal/envelope"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	service Service
	log     *slog.Logger
}

// NewHandler creates an authentication handler.
func NewHandler(service Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// SendCode handles POST /api/auth/send-code.
func (h *Handler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.SendCode(c.Request.Context(), req.Phone)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, result)
}

// LoginPhoneSMS handles POST /api/auth/login/phone-sms.
func (h *Handler) LoginPhoneSMS(c *gin.Context) {
	var req PhoneSmsLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.LoginPhoneSMS(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, result)
}

// LoginPhonePassword handles POST /api/auth/login/phone-password.
func (h *Handler) LoginPhonePassword(c *gin.Context) {
	var req PhonePasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.LoginPhonePassword(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, result)
}

// LoginEmailPassword handles POST /api/auth/login/email-password.
func (h *Handler) LoginEmailPassword(c *gin.Context) {
	var req EmailPasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.LoginEmailPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, result)
}

// RegisterPhone handles POST /api/auth/register/phone.
func (h *Handler) RegisterPhone(c *gin.Context) {
	var req PhoneRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.RegisterPhone(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, result)
}

// RegisterEmail handles POST /api/auth/register/email.
func (h *Handler) RegisterEmail(c *gin.Context) {
	var req EmailRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.RegisterEmail(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, result)
}

// SetPassword handles POST /api/auth/set-password.
func (h *Handler) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetPassword(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"message": "密码设置成功"})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, ErrTokenInvalid.Error())
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	envelope.OK(c, profile)
}

// fail maps a service error onto the wire. A wrong or expired code is a
// business outcome, not a transport failure, so it goes out as a 200
// success:false envelope; everything else becomes an HTTP error with the
// message verbatim as the detail body.
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidCode) {
		envelope.Fail(c, err.Error())
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("auth request failed", "path", c.FullPath(), "error", err)
		envelope.Abort(c, status, "服务器内部错误")
		return
	}
	envelope.Abort(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPhoneNotRegistered),
		errors.Is(err, ErrEmailNotRegistered),
		errors.Is(err, ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrNoPasswordSMS),
		errors.Is(err, ErrNoPassword),
		errors.Is(err, ErrPhoneRegistered),
		errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrEmailInUse),
		errors.Is(err, ErrMissingIdentifier):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
