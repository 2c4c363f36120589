package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Mock auth service for testing
type mockService struct {
	sendCodeFunc      func(ctx context.Context, phone string) (*SendCodeResult, error)
	loginPhoneSMSFunc func(ctx context.Context, phone, code string) (*AuthResult, error)
	registerPhoneFunc func(ctx context.Context, req PhoneRegisterRequest) (*AuthResult, error)
	profileFunc       func(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}

func (m *mockService) SendCode(ctx context.Context, phone string) (*SendCodeResult, error) {
	if m.sendCodeFunc != nil {
		return m.sendCodeFunc(ctx, phone)
	}
	return &SendCodeResult{Message: "验证码已发送", ExpiresIn: 300}, nil
}

func (m *mockService) LoginPhoneSMS(ctx context.Context, phone, code string) (*AuthResult, error) {
	if m.loginPhoneSMSFunc != nil {
		return m.loginPhoneSMSFunc(ctx, phone, code)
	}
	return nil, ErrInvalidCode
}

func (m *mockService) LoginPhonePassword(ctx context.Context, phone, password string) (*AuthResult, error) {
	return nil, ErrPhoneNotRegistered
}

func (m *mockService) LoginEmailPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	return nil, ErrEmailNotRegistered
}

func (m *mockService) RegisterPhone(ctx context.Context, req PhoneRegisterRequest) (*AuthResult, error) {
	if m.registerPhoneFunc != nil {
		return m.registerPhoneFunc(ctx, req)
	}
	return nil, ErrPhoneRegistered
}

func (m *mockService) RegisterEmail(ctx context.Context, req EmailRegisterRequest) (*AuthResult, error) {
	return nil, ErrEmailRegistered
}

func (m *mockService) SetPassword(ctx context.Context, req SetPasswordRequest) error {
	return nil
}

func (m *mockService) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	if m.profileFunc != nil {
		return m.profileFunc(ctx, userID)
	}
	return nil, ErrUserNotFound
}

func (m *mockService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserProfile, error) {
	return nil, ErrUserNotFound
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendCodeHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{
		sendCodeFunc: func(ctx context.Context, phone string) (*SendCodeResult, error) {
			return &SendCodeResult{Message: "验证码已发送", ExpiresIn: 300, DebugCode: "123456"}, nil
		},
	}, slog.Default())

	r := gin.New()
	r.POST("/api/auth/send-code", h.SendCode)

	w := postJSON(t, r, "/api/auth/send-code", map[string]string{"phone": "13800138000"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Success bool           `json:"success"`
		Data    SendCodeResult `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("Expected success true")
	}
	if response.Data.DebugCode != "123456" {
		t.Errorf("Expected debug_code 123456, got %s", response.Data.DebugCode)
	}
}

func TestSendCodeHandler_MissingPhone(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/send-code", h.SendCode)

	w := postJSON(t, r, "/api/auth/send-code", map[string]string{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSendCodeHandler_InvalidPhoneDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{
		sendCodeFunc: func(ctx context.Context, phone string) (*SendCodeResult, error) {
			return nil, ErrInvalidPhone
		},
	}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/send-code", h.SendCode)

	w := postJSON(t, r, "/api/auth/send-code", map[string]string{"phone": "12345"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["detail"] != "请输入正确的手机号" {
		t.Errorf("Expected verbatim detail message, got %q", body["detail"])
	}
}

func TestLoginPhoneSMSHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	h := NewHandler(&mockService{
		loginPhoneSMSFunc: func(ctx context.Context, phone, code string) (*AuthResult, error) {
			return &AuthResult{
				User:      &UserProfile{ID: userID, Phone: &phone},
				Token:     Token{AccessToken: "signed-token", TokenType: "bearer", ExpiresIn: 604800},
				IsNewUser: true,
			}, nil
		},
	}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/login/phone-sms", h.LoginPhoneSMS)

	w := postJSON(t, r, "/api/auth/login/phone-sms", map[string]string{"phone": "13800138000", "code": "123456"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response struct {
		Success bool       `json:"success"`
		Data    AuthResult `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.Token.AccessToken != "signed-token" {
		t.Errorf("Expected access token in envelope, got %+v", response.Data.Token)
	}
	if !response.Data.IsNewUser {
		t.Error("Expected is_new_user true")
	}
}

func TestLoginPhoneSMSHandler_WrongCodeEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/login/phone-sms", h.LoginPhoneSMS)

	w := postJSON(t, r, "/api/auth/login/phone-sms", map[string]string{"phone": "13800138000", "code": "999999"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for business failure, got %d", w.Code)
	}
	var response struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Success {
		t.Error("Expected success false")
	}
	if response.Error != "验证码错误或已过期" {
		t.Errorf("Expected verbatim error message, got %q", response.Error)
	}
}

func TestLoginPhoneSMSHandler_ShortCodeRejectedByBinding(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/login/phone-sms", h.LoginPhoneSMS)

	w := postJSON(t, r, "/api/auth/login/phone-sms", map[string]string{"phone": "13800138000", "code": "12"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for short code, got %d", w.Code)
	}
}

func TestRegisterPhoneHandler_DuplicateDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/register/phone", h.RegisterPhone)

	w := postJSON(t, r, "/api/auth/register/phone", map[string]string{
		"phone": "13800138000", "code": "123456", "password": "secret1",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["detail"] != "手机号已注册" {
		t.Errorf("Expected 手机号已注册, got %q", body["detail"])
	}
}

func TestLoginPhonePasswordHandler_UnauthorizedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&mockService{}, slog.Default())
	r := gin.New()
	r.POST("/api/auth/login/phone-password", h.LoginPhonePassword)

	w := postJSON(t, r, "/api/auth/login/phone-password", map[string]string{"phone": "13800138000", "password": "secret1"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unregistered phone, got %d", w.Code)
	}
}

func TestMeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	issuer := NewTokenIssuer("test-secret", 0)
	token, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	h := NewHandler(&mockService{
		profileFunc: func(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
			if id != userID {
				t.Errorf("Expected lookup of %s, got %s", userID, id)
			}
			return &UserProfile{ID: id}, nil
		},
	}, slog.Default())

	r := gin.New()
	r.GET("/api/auth/me", RequireAuth(issuer), h.Me)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response struct {
		Success bool        `json:"success"`
		Data    UserProfile `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.ID != userID {
		t.Errorf("Expected profile of %s, got %s", userID, response.Data.ID)
	}
}
