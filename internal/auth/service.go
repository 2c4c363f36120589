// Package auth implements multi-channel authentication for the API service:
// phone + SMS code (with auto-registration), phone + password, and
// email + password, plus password management and profile access.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"yaothink/internal/codestore"
	"yaothink/internal/config"
	"yaothink/internal/database"
	"yaothink/internal/sms"
)

// CodeTTL defines how long SMS verification codes remain valid.
const CodeTTL = 5 * time.Minute

// Business failures carry their user-facing message verbatim; handlers map
// each to an HTTP status and never rewrite the text.
var (
	ErrInvalidPhone       = errors.New("请输入正确的手机号")
	ErrInvalidCode        = errors.New("验证码错误或已过期")
	ErrPhoneNotRegistered = errors.New("手机号未注册")
	ErrEmailNotRegistered = errors.New("邮箱未注册")
	ErrWrongPassword      = errors.New("密码错误")
	ErrNoPasswordSMS      = errors.New("请使用验证码登录或先设置密码")
	ErrNoPassword         = errors.New("请先设置密码")
	ErrPhoneRegistered    = errors.New("手机号已注册")
	ErrEmailRegistered    = errors.New("邮箱已注册")
	ErrEmailInUse         = errors.New("邮箱已被使用")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrMissingIdentifier  = errors.New("请提供手机号或邮箱")
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// UserStore is the persistence surface the service needs from the users table.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*database.User, error)
	GetByPhone(ctx context.Context, phone string) (*database.User, error)
	GetByEmail(ctx context.Context, email string) (*database.User, error)
	CreateWithPhone(ctx context.Context, phone string, hashedPassword, nickname *string) (*database.User, error)
	CreateWithEmail(ctx context.Context, email, hashedPassword string, nickname *string) (*database.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch database.ProfilePatch) (*database.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
}

// Service defines the authentication service interface.
type Service interface {
	SendCode(ctx context.Context, phone string) (*SendCodeResult, error)
	LoginPhoneSMS(ctx context.Context, phone, code string) (*AuthResult, error)
	LoginPhonePassword(ctx context.Context, phone, password string) (*AuthResult, error)
	LoginEmailPassword(ctx context.Context, email, password string) (*AuthResult, error)
	RegisterPhone(ctx context.Context, req PhoneRegisterRequest) (*AuthResult, error)
	RegisterEmail(ctx context.Context, req EmailRegisterRequest) (*AuthResult, error)
	SetPassword(ctx context.Context, req SetPasswordRequest) error
	Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserProfile, error)
}

type service struct {
	users  UserStore
	codes  codestore.Store
	sender sms.Sender
	tokens *TokenIssuer
	log    *slog.Logger
}

// NewService creates the authentication service.
func NewService(users UserStore, codes codestore.Store, sender sms.Sender, tokens *TokenIssuer, log *slog.Logger) Service {
	return &service{
		users:  users,
		codes:  codes,
		sender: sender,
		tokens: tokens,
		log:    log,
	}
}

// SendCode generates a 6-digit code, stores it with TTL and dispatches it.
func (s *service) SendCode(ctx context.Context, phone string) (*SendCodeResult, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	if err := s.codes.Set(ctx, codestore.Key(phone), code, CodeTTL); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	if err := s.sender.SendCode(phone, code); err != nil {
		return nil, fmt.Errorf("dispatch code: %w", err)
	}

	result := &SendCodeResult{
		Message:   "验证码已发送",
		ExpiresIn: int(CodeTTL.Seconds()),
	}
	if !config.IsProduction() {
		result.DebugCode = code
	}
	return result, nil
}

// verifyCode consumes the stored code for key; the consumed code cannot be
// replayed even when deletion fails only on the store side.
func (s *service) verifyCode(ctx context.Context, key, code string) error {
	stored, err := s.codes.Get(ctx, key)
	if err != nil || stored != code {
		return ErrInvalidCode
	}
	if err := s.codes.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete consumed verification code", "key", key, "error", err)
	}
	return nil
}

func (s *service) LoginPhoneSMS(ctx context.Context, phone, code string) (*AuthResult, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}
	if err := s.verifyCode(ctx, codestore.Key(phone), code); err != nil {
		return nil, err
	}

	isNew := false
	user, err := s.users.GetByPhone(ctx, phone)
	if errors.Is(err, database.ErrUserNotFound) {
		user, err = s.users.CreateWithPhone(ctx, phone, nil, nil)
		isNew = true
	}
	if err != nil {
		return nil, fmt.Errorf("load or create user: %w", err)
	}

	return s.authResult(user, isNew)
}

func (s *service) LoginPhonePassword(ctx context.Context, phone, password string) (*AuthResult, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrPhoneNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.HashedPassword == nil {
		return nil, ErrNoPasswordSMS
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.HashedPassword), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}

	return s.authResult(user, false)
}

func (s *service) LoginEmailPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrEmailNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.HashedPassword == nil {
		return nil, ErrNoPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.HashedPassword), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}

	return s.authResult(user, false)
}

func (s *service) RegisterPhone(ctx context.Context, req PhoneRegisterRequest) (*AuthResult, error) {
	if !phonePattern.MatchString(req.Phone) {
		return nil, ErrInvalidPhone
	}
	if err := s.verifyCode(ctx, codestore.Key(req.Phone), req.Code); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByPhone(ctx, req.Phone); err == nil {
		return nil, ErrPhoneRegistered
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("check phone: %w", err)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateWithPhone(ctx, req.Phone, &hashed, req.Nickname)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrPhoneRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.authResult(user, true)
}

func (s *service) RegisterEmail(ctx context.Context, req EmailRegisterRequest) (*AuthResult, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailRegistered
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateWithEmail(ctx, req.Email, hashed, req.Nickname)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrEmailRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.authResult(user, true)
}

func (s *service) SetPassword(ctx context.Context, req SetPasswordRequest) error {
	var (
		user *database.User
		err  error
		key  string
	)

	switch {
	case req.Phone != "":
		key = codestore.Key(req.Phone)
		if err := s.verifyCode(ctx, key, req.Code); err != nil {
			return err
		}
		user, err = s.users.GetByPhone(ctx, req.Phone)
	case req.Email != "":
		key = codestore.Key(req.Email)
		if err := s.verifyCode(ctx, key, req.Code); err != nil {
			return err
		}
		user, err = s.users.GetByEmail(ctx, req.Email)
	default:
		return ErrMissingIdentifier
	}

	if errors.Is(err, database.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, user.ID, hashed)
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return profileFromUser(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserProfile, error) {
	patch := database.ProfilePatch{
		Nickname: req.Nickname,
		Avatar:   req.Avatar,
		Gender:   req.Gender,
		Email:    req.Email,
	}

	user, err := s.users.UpdateProfile(ctx, userID, patch)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrEmailInUse
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profileFromUser(user), nil
}

func (s *service) authResult(user *database.User, isNew bool) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:      profileFromUser(user),
		Token:     token,
		IsNewUser: isNew,
	}, nil
}

func hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
