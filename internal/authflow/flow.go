// Package authflow drives the multi-channel login/register flow. It owns the
// form state for the three credential channels, maps (mode, channel) to the
// fixed auth endpoints, and writes the session store on success.
package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"yaothink/internal/results"
	"yaothink/internal/session"
)

// Mode selects between logging into an existing account and creating one.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Channel is one of the three credential combinations.
type Channel string

const (
	ChannelPhoneSMS      Channel = "phone-sms"
	ChannelPhonePassword Channel = "phone-password"
	ChannelEmailPassword Channel = "email-password"
)

// State is the flow's lifecycle position. A failed submission lands in
// Failed; the next field edit or switch returns the flow to Filling so the
// user can correct and retry. Nothing retries automatically.
type State string

const (
	StateSelectingChannel State = "selecting-channel"
	StateFilling          State = "filling"
	StateSubmitting       State = "submitting"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

// CodeCooldown is how long re-requesting a verification code stays disabled
// after a successful request. Client-side and advisory only; the server owns
// code expiry.
const CodeCooldown = 60 * time.Second

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission is still pending.
var ErrSubmitInFlight = errors.New("请求处理中，请稍候")

// ValidationError is a client-side pre-submit check failure. It never
// reaches the network and never overrides a server-reported message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Fields holds everything the user has typed. A mode or channel switch
// clears the whole set so values never leak across channels.
type Fields struct {
	Phone    string
	Code     string
	Password string
	Email    string
	Nickname string
}

// API is the outbound surface the flow needs; *apiclient.Client satisfies it.
type API interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Flow is the auth state machine. Safe for concurrent use; network calls are
// made without holding the lock.
type Flow struct {
	api      API
	sessions *session.Store
	log      *slog.Logger
	now      func() time.Time

	// onSuccess closes the auth surface after a successful login/register.
	onSuccess func()

	mu            sync.Mutex
	mode          Mode
	channel       Channel
	state         State
	fields        Fields
	submitting    bool
	cooldownUntil time.Time
	lastError     string
}

// Option customizes a Flow.
type Option func(*Flow)

// WithOnSuccess sets the callback fired after a successful submission.
func WithOnSuccess(fn func()) Option {
	return func(f *Flow) { f.onSuccess = fn }
}

// WithClock overrides the time source (tests drive the cooldown with it).
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Flow) { f.log = log }
}

// New creates a flow in login mode on the phone-sms channel.
func New(api API, sessions *session.Store, opts ...Option) *Flow {
	f := &Flow{
		api:      api,
		sessions: sessions,
		log:      slog.Default(),
		now:      time.Now,
		mode:     ModeLogin,
		channel:  ChannelPhoneSMS,
		state:    StateSelectingChannel,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Mode returns the current mode.
func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Channel returns the current channel.
func (f *Flow) Channel() Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channel
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Fields returns a copy of the entered field values.
func (f *Flow) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// LastError returns the most recent surfaced error message, empty when the
// last operation succeeded.
func (f *Flow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// Submitting reports whether a submission is in flight.
func (f *Flow) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// CooldownRemaining returns how long code re-requests stay disabled; zero
// when requesting is allowed.
func (f *Flow) CooldownRemaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	remaining := f.cooldownUntil.Sub(f.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetMode switches between login and register. Any switch clears the form;
// register has no phone-password channel, so that combination auto-corrects
// to phone-sms.
func (f *Flow) SetMode(mode Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if mode == f.mode {
		return
	}
	f.mode = mode
	if f.mode == ModeRegister && f.channel == ChannelPhonePassword {
		f.channel = ChannelPhoneSMS
	}
	f.resetFormLocked()
}

// SetChannel switches the credential channel, clearing the form. Selecting
// phone-password in register mode auto-corrects to phone-sms.
func (f *Flow) SetChannel(channel Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == ModeRegister && channel == ChannelPhonePassword {
		channel = ChannelPhoneSMS
	}
	if channel == f.channel {
		return
	}
	f.channel = channel
	f.resetFormLocked()
}

func (f *Flow) resetFormLocked() {
	f.fields = Fields{}
	f.state = StateFilling
	f.lastError = ""
}

// SetPhone records the phone field.
func (f *Flow) SetPhone(v string) { f.setField(func(fl *Fields) { fl.Phone = v }) }

// SetCode records the verification-code field.
func (f *Flow) SetCode(v string) { f.setField(func(fl *Fields) { fl.Code = v }) }

// SetPassword records the password field.
func (f *Flow) SetPassword(v string) { f.setField(func(fl *Fields) { fl.Password = v }) }

// SetEmail records the email field.
func (f *Flow) SetEmail(v string) { f.setField(func(fl *Fields) { fl.Email = v }) }

// SetNickname records the optional nickname field.
func (f *Flow) SetNickname(v string) { f.setField(func(fl *Fields) { fl.Nickname = v }) }

func (f *Flow) setField(apply func(*Fields)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	apply(&f.fields)
	if f.state == StateSelectingChannel || f.state == StateFailed {
		f.state = StateFilling
	}
}

type sendCodeResult struct {
	Message   string `json:"message"`
	DebugCode string `json:"debug_code"`
}

// RequestCode asks the server to send a verification code to the entered
// phone number. Invalid phone numbers are rejected locally without touching
// the network; within the cooldown window the call is a no-op.
func (f *Flow) RequestCode(ctx context.Context) error {
	f.mu.Lock()
	phone := f.fields.Phone
	if !phonePattern.MatchString(phone) {
		f.mu.Unlock()
		return &ValidationError{Field: "phone", Message: "请输入正确的手机号"}
	}
	if f.cooldownUntil.After(f.now()) {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	var result sendCodeResult
	if err := f.api.Post(ctx, "/api/auth/send-code", map[string]string{"phone": phone}, &result); err != nil {
		f.mu.Lock()
		f.lastError = err.Error()
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.cooldownUntil = f.now().Add(CodeCooldown)
	f.lastError = ""
	// Development servers echo the generated code back; pre-fill it.
	if result.DebugCode != "" {
		f.fields.Code = result.DebugCode
	}
	f.mu.Unlock()

	f.log.Debug("verification code requested", "phone", phone)
	return nil
}

type authPayload struct {
	User      *session.User   `json:"user"`
	Token     json.RawMessage `json:"token"`
	IsNewUser bool            `json:"is_new_user"`
}

// Submit validates the form, posts to the endpoint selected by the current
// (mode, channel) pair and, on success, logs the session store in, clears
// the form and fires the success callback. Failures leave the flow in
// Filling with the server's message surfaced verbatim; nothing auto-retries.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	if err := f.validateLocked(); err != nil {
		f.lastError = err.Message
		f.mu.Unlock()
		return err
	}
	endpoint, payload := f.requestLocked()
	f.submitting = true
	f.state = StateSubmitting
	f.mu.Unlock()

	var result authPayload
	err := f.api.Post(ctx, endpoint, payload, &result)

	f.mu.Lock()
	// The busy flag is released on every path, success or failure.
	f.submitting = false
	if err != nil {
		f.state = StateFailed
		f.lastError = err.Error()
		f.mu.Unlock()
		return err
	}

	token := results.NormalizeToken(result.Token)
	f.sessions.Login(result.User, token)
	f.state = StateSucceeded
	f.fields = Fields{}
	f.lastError = ""
	onSuccess := f.onSuccess
	isNew := result.IsNewUser
	f.mu.Unlock()

	f.log.Info("authentication succeeded", "endpoint", endpoint, "is_new_user", isNew)
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// requestLocked maps (mode, channel) to its endpoint and payload.
func (f *Flow) requestLocked() (string, map[string]string) {
	payload := map[string]string{}

	if f.mode == ModeLogin {
		switch f.channel {
		case ChannelPhonePassword:
			payload["phone"] = f.fields.Phone
			payload["password"] = f.fields.Password
			return "/api/auth/login/phone-password", payload
		case ChannelEmailPassword:
			payload["email"] = f.fields.Email
			payload["password"] = f.fields.Password
			return "/api/auth/login/email-password", payload
		default:
			payload["phone"] = f.fields.Phone
			payload["code"] = f.fields.Code
			return "/api/auth/login/phone-sms", payload
		}
	}

	if f.channel == ChannelEmailPassword {
		payload["email"] = f.fields.Email
		payload["password"] = f.fields.Password
		if f.fields.Nickname != "" {
			payload["nickname"] = f.fields.Nickname
		}
		return "/api/auth/register/email", payload
	}

	// Register over phone always goes through the SMS endpoint; the
	// phone-password combination cannot be reached here.
	payload["phone"] = f.fields.Phone
	payload["code"] = f.fields.Code
	payload["password"] = f.fields.Password
	if f.fields.Nickname != "" {
		payload["nickname"] = f.fields.Nickname
	}
	return "/api/auth/register/phone", payload
}

// validateLocked runs the advisory pre-submit checks for the active
// (mode, channel) pair. The server remains the source of truth.
func (f *Flow) validateLocked() *ValidationError {
	usesPhone := f.channel == ChannelPhoneSMS || f.channel == ChannelPhonePassword
	usesCode := f.channel == ChannelPhoneSMS
	usesPassword := f.channel != ChannelPhoneSMS || f.mode == ModeRegister

	if usesPhone && !phonePattern.MatchString(f.fields.Phone) {
		return &ValidationError{Field: "phone", Message: "请输入正确的手机号"}
	}
	if usesCode && len([]rune(f.fields.Code)) != 6 {
		return &ValidationError{Field: "code", Message: "请输入6位验证码"}
	}
	if f.channel == ChannelEmailPassword && !emailPattern.MatchString(f.fields.Email) {
		return &ValidationError{Field: "email", Message: "请输入正确的邮箱格式"}
	}
	if usesPassword && len([]rune(f.fields.Password)) < 6 {
		return &ValidationError{Field: "password", Message: "密码至少6位"}
	}
	return nil
}

// Reset returns the flow to its initial state, e.g. when the auth surface
// closes. The code-request cooldown deliberately survives a reset.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mode = ModeLogin
	f.channel = ChannelPhoneSMS
	f.state = StateSelectingChannel
	f.fields = Fields{}
	f.lastError = ""
}
