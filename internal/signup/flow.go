// Package signup implements the phone-OTP signup flow: collect the profile,
// request a code, verify it, and hand back a session credential.
package signup

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stwalsh4118/michraz/internal/authclient"
)

// Step is a state of the signup flow.
type Step string

const (
	StepForm     Step = "form"
	StepSending  Step = "sending"
	StepOTP      Step = "otp"
	StepVerified Step = "verified"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

// DefaultCooldownSeconds is how long resend stays disabled after a code is sent.
const DefaultCooldownSeconds = 59

// AuthService is the part of the auth platform the flow depends on.
// *authclient.Client implements it.
type AuthService interface {
	RequestCode(ctx context.Context, req authclient.CodeRequest) error
	VerifyCode(ctx context.Context, phone, code string) (*authclient.Tokens, error)
}

// Form is the profile collected on the first step.
type Form struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	IsReservist bool   `json:"is_reservist"`
	HasProperty bool   `json:"has_property"`
	IsCombat    bool   `json:"is_combat"`
}

// State is a point-in-time copy of a flow for API responses.
type State struct {
	UpdatedAt       time.Time `json:"updated_at"`
	ID              string    `json:"flow_id"`
	Step            Step      `json:"step"`
	Code            string    `json:"code"`
	PhoneLastDigits string    `json:"phone_last_digits"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Form            Form      `json:"form"`
	ResendCooldown  int       `json:"resend_cooldown"`
	Pending         bool      `json:"pending"`
}

// Options tunes timing. Zero values fall back to the defaults.
type Options struct {
	Now             func() time.Time
	CooldownSeconds int
	Tick            time.Duration
}

func (o Options) withDefaults() Options {
	if o.CooldownSeconds <= 0 {
		o.CooldownSeconds = DefaultCooldownSeconds
	}
	if o.Tick <= 0 {
		o.Tick = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Flow is one signup attempt. All methods are safe for concurrent use; at
// most one auth call is in flight at a time and a second caller gets ErrBusy.
// Closing a flow cancels its in-flight call and discards the late result.
type Flow struct {
	updatedAt time.Time
	auth      AuthService
	ctx       context.Context
	cancel    context.CancelFunc
	cooldown  *Cooldown
	opts      Options
	id        string
	step      Step
	code      string
	errCode   string
	errMsg    string
	form      Form
	mu        sync.Mutex
	pending   bool
}

// NewFlow creates a flow on the form step.
func NewFlow(id string, auth AuthService, opts Options) *Flow {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Flow{
		id:        id,
		auth:      auth,
		opts:      opts,
		step:      StepForm,
		ctx:       ctx,
		cancel:    cancel,
		updatedAt: opts.Now(),
	}
}

// ID returns the flow identifier.
func (f *Flow) ID() string {
	return f.id
}

// Submit stores the form and requests a code. On success the flow moves to
// the code step and the resend cooldown starts; on failure it returns to the
// form step carrying the error message.
func (f *Flow) Submit(ctx context.Context, form Form) error {
	f.mu.Lock()
	if err := f.beginLocked(StepForm); err != nil {
		f.mu.Unlock()
		return err
	}
	f.form = form
	f.step = StepSending
	req := f.codeRequestLocked()
	f.mu.Unlock()

	err := f.call(ctx, func(callCtx context.Context) error {
		return f.auth.RequestCode(callCtx, req)
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.endLocked(); stale != nil {
		return stale
	}
	if err != nil {
		mapped := mapRequestError(err)
		f.step = StepForm
		f.setErrorLocked(mapped)
		return mapped
	}

	f.step = StepOTP
	f.code = ""
	f.restartCooldownLocked()
	return nil
}

// Resend repeats the code request without changing step. It is refused while
// the cooldown runs; the cooldown restarts only when the request succeeds.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	if err := f.readyLocked(StepOTP); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.cooldown.Active() {
		f.mu.Unlock()
		return ErrResendCooldown
	}
	f.markPendingLocked()
	req := f.codeRequestLocked()
	f.mu.Unlock()

	err := f.call(ctx, func(callCtx context.Context) error {
		return f.auth.RequestCode(callCtx, req)
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.endLocked(); stale != nil {
		return stale
	}
	if err != nil {
		mapped := mapRequestError(err)
		f.setErrorLocked(mapped)
		return mapped
	}

	f.restartCooldownLocked()
	return nil
}

// SetCode stores the code as typed, keeping digits only.
func (f *Flow) SetCode(raw string) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closedLocked() {
		return f.stateLocked(), ErrFlowClosed
	}
	if f.step != StepOTP {
		return f.stateLocked(), ErrWrongStep
	}
	f.code = SanitizeCode(raw)
	f.touchLocked()
	return f.stateLocked(), nil
}

// Verify checks the code with the auth platform. An empty raw code uses the
// code stored by SetCode. On failure the code is kept and the flow stays on
// the code step.
func (f *Flow) Verify(ctx context.Context, raw string) (*authclient.Tokens, error) {
	f.mu.Lock()
	if err := f.beginLocked(StepOTP); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if raw != "" {
		f.code = SanitizeCode(raw)
	}
	if len(f.code) != CodeLength {
		f.pending = false
		f.setErrorLocked(ErrIncompleteCode)
		f.mu.Unlock()
		return nil, ErrIncompleteCode
	}
	phone, code := f.form.Phone, f.code
	f.mu.Unlock()

	var tokens *authclient.Tokens
	err := f.call(ctx, func(callCtx context.Context) error {
		var verr error
		tokens, verr = f.auth.VerifyCode(callCtx, phone, code)
		return verr
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.endLocked(); stale != nil {
		return nil, stale
	}
	if err != nil {
		mapped := mapVerifyError(err)
		f.setErrorLocked(mapped)
		return nil, mapped
	}

	f.step = StepVerified
	f.cooldown.Stop()
	f.cooldown = nil
	return tokens, nil
}

// Back returns from the code step to the form, clearing the code and error
// but keeping the entered profile.
func (f *Flow) Back() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closedLocked() {
		return f.stateLocked(), ErrFlowClosed
	}
	if f.pending {
		return f.stateLocked(), ErrBusy
	}
	if f.step != StepOTP {
		return f.stateLocked(), ErrWrongStep
	}

	f.step = StepForm
	f.code = ""
	f.clearErrorLocked()
	f.cooldown.Stop()
	f.cooldown = nil
	f.touchLocked()
	return f.stateLocked(), nil
}

// Close cancels any in-flight call and stops the cooldown. Idempotent.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancel()
	f.cooldown.Stop()
	f.cooldown = nil
}

// State returns a snapshot of the flow.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// UpdatedAt returns the time of the last state change.
func (f *Flow) UpdatedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatedAt
}

// beginLocked validates that an auth call may start from step and marks the
// flow pending.
func (f *Flow) beginLocked(step Step) error {
	if err := f.readyLocked(step); err != nil {
		return err
	}
	f.markPendingLocked()
	return nil
}

// readyLocked reports why a call on step cannot start, without changing state.
func (f *Flow) readyLocked(step Step) error {
	if f.closedLocked() {
		return ErrFlowClosed
	}
	if f.pending {
		return ErrBusy
	}
	if f.step != step {
		return ErrWrongStep
	}
	return nil
}

func (f *Flow) markPendingLocked() {
	f.pending = true
	f.clearErrorLocked()
	f.touchLocked()
}

// endLocked clears the pending mark. It returns ErrFlowClosed when the flow
// was closed during the call, in which case the result must be dropped.
func (f *Flow) endLocked() error {
	f.pending = false
	if f.closedLocked() {
		return ErrFlowClosed
	}
	f.touchLocked()
	return nil
}

// call runs fn with a context cancelled by either the caller or Close.
func (f *Flow) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(f.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()
	return fn(callCtx)
}

func (f *Flow) closedLocked() bool {
	return f.ctx.Err() != nil
}

func (f *Flow) codeRequestLocked() authclient.CodeRequest {
	return authclient.CodeRequest{
		Phone:       f.form.Phone,
		FirstName:   f.form.FirstName,
		LastName:    f.form.LastName,
		IsReservist: f.form.IsReservist,
		HasProperty: f.form.HasProperty,
		IsCombat:    f.form.IsCombat,
	}
}

func (f *Flow) restartCooldownLocked() {
	f.cooldown.Stop()
	f.cooldown = StartCooldown(f.opts.CooldownSeconds, f.opts.Tick)
}

func (f *Flow) setErrorLocked(err error) {
	if fe, ok := AsFlowError(err); ok {
		f.errCode = fe.Code
		f.errMsg = fe.Message
		return
	}
	f.errCode = ErrVerifyFailed.Code
	f.errMsg = ErrVerifyFailed.Message
}

func (f *Flow) clearErrorLocked() {
	f.errCode = ""
	f.errMsg = ""
}

func (f *Flow) touchLocked() {
	f.updatedAt = f.opts.Now()
}

func (f *Flow) stateLocked() State {
	return State{
		ID:              f.id,
		Step:            f.step,
		Form:            f.form,
		Code:            f.code,
		PhoneLastDigits: lastDigits(f.form.Phone, 4),
		ErrorCode:       f.errCode,
		ErrorMessage:    f.errMsg,
		ResendCooldown:  f.cooldown.Remaining(),
		Pending:         f.pending,
		UpdatedAt:       f.updatedAt,
	}
}

// SanitizeCode keeps the digits of raw, truncated to CodeLength.
func SanitizeCode(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) > CodeLength {
		digits = digits[:CodeLength]
	}
	return digits
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lastDigits(phone string, n int) string {
	digits := onlyDigits(phone)
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}
