package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobportal-bot/internal/models"
)

const MinPasswordLength = 8

type StepName string

const (
	StepDetails  StepName = "details"
	StepOTP      StepName = "otp"
	StepComplete StepName = "complete"
)

// Registrar is the part of the portal client the registration flow uses.
type Registrar interface {
	Register(ctx context.Context, reg models.Registration) error
	VerifyOTP(ctx context.Context, email, code string) (models.Tokens, error)
	ResendOTP(ctx context.Context, email string) error
}

type RegistrationForm struct {
	Email     string      `json:"email"`
	Password  string      `json:"password,omitempty"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      models.Role `json:"role"`
}

func (f RegistrationForm) normalized() RegistrationForm {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	return f
}

func (f RegistrationForm) Validate() error {
	v := &ValidationError{}
	if f.Email == "" {
		v.Add("email", "Email is required.")
	} else if !validEmail(f.Email) {
		v.Add("email", "Enter a valid email address.")
	}
	if len(f.Password) < MinPasswordLength {
		v.Add("password", fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	if f.FirstName == "" {
		v.Add("first_name", "First name is required.")
	}
	if !f.Role.Valid() {
		v.Add("role", "Choose candidate or employer.")
	}
	return v.Err()
}

// DetailsStep collects account details. Its only way forward is a
// successful register call.
type DetailsStep struct {
	Form RegistrationForm
}

func NewRegistration() DetailsStep {
	return DetailsStep{}
}

// Submit validates the form, registers the account and moves to the OTP
// step. On any error the caller stays on the details step.
func (s DetailsStep) Submit(ctx context.Context, api Registrar, now time.Time) (*OTPStep, error) {
	form := s.Form.normalized()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	err := api.Register(ctx, models.Registration{
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      form.Role,
	})
	if err != nil {
		return nil, fieldErrors(err)
	}

	// the password is not needed past this point
	form.Password = ""
	return &OTPStep{
		Form:     form,
		Cooldown: StartCooldown(now, ResendCooldown),
	}, nil
}

func (s DetailsStep) Snapshot() RegistrationSnapshot {
	form := s.Form
	form.Password = ""
	return RegistrationSnapshot{Step: StepDetails, Form: form}
}

// OTPStep waits for the emailed code.
type OTPStep struct {
	Form     RegistrationForm
	Cooldown Cooldown
}

func (s *OTPStep) Email() string { return s.Form.Email }

// Back returns to the details form; the password has to be re-entered.
func (s *OTPStep) Back() DetailsStep {
	return DetailsStep{Form: s.Form}
}

// Verify checks the code with the portal. A malformed code is rejected
// without a request; a rejected code keeps the wizard on this step and
// returns the portal error unchanged.
func (s *OTPStep) Verify(ctx context.Context, api Registrar, code string) (*CompleteStep, error) {
	code = strings.TrimSpace(code)
	if !ValidOTP(code) {
		return nil, &ValidationError{Fields: map[string]string{"otp": "Enter the 6-digit code."}}
	}

	tokens, err := api.VerifyOTP(ctx, s.Form.Email, code)
	if err != nil {
		return nil, err
	}

	return &CompleteStep{Email: s.Form.Email, Role: s.Form.Role, Tokens: tokens}, nil
}

// Resend asks for a new code unless the cooldown is still running. A
// successful resend restarts the cooldown.
func (s *OTPStep) Resend(ctx context.Context, api Registrar, now time.Time) error {
	if err := s.Cooldown.check(now); err != nil {
		return err
	}
	if err := api.ResendOTP(ctx, s.Form.Email); err != nil {
		return err
	}
	s.Cooldown = StartCooldown(now, ResendCooldown)
	return nil
}

func (s *OTPStep) Snapshot() RegistrationSnapshot {
	return RegistrationSnapshot{Step: StepOTP, Form: s.Form, Cooldown: s.Cooldown}
}

// CompleteStep is terminal.
type CompleteStep struct {
	Email  string
	Role   models.Role
	Tokens models.Tokens
}

// RegistrationSnapshot is the persisted form of a registration in
// progress. Passwords are never part of it.
type RegistrationSnapshot struct {
	Step     StepName         `json:"step"`
	Form     RegistrationForm `json:"form"`
	Cooldown Cooldown         `json:"cooldown"`
}

func (s RegistrationSnapshot) Details() (DetailsStep, bool) {
	if s.Step != StepDetails {
		return DetailsStep{}, false
	}
	return DetailsStep{Form: s.Form}, true
}

func (s RegistrationSnapshot) OTP() (*OTPStep, bool) {
	if s.Step != StepOTP {
		return nil, false
	}
	return &OTPStep{Form: s.Form, Cooldown: s.Cooldown}, true
}
