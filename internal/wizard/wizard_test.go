package wizard

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/models"
)

type fakeRegistrar struct {
	registerErr error
	verifyErr   error
	registered  []models.Registration
	verified    []string
	resent      int
}

func (f *fakeRegistrar) Register(_ context.Context, reg models.Registration) error {
	f.registered = append(f.registered, reg)
	return f.registerErr
}

func (f *fakeRegistrar) VerifyOTP(_ context.Context, email, code string) (models.Tokens, error) {
	f.verified = append(f.verified, code)
	if f.verifyErr != nil {
		return models.Tokens{}, f.verifyErr
	}
	return models.Tokens{Access: "a", Refresh: "r"}, nil
}

func (f *fakeRegistrar) ResendOTP(context.Context, string) error {
	f.resent++
	return nil
}

func validForm() RegistrationForm {
	return RegistrationForm{
		Email:     " Dev@Example.com ",
		Password:  "correct-horse",
		FirstName: "Alex",
		Role:      models.RoleCandidate,
	}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestValidOTP(t *testing.T) {
	require.False(t, ValidOTP("12345"))
	require.True(t, ValidOTP("123456"))
	require.True(t, ValidOTP(" 123456 "))
	require.False(t, ValidOTP("1234567"))
	require.False(t, ValidOTP("12a456"))
	require.False(t, ValidOTP("١٢٣٤٥٦"))
}

func TestDetailsValidationBlocksRequest(t *testing.T) {
	api := &fakeRegistrar{}
	step := DetailsStep{Form: RegistrationForm{Email: "nope", Password: "short"}}

	next, err := step.Submit(context.Background(), api, t0)
	require.Nil(t, next)

	var v *ValidationError
	require.ErrorAs(t, err, &v)
	require.Contains(t, v.Fields, "email")
	require.Contains(t, v.Fields, "password")
	require.Contains(t, v.Fields, "first_name")
	require.Contains(t, v.Fields, "role")
	require.Empty(t, api.registered)
}

func TestRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	api := &fakeRegistrar{}

	otp, err := DetailsStep{Form: validForm()}.Submit(ctx, api, t0)
	require.NoError(t, err)
	require.Equal(t, "dev@example.com", otp.Email())
	require.Equal(t, "dev@example.com", api.registered[0].Email)
	require.Empty(t, otp.Form.Password)

	_, err = otp.Verify(ctx, api, "12345")
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	require.Empty(t, api.verified, "short code never reaches the portal")

	done, err := otp.Verify(ctx, api, "123456")
	require.NoError(t, err)
	require.Equal(t, "a", done.Tokens.Access)
	require.Equal(t, models.RoleCandidate, done.Role)
}

func TestWrongCodeStaysOnOTP(t *testing.T) {
	ctx := context.Background()
	rejected := &portal.APIError{Status: http.StatusBadRequest, Detail: "Invalid OTP. 2 attempts left."}
	api := &fakeRegistrar{verifyErr: rejected}

	otp, err := DetailsStep{Form: validForm()}.Submit(ctx, api, t0)
	require.NoError(t, err)

	done, err := otp.Verify(ctx, api, "000000")
	require.Nil(t, done)
	require.Equal(t, "Invalid OTP. 2 attempts left.", portal.Describe(err))
	require.Equal(t, StepOTP, otp.Snapshot().Step)
}

func TestBackendFieldErrors(t *testing.T) {
	api := &fakeRegistrar{registerErr: &portal.APIError{
		Status: http.StatusBadRequest,
		Fields: map[string][]string{"email": {"user with this email already exists."}},
	}}

	_, err := DetailsStep{Form: validForm()}.Submit(context.Background(), api, t0)
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	require.Equal(t, "user with this email already exists.", v.Fields["email"])

	api.registerErr = errors.New("down")
	_, err = DetailsStep{Form: validForm()}.Submit(context.Background(), api, t0)
	require.False(t, errors.As(err, &v))
}

func TestResendCooldown(t *testing.T) {
	ctx := context.Background()
	api := &fakeRegistrar{}

	otp, err := DetailsStep{Form: validForm()}.Submit(ctx, api, t0)
	require.NoError(t, err)
	require.Equal(t, 60, otp.Cooldown.Remaining(t0))
	require.Equal(t, 59, otp.Cooldown.Remaining(t0.Add(time.Second)))
	require.Equal(t, 1, otp.Cooldown.Remaining(t0.Add(59500*time.Millisecond)))

	err = otp.Resend(ctx, api, t0.Add(10*time.Second))
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	require.Equal(t, 50, cd.Remaining)
	require.ErrorIs(t, err, ErrCooldown)
	require.Zero(t, api.resent)

	require.NoError(t, otp.Resend(ctx, api, t0.Add(ResendCooldown)))
	require.Equal(t, 1, api.resent)
	require.False(t, otp.Cooldown.Ready(t0.Add(ResendCooldown+time.Second)))
}

func TestRegistrationSnapshot(t *testing.T) {
	otp, err := DetailsStep{Form: validForm()}.Submit(context.Background(), &fakeRegistrar{}, t0)
	require.NoError(t, err)

	snap := otp.Snapshot()
	_, ok := snap.Details()
	require.False(t, ok)

	restored, ok := snap.OTP()
	require.True(t, ok)
	require.Equal(t, otp.Form, restored.Form)
	require.Equal(t, otp.Cooldown, restored.Cooldown)

	back := restored.Back()
	require.Equal(t, StepDetails, back.Snapshot().Step)
	require.Equal(t, "dev@example.com", back.Form.Email)
}

type fakeSaver struct {
	calls int
	logo  *portal.Upload
}

func (f *fakeSaver) SaveEmployerProfile(_ context.Context, p models.EmployerProfile, logo *portal.Upload) (*models.EmployerProfile, error) {
	f.calls++
	f.logo = logo
	if logo != nil {
		p.LogoURL = "/media/" + logo.Name
	}
	return &p, nil
}

func TestEmployerProfileWizard(t *testing.T) {
	ctx := context.Background()

	_, err := CompanyStep{Profile: models.EmployerProfile{Website: "acme.io"}}.Submit()
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	require.Contains(t, v.Fields, "company_name")
	require.Contains(t, v.Fields, "website")

	logoStep, err := CompanyStep{Profile: models.EmployerProfile{CompanyName: " Acme ", Website: "https://acme.io"}}.Submit()
	require.NoError(t, err)
	require.Equal(t, "Acme", logoStep.Profile.CompanyName)

	saver := &fakeSaver{}
	_, err = logoStep.Upload(ctx, saver, portal.Upload{Name: "logo.gif", Data: []byte("GIF89a....")})
	require.ErrorAs(t, err, &v)
	require.Equal(t, "Logo must be a JPEG or PNG image.", v.Fields["logo"])
	require.Zero(t, saver.calls)

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}
	done, err := logoStep.Upload(ctx, saver, portal.Upload{Name: "logo.png", Data: png})
	require.NoError(t, err)
	require.Equal(t, "/media/logo.png", done.Profile.LogoURL)

	done, err = logoStep.Skip(ctx, saver)
	require.NoError(t, err)
	require.Nil(t, saver.logo)
	require.Empty(t, done.Profile.LogoURL)
}
