package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"
	"jobportal-bot/internal/storage/redis"
	"jobportal-bot/internal/wizard"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const loginTTL = 10 * time.Minute

// /register command
func HandleRegister(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		if _, err := ctx.user(opCtx, c); err != nil {
			ctx.Logger.Error("get user failed", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		if ctx.session(userID).Authenticated(opCtx) {
			return c.Send("ℹ️ You are already signed in. Use /logout to switch accounts.")
		}

		resetFlows(opCtx, ctx, userID)

		return c.Send(
			"📝 *Create an account*\n\nAre you looking for work or hiring?",
			utils.RoleKeyboard(),
			tele.ModeMarkdownV2,
		)
	}
}

func handleRoleChosen(ctx *Context, c tele.Context, cb utils.Callback) error {
	userID := c.Sender().ID
	role := models.Role(cb.Arg(0))
	if !role.Valid() {
		return respond(c, "❌ Unknown account type")
	}

	opCtx, cancel := opContext()
	defer cancel()

	step := wizard.NewRegistration()
	step.Form.Role = role
	if err := ctx.Cache.SetWizard(opCtx, userID, wizardRegister, step.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Something went wrong")
	}
	if err := ctx.Cache.SetConversation(opCtx, userID, StateRegEmail); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Something went wrong")
	}

	_ = respond(c, "")
	return show(c, "📧 *Step 1/4*\n\nSend your email address\\.", nil)
}

func loadRegistration(opCtx context.Context, ctx *Context, userID int64) (wizard.RegistrationSnapshot, bool) {
	var snap wizard.RegistrationSnapshot
	ok, err := ctx.Cache.GetWizard(opCtx, userID, wizardRegister, &snap)
	if err != nil {
		ctx.Logger.Warn("failed to load wizard", zap.Int64("user_id", userID), zap.Error(err))
		return snap, false
	}
	return snap, ok
}

// registrationPrompts maps each details state to its question.
var registrationPrompts = map[string]string{
	StateRegEmail:     "📧 *Step 1/4*\n\nSend your email address\\.",
	StateRegFirstName: "👤 *Step 2/4*\n\nSend your first name\\.",
	StateRegLastName:  "👤 *Step 3/4*\n\nSend your last name, or `-` to skip\\.",
	StateRegPassword:  "🔑 *Step 4/4*\n\nSend a password of at least 8 characters\\. I will delete your message right away\\.",
}

var registrationFieldStates = map[string]string{
	"email":      StateRegEmail,
	"first_name": StateRegFirstName,
	"last_name":  StateRegLastName,
	"password":   StateRegPassword,
}

// handleRegistrationInput fills the details form one message at a time.
// The password is never stored: the last answer submits the form.
func handleRegistrationInput(ctx *Context, c tele.Context, state string) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	opCtx, cancel := opContext()
	defer cancel()

	snap, ok := loadRegistration(opCtx, ctx, userID)
	if !ok {
		clearConversation(ctx, userID)
		return c.Send("⌛ Your registration expired. Start again with /register.")
	}

	if state == StateRegOTP {
		return handleOTPInput(opCtx, ctx, c, snap, text)
	}

	details, ok := snap.Details()
	if !ok {
		clearConversation(ctx, userID)
		return c.Send("⌛ Your registration expired. Start again with /register.")
	}

	keep := text == "-"
	next := ""
	switch state {
	case StateRegEmail:
		if !keep {
			details.Form.Email = text
		}
		next = StateRegFirstName
	case StateRegFirstName:
		if !keep {
			details.Form.FirstName = text
		}
		next = StateRegLastName
	case StateRegLastName:
		if keep {
			details.Form.LastName = ""
		} else {
			details.Form.LastName = text
		}
		next = StateRegPassword
	case StateRegPassword:
		if err := c.Delete(); err != nil {
			ctx.Logger.Warn("failed to delete password message", zap.Int64("user_id", userID), zap.Error(err))
		}
		details.Form.Password = text
		return submitRegistration(opCtx, ctx, c, details)
	}

	if err := ctx.Cache.SetWizard(opCtx, userID, wizardRegister, details.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 Something went wrong. Please try again.")
	}
	if err := ctx.Cache.SetConversation(opCtx, userID, next); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 Something went wrong. Please try again.")
	}
	return c.Send(registrationPrompts[next], tele.ModeMarkdownV2)
}

func submitRegistration(opCtx context.Context, ctx *Context, c tele.Context, details wizard.DetailsStep) error {
	userID := c.Sender().ID

	otp, err := details.Submit(opCtx, ctx.Portal, ctx.now())
	if err != nil {
		// the password is stripped from the snapshot either way
		if saveErr := ctx.Cache.SetWizard(opCtx, userID, wizardRegister, details.Snapshot()); saveErr != nil {
			ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(saveErr))
		}

		var v *wizard.ValidationError
		if errors.As(err, &v) {
			return routeValidation(opCtx, ctx, c, v)
		}
		ctx.Logger.Error("registration failed", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 " + portal.Describe(err) + "\n\nSend the password again to retry, or /cancel.")
	}

	if _, err := ctx.Cache.StartOTPCooldown(opCtx, otp.Email(), wizard.ResendCooldown); err != nil {
		ctx.Logger.Warn("failed to start otp cooldown", zap.Error(err))
	}
	if err := ctx.Cache.SetWizard(opCtx, userID, wizardRegister, otp.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 Something went wrong. Please try again.")
	}
	if err := ctx.Cache.SetConversation(opCtx, userID, StateRegOTP); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
	}

	ctx.Logger.Info("registration submitted", zap.Int64("user_id", userID))

	return c.Send(
		fmt.Sprintf("📬 We sent a %d\\-digit code to *%s*\\. Send it here to verify your account\\.",
			wizard.OTPLength, utils.EscapeMarkdown(otp.Email())),
		utils.OTPKeyboard(otp.Cooldown.Remaining(ctx.now())),
		tele.ModeMarkdownV2,
	)
}

// routeValidation shows every field message and moves the conversation
// back to the first field that needs fixing.
func routeValidation(opCtx context.Context, ctx *Context, c tele.Context, v *wizard.ValidationError) error {
	userID := c.Sender().ID

	var sb strings.Builder
	sb.WriteString("❌ Please fix the following:\n")
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("• " + v.Fields[k] + "\n")
	}

	if _, ok := v.Fields["role"]; ok {
		resetFlows(opCtx, ctx, userID)
		return c.Send(sb.String()+"\nChoose the account type again.", utils.RoleKeyboard())
	}

	for _, field := range []string{"email", "first_name", "last_name", "password"} {
		if _, ok := v.Fields[field]; !ok {
			continue
		}
		next := registrationFieldStates[field]
		if err := ctx.Cache.SetConversation(opCtx, userID, next); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
		}
		if err := c.Send(sb.String()); err != nil {
			return err
		}
		return c.Send(registrationPrompts[next], tele.ModeMarkdownV2)
	}

	// only non-field errors: stay on the password step
	return c.Send(sb.String() + "\nSend the password again to retry, or /cancel.")
}

func handleOTPInput(opCtx context.Context, ctx *Context, c tele.Context, snap wizard.RegistrationSnapshot, code string) error {
	userID := c.Sender().ID

	otp, ok := snap.OTP()
	if !ok {
		clearConversation(ctx, userID)
		return c.Send("⌛ Your registration expired. Start again with /register.")
	}

	done, err := otp.Verify(opCtx, ctx.Portal, code)
	if err != nil {
		var v *wizard.ValidationError
		if errors.As(err, &v) {
			return c.Send("❌ " + v.Fields["otp"])
		}
		ctx.Logger.Info("otp rejected", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("❌ " + portal.Describe(err))
	}

	if err := completeLogin(opCtx, ctx, userID, done.Email, done.Role, done.Tokens); err != nil {
		return c.Send("😔 Your account is verified but I could not sign you in. Try /login.")
	}

	resetFlows(opCtx, ctx, userID)

	ctx.Logger.Info("registration completed", zap.Int64("user_id", userID), zap.String("role", string(done.Role)))

	msg := "✅ *Account verified\\!* You are signed in\\.\n\n"
	if done.Role == models.RoleEmployer {
		msg += "Set up your company with /company, then check /dashboard\\."
	} else {
		msg += "Fill in your /profile before applying, then browse /jobs and /internships\\."
	}
	return c.Send(msg, utils.MainMenuKeyboard(done.Role), tele.ModeMarkdownV2)
}

func handleOTPResend(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	snap, _ := loadRegistration(opCtx, ctx, userID)
	otp, ok := snap.OTP()
	if !ok {
		return respond(c, "⌛ Registration expired, use /register")
	}

	now := ctx.now()
	if left := otp.Cooldown.Remaining(now); left > 0 {
		return respond(c, fmt.Sprintf("⏳ Wait %ds before requesting a new code", left))
	}

	// the email-wide slot also covers other chats registering the same address
	left, err := ctx.Cache.StartOTPCooldown(opCtx, otp.Email(), wizard.ResendCooldown)
	if err != nil {
		ctx.Logger.Warn("failed to claim otp cooldown", zap.Error(err))
	} else if left > 0 {
		return respond(c, fmt.Sprintf("⏳ Wait %ds before requesting a new code", int(left.Seconds()+0.999)))
	}

	if err := otp.Resend(opCtx, ctx.Portal, now); err != nil {
		if delErr := ctx.Cache.Delete(opCtx, redis.OTPCooldownKey(otp.Email())); delErr != nil {
			ctx.Logger.Warn("failed to release otp cooldown", zap.Error(delErr))
		}
		var cd *wizard.CooldownError
		if errors.As(err, &cd) {
			return respond(c, fmt.Sprintf("⏳ Wait %ds before requesting a new code", cd.Remaining))
		}
		return ctx.fail(c, userID, "resend otp", err)
	}

	if err := ctx.Cache.SetWizard(opCtx, userID, wizardRegister, otp.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
	}

	if err := c.Edit(utils.OTPKeyboard(otp.Cooldown.Remaining(now))); err != nil {
		ctx.Logger.Debug("failed to refresh otp keyboard", zap.Error(err))
	}
	return respond(c, "📬 A new code is on its way")
}

// handleOTPBack returns to the details form; the password must be
// entered again.
func handleOTPBack(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	snap, _ := loadRegistration(opCtx, ctx, userID)
	otp, ok := snap.OTP()
	if !ok {
		return respond(c, "⌛ Registration expired, use /register")
	}

	details := otp.Back()
	if err := ctx.Cache.SetWizard(opCtx, userID, wizardRegister, details.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Something went wrong")
	}
	if err := ctx.Cache.SetConversation(opCtx, userID, StateRegEmail); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
	}

	_ = respond(c, "")
	return c.Send(
		fmt.Sprintf("✏️ Let's fix your details\\. Send `-` at any step to keep the current value\\.\n\nEmail: *%s*\n\n%s",
			utils.EscapeMarkdown(details.Form.Email), registrationPrompts[StateRegEmail]),
		tele.ModeMarkdownV2,
	)
}

// /login command
func HandleLogin(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		if _, err := ctx.user(opCtx, c); err != nil {
			ctx.Logger.Error("get user failed", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		if ctx.session(userID).Authenticated(opCtx) {
			return c.Send("ℹ️ You are already signed in. Use /logout to switch accounts.")
		}

		resetFlows(opCtx, ctx, userID)
		if err := ctx.Cache.SetConversation(opCtx, userID, StateLoginEmail); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		return c.Send("📧 Send the email of your portal account.", utils.CancelKeyboard())
	}
}

func handleLoginInput(ctx *Context, c tele.Context, state string) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	opCtx, cancel := opContext()
	defer cancel()

	if state == StateLoginEmail {
		email := strings.ToLower(text)
		if !strings.Contains(email, "@") {
			return c.Send("❌ That does not look like an email address. Try again or /cancel.")
		}
		if err := ctx.Cache.SetTempData(opCtx, userID, tempLoginEmail, email, loginTTL); err != nil {
			ctx.Logger.Error("failed to store login email", zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again.")
		}
		if err := ctx.Cache.SetConversation(opCtx, userID, StateLoginPassword); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Error(err))
		}
		return c.Send("🔑 Now send your password. I will delete the message right away.")
	}

	if err := c.Delete(); err != nil {
		ctx.Logger.Warn("failed to delete password message", zap.Int64("user_id", userID), zap.Error(err))
	}

	var email string
	if err := ctx.Cache.GetTempData(opCtx, userID, tempLoginEmail, &email); err != nil || email == "" {
		clearConversation(ctx, userID)
		return c.Send("⌛ Login expired. Start again with /login.")
	}

	tokens, role, err := ctx.Portal.Login(opCtx, email, text)
	if err != nil {
		ctx.Logger.Info("login failed", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("❌ " + portal.Describe(err) + "\n\nSend the password again, or /cancel.")
	}

	if !role.Valid() {
		role = roleOr(ctx.role(opCtx, userID), models.RoleCandidate)
	}

	if err := completeLogin(opCtx, ctx, userID, email, role, tokens); err != nil {
		return c.Send("😔 Could not sign you in. Please try again.")
	}
	resetFlows(opCtx, ctx, userID)

	ctx.Logger.Info("user logged in", zap.Int64("user_id", userID), zap.String("role", string(role)))

	return c.Send(
		fmt.Sprintf("✅ Signed in as *%s*\\.", utils.EscapeMarkdown(email)),
		utils.MainMenuKeyboard(role),
		tele.ModeMarkdownV2,
	)
}

// completeLogin installs tokens and links the account to the chat.
func completeLogin(opCtx context.Context, ctx *Context, userID int64, email string, role models.Role, tokens models.Tokens) error {
	if err := ctx.session(userID).Set(opCtx, tokens); err != nil {
		ctx.Logger.Error("failed to store tokens", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	if err := ctx.Store.LinkPortalAccount(opCtx, userID, email, role); err != nil {
		ctx.Logger.Error("failed to link account", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// /logout command
func HandleLogout(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		resetFlows(opCtx, ctx, userID)

		if err := ctx.session(userID).Clear(opCtx); err != nil {
			ctx.Logger.Error("failed to clear tokens", zap.Int64("user_id", userID), zap.Error(err))
		}
		if err := ctx.Store.UnlinkPortalAccount(opCtx, userID); err != nil {
			ctx.Logger.Error("failed to unlink account", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again.")
		}

		ctx.Logger.Info("user logged out", zap.Int64("user_id", userID))

		return c.Send("👋 Signed out.", utils.MainMenuKeyboard(""))
	}
}
