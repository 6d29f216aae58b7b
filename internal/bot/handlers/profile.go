package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"
	"jobportal-bot/internal/wizard"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// /profile command
func HandleProfile(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		if !ctx.requireLogin(opCtx, c, userID) {
			return nil
		}

		if ctx.role(opCtx, userID) == models.RoleEmployer {
			return showEmployerProfile(opCtx, ctx, c)
		}

		profile, err := ctx.client(userID).CandidateProfile(opCtx)
		if err != nil {
			return ctx.fail(c, userID, "get candidate profile", err)
		}

		return c.Send(utils.FormatCandidateProfile(profile), utils.ProfileKeyboard(), tele.ModeMarkdownV2)
	}
}

var profilePrompts = map[string]string{
	utils.ProfileBio:       "✏️ Send a short bio about yourself.",
	utils.ProfileSkills:    "🛠 Send your skills separated by commas, e.g. Go, SQL, Docker.",
	utils.ProfileLocations: "📍 Send the cities you want to work in, separated by commas.",
}

var profileStates = map[string]string{
	utils.ProfileBio:       StateProfileBio,
	utils.ProfileSkills:    StateProfileSkills,
	utils.ProfileLocations: StateProfileLocations,
}

// handleProfileCallback starts editing one profile section. Work mode is
// picked from buttons; the rest is typed.
func handleProfileCallback(ctx *Context, c tele.Context, cb utils.Callback) error {
	userID := c.Sender().ID
	section := cb.Arg(0)

	if section == utils.ProfileWorkMode {
		if mode := cb.Arg(1); mode != "" {
			return saveWorkMode(ctx, c, mode)
		}
		_ = respond(c, "")
		return c.Send("🏠 How do you want to work?", utils.WorkModeKeyboard())
	}

	state, ok := profileStates[section]
	if !ok {
		return respond(c, "❓ Unknown section")
	}
	if err := setConversation(ctx, userID, state); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Something went wrong")
	}

	_ = respond(c, "")
	return c.Send(profilePrompts[section], utils.CancelKeyboard())
}

func saveWorkMode(ctx *Context, c tele.Context, mode string) error {
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	client := ctx.client(userID)
	profile, err := client.CandidateProfile(opCtx)
	if err != nil {
		return ctx.fail(c, userID, "get candidate profile", err)
	}

	prefs := profile.Preferences
	prefs.WorkMode = mode
	updated, err := client.UpdateCandidateProfile(opCtx, map[string]any{"preferences": prefs})
	if err != nil {
		return ctx.fail(c, userID, "update candidate profile", err)
	}

	_ = respond(c, "✅ Saved")
	return show(c, utils.FormatCandidateProfile(updated), utils.ProfileKeyboard())
}

func splitList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// handleProfileInput saves a typed profile section.
func handleProfileInput(ctx *Context, c tele.Context, state string) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return c.Send("❌ Send some text, or /cancel.")
	}

	opCtx, cancel := opContext()
	defer cancel()

	client := ctx.client(userID)
	patch := map[string]any{}

	switch state {
	case StateProfileBio:
		if len([]rune(text)) > 1000 {
			return c.Send("❌ Keep the bio under 1000 characters.")
		}
		patch["bio"] = text
	case StateProfileSkills:
		skills := splitList(text)
		if len(skills) == 0 {
			return c.Send("❌ List at least one skill.")
		}
		patch["skills"] = skills
	case StateProfileLocations:
		profile, err := client.CandidateProfile(opCtx)
		if err != nil {
			clearConversation(ctx, userID)
			return ctx.fail(c, userID, "get candidate profile", err)
		}
		prefs := profile.Preferences
		prefs.Locations = splitList(text)
		patch["preferences"] = prefs
	}

	updated, err := client.UpdateCandidateProfile(opCtx, patch)
	if err != nil {
		var apiErr *portal.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			return c.Send("❌ " + apiErr.Message())
		}
		clearConversation(ctx, userID)
		return ctx.fail(c, userID, "update candidate profile", err)
	}

	clearConversation(ctx, userID)
	if err := c.Send("✅ Profile updated.", mainMenu(ctx, userID)); err != nil {
		return err
	}
	return c.Send(utils.FormatCandidateProfile(updated), utils.ProfileKeyboard(), tele.ModeMarkdownV2)
}

func showEmployerProfile(opCtx context.Context, ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	profile, err := ctx.client(userID).EmployerProfile(opCtx)
	if errors.Is(err, portal.ErrNotFound) {
		return c.Send("🏢 You have no company profile yet. Create one with /company.")
	}
	if err != nil {
		return ctx.fail(c, userID, "get employer profile", err)
	}

	text := utils.FormatEmployerProfile(profile) + "\nEdit it with /company\\."
	return c.Send(text, tele.ModeMarkdownV2)
}

var companyPrompts = map[string]string{
	StateEmpCompany:     "🏢 *Company profile 1/5*\n\nSend your company name\\.",
	StateEmpWebsite:     "🌐 *Company profile 2/5*\n\nSend your website \\(https://\\.\\.\\.\\), or `-` to skip\\.",
	StateEmpIndustry:    "🏭 *Company profile 3/5*\n\nSend your industry, or `-` to skip\\.",
	StateEmpDescription: "📝 *Company profile 4/5*\n\nDescribe your company in a few sentences, or `-` to skip\\.",
	StateEmpLogo:        "🖼 *Company profile 5/5*\n\nSend your logo as a photo or a PNG/JPEG file up to 2 MB, or skip\\.",
}

// /company command
func HandleCompany(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		if !ctx.requireRole(opCtx, c, userID, models.RoleEmployer) {
			return nil
		}

		resetFlows(opCtx, ctx, userID)

		step := wizard.NewEmployerProfile()
		// start from the saved profile so "-" keeps existing values
		if existing, err := ctx.client(userID).EmployerProfile(opCtx); err == nil {
			step.Profile = *existing
		} else if errors.Is(err, portal.ErrSessionExpired) {
			return ctx.handleSessionExpired(c, userID)
		}

		if err := ctx.Cache.SetWizard(opCtx, userID, wizardEmployer, step.Snapshot()); err != nil {
			ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}
		if err := ctx.Cache.SetConversation(opCtx, userID, StateEmpCompany); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		prompt := companyPrompts[StateEmpCompany]
		if step.Profile.CompanyName != "" {
			prompt += fmt.Sprintf("\n\nCurrent: *%s*\\. Send `-` to keep it\\.", utils.EscapeMarkdown(step.Profile.CompanyName))
		}
		return c.Send(prompt, utils.CancelKeyboard(), tele.ModeMarkdownV2)
	}
}

func loadEmployerWizard(opCtx context.Context, ctx *Context, userID int64) (wizard.EmployerSnapshot, bool) {
	var snap wizard.EmployerSnapshot
	ok, err := ctx.Cache.GetWizard(opCtx, userID, wizardEmployer, &snap)
	if err != nil {
		ctx.Logger.Warn("failed to load wizard", zap.Int64("user_id", userID), zap.Error(err))
		return snap, false
	}
	return snap, ok
}

// handleCompanyInput walks the company details and submits them before
// asking for the logo.
func handleCompanyInput(ctx *Context, c tele.Context, state string) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())
	keep := text == "-"

	opCtx, cancel := opContext()
	defer cancel()

	snap, ok := loadEmployerWizard(opCtx, ctx, userID)
	if state == StateEmpLogo {
		if _, ok := snap.Logo(); ok {
			return c.Send("🖼 Send the logo as a photo or file, or press Skip.", utils.LogoKeyboard())
		}
	}
	step, ok2 := snap.Company()
	if !ok || !ok2 {
		clearConversation(ctx, userID)
		return c.Send("⌛ The company setup expired. Start again with /company.")
	}

	next := ""
	switch state {
	case StateEmpCompany:
		if !keep {
			step.Profile.CompanyName = text
		}
		next = StateEmpWebsite
	case StateEmpWebsite:
		if !keep {
			step.Profile.Website = text
		}
		next = StateEmpIndustry
	case StateEmpIndustry:
		if !keep {
			step.Profile.Industry = text
		}
		next = StateEmpDescription
	case StateEmpDescription:
		if !keep {
			step.Profile.Description = text
		}

		logo, err := step.Submit()
		if err != nil {
			var v *wizard.ValidationError
			if errors.As(err, &v) {
				return routeCompanyValidation(opCtx, ctx, c, step, v)
			}
			return c.Send("😔 " + err.Error())
		}
		if err := ctx.Cache.SetWizard(opCtx, userID, wizardEmployer, logo.Snapshot()); err != nil {
			ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again.")
		}
		if err := ctx.Cache.SetConversation(opCtx, userID, StateEmpLogo); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
		}
		return c.Send(companyPrompts[StateEmpLogo], utils.LogoKeyboard(), tele.ModeMarkdownV2)
	}

	if err := ctx.Cache.SetWizard(opCtx, userID, wizardEmployer, step.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 Something went wrong. Please try again.")
	}
	if err := ctx.Cache.SetConversation(opCtx, userID, next); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
	}
	return c.Send(companyPrompts[next], tele.ModeMarkdownV2)
}

func routeCompanyValidation(opCtx context.Context, ctx *Context, c tele.Context, step wizard.CompanyStep, v *wizard.ValidationError) error {
	userID := c.Sender().ID

	next := StateEmpCompany
	msg := v.Fields["company_name"]
	if m, ok := v.Fields["website"]; ok && msg == "" {
		next, msg = StateEmpWebsite, m
	}
	if msg == "" {
		// some other field was rejected; restart from the top
		msg = v.Error()
	}

	if err := ctx.Cache.SetWizard(opCtx, userID, wizardEmployer, step.Snapshot()); err != nil {
		ctx.Logger.Error("failed to save wizard", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := ctx.Cache.SetConversation(opCtx, userID, next); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
	}

	if err := c.Send("❌ " + msg); err != nil {
		return err
	}
	return c.Send(companyPrompts[next], tele.ModeMarkdownV2)
}

func handleLogoSkip(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	snap, _ := loadEmployerWizard(opCtx, ctx, userID)
	step, ok := snap.Logo()
	if !ok {
		return respond(c, "⌛ Setup expired, use /company")
	}

	done, err := step.Skip(opCtx, ctx.client(userID))
	if err != nil {
		return companySaveFailed(opCtx, ctx, c, step, err)
	}
	_ = respond(c, "")
	return companySaved(opCtx, ctx, c, done)
}

// handleLogoUpload validates the image before anything is sent to the
// portal.
func handleLogoUpload(ctx *Context, c tele.Context, upload portal.Upload) error {
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	snap, _ := loadEmployerWizard(opCtx, ctx, userID)
	step, ok := snap.Logo()
	if !ok {
		clearConversation(ctx, userID)
		return c.Send("⌛ The company setup expired. Start again with /company.")
	}

	done, err := step.Upload(opCtx, ctx.client(userID), upload)
	if err != nil {
		return companySaveFailed(opCtx, ctx, c, step, err)
	}
	return companySaved(opCtx, ctx, c, done)
}

func companySaveFailed(opCtx context.Context, ctx *Context, c tele.Context, step *wizard.LogoStep, err error) error {
	var v *wizard.ValidationError
	if !errors.As(err, &v) {
		return ctx.fail(c, c.Sender().ID, "save employer profile", err)
	}
	_ = respond(c, "")

	if msg, ok := v.Fields["logo"]; ok && len(v.Fields) == 1 {
		return c.Send("❌ "+msg+" Send another image or skip.", utils.LogoKeyboard())
	}

	// the portal rejected company details; go back to them
	return routeCompanyValidation(opCtx, ctx, c, step.Back(), v)
}

func companySaved(opCtx context.Context, ctx *Context, c tele.Context, done *wizard.ProfileDoneStep) error {
	userID := c.Sender().ID
	resetFlows(opCtx, ctx, userID)

	ctx.Logger.Info("employer profile saved", zap.Int64("user_id", userID))

	if err := c.Send("✅ Company profile saved.", utils.MainMenuKeyboard(models.RoleEmployer)); err != nil {
		return err
	}
	return c.Send(utils.FormatEmployerProfile(&done.Profile), tele.ModeMarkdownV2)
}

// /documents command
func HandleDocuments(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		if !ctx.requireRole(opCtx, c, userID, models.RoleCandidate) {
			return nil
		}

		if err := ctx.Cache.SetConversation(opCtx, userID, StateDocUpload); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		return c.Send("📄 Send your resume as a PDF, PNG or JPEG file up to 5 MB.", utils.CancelKeyboard())
	}
}

func handleDocumentUpload(ctx *Context, c tele.Context, upload portal.Upload) error {
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	err := ctx.client(userID).UploadDocument(opCtx, "resume", upload)
	switch {
	case errors.Is(err, portal.ErrFileTooLarge):
		return c.Send("❌ The file is larger than 5 MB. Send a smaller one.")
	case errors.Is(err, portal.ErrFileType):
		return c.Send("❌ Only PDF, PNG and JPEG files are accepted.")
	case errors.Is(err, portal.ErrFileEmpty):
		return c.Send("❌ The file is empty.")
	case err != nil:
		clearConversation(ctx, userID)
		return ctx.fail(c, userID, "upload document", err)
	}

	clearConversation(ctx, userID)
	ctx.Logger.Info("document uploaded", zap.Int64("user_id", userID), zap.String("name", upload.Name))
	return c.Send("✅ Resume uploaded.", mainMenu(ctx, userID))
}

// HandleMedia routes photos and files to the upload step waiting for them.
func HandleMedia(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		state, err := getConversation(ctx, userID)
		if err != nil {
			ctx.Logger.Warn("failed to get user state", zap.Error(err))
		}

		var limit int64
		switch state {
		case StateEmpLogo:
			limit = portal.MaxLogoSize
		case StateDocUpload:
			limit = portal.MaxDocumentSize
		default:
			return c.Send("ℹ️ I was not expecting a file. Use /company for a logo or /documents for a resume.")
		}

		upload, err := downloadUpload(c, limit)
		if errors.Is(err, portal.ErrFileTooLarge) {
			return c.Send(fmt.Sprintf("❌ The file is larger than %d MB.", limit>>20))
		}
		if err != nil {
			ctx.Logger.Error("failed to download file", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Could not read the file. Please try again.")
		}

		if state == StateEmpLogo {
			return handleLogoUpload(ctx, c, upload)
		}
		return handleDocumentUpload(ctx, c, upload)
	}
}

// downloadUpload reads the attached photo or document. Files above limit
// are refused before download when Telegram reports the size.
func downloadUpload(c tele.Context, limit int64) (portal.Upload, error) {
	msg := c.Message()

	var file tele.File
	name := "upload"
	switch {
	case msg.Document != nil:
		file = msg.Document.File
		if msg.Document.FileName != "" {
			name = msg.Document.FileName
		}
	case msg.Photo != nil:
		file = msg.Photo.File
		name = "photo.jpg"
	default:
		return portal.Upload{}, portal.ErrFileEmpty
	}

	if file.FileSize > limit {
		return portal.Upload{}, portal.ErrFileTooLarge
	}

	rc, err := c.Bot().File(&file)
	if err != nil {
		return portal.Upload{}, fmt.Errorf("get file: %w", err)
	}
	defer rc.Close()

	// one byte over the limit is enough to reject it later
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return portal.Upload{}, fmt.Errorf("read file: %w", err)
	}

	return portal.Upload{Name: name, Data: data}, nil
}
