package handlers

import (
	"context"
	"errors"
	"strings"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// page is one browsable list, independent of its record type.
type page interface {
	Name() string
	Title() string
	// Public pages can be browsed without a portal account.
	Public() bool
	// Role restricts the page to one account type; empty allows any.
	Role() models.Role
	Fields() []utils.FieldInfo
	Sorts() []utils.SortInfo
	Render(opCtx context.Context, ctx *Context, userID int64, changes ...listing.Change) (*rendered, error)
}

type rendered struct {
	Text   string
	Markup *tele.ReplyMarkup
	// Unchanged marks a batch that changed nothing; the shown message is
	// still current.
	Unchanged bool
}

type listPage[T any] struct {
	name   string
	title  string
	empty  string
	public bool
	role   models.Role

	schema  func(pageSize int) *listing.Schema[T]
	fetcher func(c *portal.Client, s *listing.Schema[T]) listing.Fetcher[T]
	format  func(n int, item T) string
	// ref links an item to its detail screen.
	ref func(item T) (utils.ItemRef, bool)
}

func (p *listPage[T]) Name() string      { return p.name }
func (p *listPage[T]) Title() string     { return p.title }
func (p *listPage[T]) Public() bool      { return p.public }
func (p *listPage[T]) Role() models.Role { return p.role }

func (p *listPage[T]) Fields() []utils.FieldInfo {
	return utils.FieldInfos(p.schema(listing.DefaultPageSize))
}

func (p *listPage[T]) Sorts() []utils.SortInfo {
	return utils.SortInfos(p.schema(listing.DefaultPageSize))
}

func isSessionExpired(err error) bool {
	return errors.Is(err, portal.ErrSessionExpired)
}

// Render rebuilds the view from the stored state, applies changes as one
// batch and formats the result. Fetch failures are rendered in place;
// stale responses, expired sessions and rejected changes are returned.
func (p *listPage[T]) Render(opCtx context.Context, ctx *Context, userID int64, changes ...listing.Change) (*rendered, error) {
	schema := p.schema(ctx.Config.PageSize)

	state, err := ctx.loadViewState(opCtx, userID, p.name)
	if err != nil {
		ctx.Logger.Warn("failed to load view state",
			zap.Int64("user_id", userID),
			zap.String("page", p.name),
			zap.Error(err),
		)
	}

	view := listing.New(schema, p.fetcher(ctx.client(userID), schema), state, listing.Options{
		Sequencer: ctx.Cache.Sequencer(userID, p.name),
		Logger:    ctx.Logger.With(zap.Int64("user_id", userID)),
		Describe:  portal.Describe,
		Global:    isSessionExpired,
	})

	var snap listing.Snapshot[T]
	if len(changes) == 0 {
		snap, err = view.Load(opCtx)
	} else {
		snap, err = view.Apply(opCtx, changes...)
	}

	if err != nil && snap.Phase != listing.PhaseError {
		return nil, err
	}

	if snap.Phase == listing.PhaseIdle {
		return &rendered{Unchanged: true}, nil
	}

	if err := ctx.Cache.SetViewState(opCtx, userID, p.name, view.State()); err != nil {
		ctx.Logger.Warn("failed to store view state",
			zap.Int64("user_id", userID),
			zap.String("page", p.name),
			zap.Error(err),
		)
	}

	return p.render(schema, snap), nil
}

func (p *listPage[T]) render(schema *listing.Schema[T], snap listing.Snapshot[T]) *rendered {
	var sb strings.Builder

	sb.WriteString("*" + utils.EscapeMarkdown(p.title) + "*\n")
	if active := utils.FormatActiveFilters(utils.FieldInfos(schema), snap.State.Filters); active != "" {
		sb.WriteString("🔎 " + active + "\n")
	}
	if sorted := utils.FormatSort(utils.SortInfos(schema), snap.State.Sort); sorted != "" {
		sb.WriteString("↕️ " + utils.EscapeMarkdown(sorted) + "\n")
	}
	sb.WriteString("\n")

	status := utils.ListReady
	var refs []utils.ItemRef

	switch {
	case snap.Phase == listing.PhaseError:
		status = utils.ListError
		sb.WriteString("⚠️ " + utils.EscapeMarkdown(snap.Err) + "\n")

	case snap.Empty() && snap.Count > 0:
		// the server page has rows, the client-side filters hid them all
		status = utils.ListEmpty
		sb.WriteString(utils.EscapeMarkdown(utils.FormatPageStatus(snap.State.Page, snap.Count)) + "\n\n")
		sb.WriteString("😔 Nothing on this page matches your filters\\. Try another page or clear the filters\\.\n")

	case snap.Empty():
		status = utils.ListEmpty
		sb.WriteString("😔 " + utils.EscapeMarkdown(p.empty) + "\n")

	default:
		sb.WriteString(utils.EscapeMarkdown(utils.FormatPageStatus(snap.State.Page, snap.Count)) + "\n\n")
		for i, item := range snap.Items {
			sb.WriteString(p.format(i+1, item))
			sb.WriteString("\n")
			if p.ref != nil {
				if ref, ok := p.ref(item); ok {
					refs = append(refs, ref)
				}
			}
		}
	}

	hasFilters := !snap.State.Filters.Equal(schema.DefaultFilters())
	return &rendered{
		Text:   sb.String(),
		Markup: utils.ListKeyboard(p.name, snap.State.Page, status, refs, hasFilters),
	}
}

// loadViewState prefers the live state in Redis and falls back to the
// view the user saved. Nil means defaults.
func (ctx *Context) loadViewState(opCtx context.Context, userID int64, name string) (*listing.State, error) {
	state, err := ctx.Cache.GetViewState(opCtx, userID, name)
	if err != nil {
		ctx.Logger.Warn("failed to get view state from cache", zap.Error(err))
	}
	if state != nil {
		return state, nil
	}
	return ctx.Store.GetView(opCtx, userID, name)
}

func listingRef(l models.Listing) (utils.ItemRef, bool) {
	return utils.ItemRef{Kind: l.Kind, ID: l.ID}, l.Kind.Valid()
}

var pageRegistry = map[string]page{
	models.PageJobs: &listPage[models.Listing]{
		name:   models.PageJobs,
		title:  "💼 Jobs",
		empty:  "No jobs found.",
		public: true,
		schema: models.JobsSchema,
		fetcher: func(c *portal.Client, s *listing.Schema[models.Listing]) listing.Fetcher[models.Listing] {
			return c.ListingFetcher(models.KindJob, s)
		},
		format: utils.FormatListingItem,
		ref:    listingRef,
	},
	models.PageInternships: &listPage[models.Listing]{
		name:   models.PageInternships,
		title:  "🎓 Internships",
		empty:  "No internships found.",
		public: true,
		schema: models.InternshipsSchema,
		fetcher: func(c *portal.Client, s *listing.Schema[models.Listing]) listing.Fetcher[models.Listing] {
			return c.ListingFetcher(models.KindInternship, s)
		},
		format: utils.FormatListingItem,
		ref:    listingRef,
	},
	models.PageApplications: &listPage[models.Application]{
		name:   models.PageApplications,
		title:  "📨 My applications",
		empty:  "You have not applied to anything yet.",
		role:   models.RoleCandidate,
		schema: models.ApplicationsSchema,
		fetcher: func(c *portal.Client, s *listing.Schema[models.Application]) listing.Fetcher[models.Application] {
			return c.ApplicationFetcher(s)
		},
		format: utils.FormatApplicationItem,
		ref: func(a models.Application) (utils.ItemRef, bool) {
			return utils.ItemRef{Kind: a.ListingKind, ID: a.ListingID}, a.ListingKind.Valid() && a.ListingID > 0
		},
	},
	models.PageCourses: &listPage[models.Course]{
		name:   models.PageCourses,
		title:  "📚 My courses",
		empty:  "You are not enrolled in any course.",
		role:   models.RoleCandidate,
		schema: models.CoursesSchema,
		fetcher: func(c *portal.Client, s *listing.Schema[models.Course]) listing.Fetcher[models.Course] {
			return c.CourseFetcher(s)
		},
		format: utils.FormatCourseItem,
	},
	models.PageEmployerJobs: &listPage[models.Listing]{
		name:  models.PageEmployerJobs,
		title: "💼 My jobs",
		empty: "You have not posted any jobs.",
		role:  models.RoleEmployer,
		schema: func(pageSize int) *listing.Schema[models.Listing] {
			return models.EmployerSchema(models.KindJob, pageSize)
		},
		fetcher: func(c *portal.Client, s *listing.Schema[models.Listing]) listing.Fetcher[models.Listing] {
			return c.EmployerFetcher(models.KindJob, s)
		},
		format: utils.FormatEmployerItem,
		ref:    listingRef,
	},
	models.PageEmployerInternships: &listPage[models.Listing]{
		name:  models.PageEmployerInternships,
		title: "🎓 My internships",
		empty: "You have not posted any internships.",
		role:  models.RoleEmployer,
		schema: func(pageSize int) *listing.Schema[models.Listing] {
			return models.EmployerSchema(models.KindInternship, pageSize)
		},
		fetcher: func(c *portal.Client, s *listing.Schema[models.Listing]) listing.Fetcher[models.Listing] {
			return c.EmployerFetcher(models.KindInternship, s)
		},
		format: utils.FormatEmployerItem,
		ref:    listingRef,
	},
}

func lookupPage(name string) (page, bool) {
	p, ok := pageRegistry[name]
	return p, ok
}

func fieldByKey(p page, key string) (utils.FieldInfo, bool) {
	for _, f := range p.Fields() {
		if f.Key == key {
			return f, true
		}
	}
	return utils.FieldInfo{}, false
}
