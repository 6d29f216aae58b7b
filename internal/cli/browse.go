package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

// browseFlags are shared by every list command.
type browseFlags struct {
	search   string
	filters  []string
	sort     string
	page     int
	pageSize int
}

func (f *browseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "Free-text search")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "Filter as key=value; ranges as key=min-max (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort as key[:asc|desc]")
	cmd.Flags().IntVar(&f.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", listing.DefaultPageSize, "Items per page")
}

// table prints one list: a header and a row per record.
type table[T any] struct {
	header []string
	row    func(T) []string
}

func parseFilter[T any](schema *listing.Schema[T], raw string) (listing.Change, error) {
	key, val, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return nil, fmt.Errorf("filter %q: want key=value", raw)
	}

	field, ok := schema.Field(key)
	if !ok {
		return nil, fmt.Errorf("filter %q: unknown key %q", raw, key)
	}

	switch field.Kind {
	case listing.KindBool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("filter %q: want true or false", raw)
		}
		return listing.SetFilter(key, listing.Flag(b)), nil
	case listing.KindRange:
		v, err := listing.ParseRange(val)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", raw, err)
		}
		return listing.SetFilter(key, v), nil
	default:
		return listing.SetFilter(key, listing.Text(val)), nil
	}
}

func parseSort(raw string) (listing.SortState, error) {
	key, dir, _ := strings.Cut(raw, ":")
	st := listing.SortState{Key: key, Direction: listing.Desc}
	switch strings.ToLower(dir) {
	case "", "desc":
	case "asc":
		st.Direction = listing.Asc
	default:
		return st, fmt.Errorf("sort %q: direction must be asc or desc", raw)
	}
	return st, nil
}

// changes turns the flags into one batch of view changes.
func changes[T any](schema *listing.Schema[T], f *browseFlags) ([]listing.Change, error) {
	var out []listing.Change

	if f.search != "" {
		out = append(out, listing.SetFilter(models.FieldSearch, listing.Text(f.search)))
	}
	for _, raw := range f.filters {
		c, err := parseFilter(schema, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if f.sort != "" {
		st, err := parseSort(f.sort)
		if err != nil {
			return nil, err
		}
		out = append(out, listing.SetSort(st))
	}
	// after filters: a filter change resets the page
	if f.page > 1 {
		out = append(out, listing.GoToPage(f.page))
	}
	return out, nil
}

// browse loads one page with the given flags and prints it. The first
// batch fetches page 1 so the total is known before jumping pages.
func browse[T any](cmd *cobra.Command, schema *listing.Schema[T], fetcher listing.Fetcher[T], f *browseFlags, t table[T]) error {
	ctx := cmd.Context()

	view := listing.New(schema, fetcher, nil, listing.Options{
		Logger:   log,
		Describe: portal.Describe,
		Global:   func(err error) bool { return errors.Is(err, portal.ErrSessionExpired) },
	})

	batch, err := changes(schema, f)
	if err != nil {
		return err
	}

	var jump listing.Change
	if f.page > 1 {
		jump, batch = batch[len(batch)-1], batch[:len(batch)-1]
	}

	snap, err := view.Apply(ctx, batch...)
	if err == nil && snap.Phase == listing.PhaseIdle {
		// nothing differed from the defaults
		snap, err = view.Load(ctx)
	}
	if err == nil && jump != nil {
		snap, err = view.Apply(ctx, jump)
	}
	if err != nil {
		if errors.Is(err, portal.ErrSessionExpired) {
			return errors.New("session expired: sign in again with portalctl login")
		}
		return fmt.Errorf("%s: %s", schema.Name, portal.Describe(err))
	}

	if cur := snap.State.Page.CurrentPage; f.page > 1 && cur != f.page && !snap.Empty() {
		fmt.Fprintf(cmd.ErrOrStderr(), "page %d is out of range, showing page %d\n", f.page, cur)
	}

	return printPage(cmd.OutOrStdout(), snap, t)
}

func printPage[T any](w io.Writer, snap listing.Snapshot[T], t table[T]) error {
	if snap.Empty() {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, item := range snap.Items {
		fmt.Fprintln(tw, strings.Join(t.row(item), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n", utils.FormatPageStatus(snap.State.Page, snap.Count))
	return err
}

var listingTable = table[models.Listing]{
	header: []string{"ID", "TITLE", "COMPANY", "LOCATION", "PAY"},
	row: func(l models.Listing) []string {
		return []string{
			strconv.FormatInt(l.ID, 10),
			utils.TruncateString(l.Title, 40),
			l.Company.Name,
			l.Location,
			utils.FormatSalaryRange(l.SalaryMin, l.SalaryMax, l.Currency),
		}
	},
}

func newJobsCmd() *cobra.Command {
	var f browseFlags
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := models.JobsSchema(f.pageSize)
			return browse(cmd, schema, client.ListingFetcher(models.KindJob, schema), &f, listingTable)
		},
	}
	f.register(cmd)
	return cmd
}

func newInternshipsCmd() *cobra.Command {
	var f browseFlags
	cmd := &cobra.Command{
		Use:   "internships",
		Short: "List internships",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := models.InternshipsSchema(f.pageSize)
			return browse(cmd, schema, client.ListingFetcher(models.KindInternship, schema), &f, listingTable)
		},
	}
	f.register(cmd)
	return cmd
}

func newApplicationsCmd() *cobra.Command {
	var f browseFlags
	cmd := &cobra.Command{
		Use:   "applications",
		Short: "List my applications (candidate token required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := models.ApplicationsSchema(f.pageSize)
			return browse(cmd, schema, client.ApplicationFetcher(schema), &f, table[models.Application]{
				header: []string{"ID", "LISTING", "KIND", "STATUS"},
				row: func(a models.Application) []string {
					return []string{
						strconv.FormatInt(a.ID, 10),
						utils.TruncateString(a.ListingTitle, 40),
						string(a.ListingKind),
						models.GetApplicationStatusDisplayName(a.Status),
					}
				},
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newCoursesCmd() *cobra.Command {
	var f browseFlags
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List my courses (candidate token required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := models.CoursesSchema(f.pageSize)
			return browse(cmd, schema, client.CourseFetcher(schema), &f, table[models.Course]{
				header: []string{"ID", "TITLE", "PROGRESS"},
				row: func(c models.Course) []string {
					return []string{
						strconv.FormatInt(c.ID, 10),
						utils.TruncateString(c.Title, 40),
						fmt.Sprintf("%.0f%%", c.Progress),
					}
				},
			})
		},
	}
	f.register(cmd)
	return cmd
}
