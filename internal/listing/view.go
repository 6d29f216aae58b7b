package listing

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStale is returned when a response arrived after a newer request was
// issued; the response was dropped and the view left untouched.
var ErrStale = errors.New("stale response discarded")

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State is the persisted part of a view: what the user asked for.
type State struct {
	Filters FilterState `json:"filters"`
	Sort    SortState   `json:"sort"`
	Page    PageState   `json:"page"`
}

func (s State) clone() State {
	s.Filters = s.Filters.Clone()
	return s
}

// Snapshot is what a presentation layer renders.
type Snapshot[T any] struct {
	Phase Phase
	State State
	// Items is the loaded page after client-side filters and sort.
	Items []T
	// Count is the server-side total for the current remote filters.
	Count int
	Err   string
}

// Empty reports a successful load with nothing to show.
func (s Snapshot[T]) Empty() bool {
	return s.Phase == PhaseSuccess && len(s.Items) == 0
}

type Options struct {
	Sequencer Sequencer
	Logger    *zap.Logger
	// Describe turns a fetch error into the message shown to the user.
	Describe func(error) string
	// Global marks errors handled outside the page (expired sessions).
	// They are returned to the caller but never installed as page errors.
	Global func(error) bool
}

// View composes filters, sort and pagination over a remote list endpoint.
type View[T any] struct {
	schema  *Schema[T]
	fetcher Fetcher[T]
	opts    Options
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	phase   Phase
	records []T
	count   int
	errMsg  string
	ticket  uint64
}

// New creates a view. A nil or invalid state starts from the schema
// defaults.
func New[T any](schema *Schema[T], fetcher Fetcher[T], state *State, opts Options) *View[T] {
	if opts.Sequencer == nil {
		opts.Sequencer = &MemorySequencer{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Describe == nil {
		opts.Describe = func(err error) string { return err.Error() }
	}

	v := &View[T]{
		schema:  schema,
		fetcher: fetcher,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("view", schema.Name)),
		phase:   PhaseIdle,
	}

	v.state = v.defaultState()
	if state != nil {
		if err := v.validState(*state); err != nil {
			v.logger.Warn("discarding invalid view state", zap.Error(err))
		} else {
			v.state = state.clone()
			if v.state.Filters == nil {
				v.state.Filters = FilterState{}
			}
			if v.state.Page.ItemsPerPage <= 0 {
				v.state.Page.ItemsPerPage = v.defaultState().Page.ItemsPerPage
			}
			if v.state.Page.CurrentPage < 1 {
				v.state.Page.CurrentPage = 1
			}
		}
	}

	return v
}

func (v *View[T]) defaultState() State {
	return State{
		Filters: v.schema.DefaultFilters(),
		Sort:    v.schema.DefaultSort,
		Page:    NewPageState(v.schema.PageSize),
	}
}

func (v *View[T]) validState(s State) error {
	if err := v.schema.CheckState(s.Filters); err != nil {
		return err
	}
	return v.schema.CheckSort(s.Sort)
}

func (v *View[T]) Schema() *Schema[T] { return v.schema }

// State returns a copy of the current view state for persistence.
func (v *View[T]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Load fetches the page described by the current state.
func (v *View[T]) Load(ctx context.Context) (Snapshot[T], error) {
	return v.fetch(ctx, true)
}

// Retry re-invokes the last fetch; it is the "Try again" edge out of
// PhaseError.
func (v *View[T]) Retry(ctx context.Context) (Snapshot[T], error) {
	return v.fetch(ctx, true)
}

// Apply folds all changes into one state transition and fires at most
// one fetch. A filter change anywhere in the batch resets the page to 1.
// A batch that changes nothing is a no-op: no fetch, same snapshot.
func (v *View[T]) Apply(ctx context.Context, changes ...Change) (Snapshot[T], error) {
	v.mu.Lock()

	d := &draft{
		state:       v.state.clone(),
		checkValue:  v.schema.CheckValue,
		checkSort:   v.schema.CheckSort,
		defaults:    v.schema.DefaultFilters,
		remoteField: func(key string) bool { f, ok := v.schema.Field(key); return ok && f.Remote() },
		remoteSort:  func(key string) bool { k, ok := v.schema.Sort(key); return ok && k.Param != "" },
	}

	for _, change := range changes {
		if err := change(d); err != nil {
			snap := v.snapshotLocked()
			v.mu.Unlock()
			return snap, err
		}
	}

	if d.filtersChanged && d.state.Page.Reset() {
		d.pageChanged = true
	}

	if !d.filtersChanged && !d.sortChanged && !d.pageChanged {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, nil
	}

	v.state = d.state
	needFetch := d.refetch || d.pageChanged || v.phase != PhaseSuccess
	if !needFetch {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, nil
	}
	v.mu.Unlock()

	return v.fetch(ctx, true)
}

func (v *View[T]) fetch(ctx context.Context, allowReclamp bool) (Snapshot[T], error) {
	v.mu.Lock()
	ticket, err := v.opts.Sequencer.Next(ctx)
	if err != nil {
		v.logger.Warn("sequencer unavailable, using local ticket", zap.Error(err))
		ticket = v.ticket + 1
	}
	v.ticket = ticket
	prevPhase := v.phase
	v.phase = PhaseLoading
	q := Query{
		Filters:  v.state.Filters.Clone(),
		Sort:     v.state.Sort,
		Page:     v.state.Page.CurrentPage,
		PageSize: v.state.Page.ItemsPerPage,
	}
	v.mu.Unlock()

	page, fetchErr := v.fetcher.Fetch(ctx, q)

	if v.isStale(ctx, ticket) {
		v.logger.Debug("discarding stale response",
			zap.Uint64("ticket", ticket),
			zap.Int("page", q.Page),
		)
		return v.Snapshot(), ErrStale
	}

	v.mu.Lock()

	if fetchErr != nil {
		if v.opts.Global != nil && v.opts.Global(fetchErr) {
			v.phase = prevPhase
			snap := v.snapshotLocked()
			v.mu.Unlock()
			return snap, fetchErr
		}

		v.logger.Error("failed to load page",
			zap.Int("page", q.Page),
			zap.Error(fetchErr),
		)
		v.phase = PhaseError
		v.records = nil
		v.count = 0
		v.errMsg = v.opts.Describe(fetchErr)
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, fetchErr
	}

	requested := v.state.Page.CurrentPage
	v.state.Page.SetCount(page.Count)
	if allowReclamp && page.Count > 0 && v.state.Page.CurrentPage != requested {
		// the result set shrank under us; load the last page that exists
		v.mu.Unlock()
		return v.fetch(ctx, false)
	}

	v.records = page.Results
	v.count = page.Count
	v.errMsg = ""
	v.phase = PhaseSuccess

	v.logger.Debug("page loaded",
		zap.Int("page", v.state.Page.CurrentPage),
		zap.Int("total_pages", v.state.Page.TotalPages),
		zap.Int("count", page.Count),
		zap.Int("returned", len(page.Results)),
	)

	snap := v.snapshotLocked()
	v.mu.Unlock()
	return snap, nil
}

func (v *View[T]) isStale(ctx context.Context, ticket uint64) bool {
	latest, err := v.opts.Sequencer.Latest(ctx)
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.ticket != ticket
	}
	return latest != ticket
}

func (v *View[T]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{
		Phase: v.phase,
		State: v.state.clone(),
		Count: v.count,
		Err:   v.errMsg,
	}
	if v.phase == PhaseSuccess {
		pred := BuildPredicate(v.schema, v.schema.Local(v.state.Filters))
		snap.Items = SortRecords(v.schema, v.state.Sort, Filter(v.records, pred))
	}
	return snap
}

type draft struct {
	state          State
	filtersChanged bool
	sortChanged    bool
	pageChanged    bool
	refetch        bool

	checkValue  func(string, Value) error
	checkSort   func(SortState) error
	defaults    func() FilterState
	remoteField func(string) bool
	remoteSort  func(string) bool
}

// Change is one user interaction folded into a View.Apply batch.
type Change func(*draft) error

func SetFilter(key string, val Value) Change {
	return func(d *draft) error {
		if err := d.checkValue(key, val); err != nil {
			return err
		}
		if sameValue(d.state.Filters[key], val) {
			return nil
		}
		if val.IsUnset() {
			delete(d.state.Filters, key)
		} else {
			d.state.Filters[key] = val
		}
		d.filtersChanged = true
		if d.remoteField(key) {
			d.refetch = true
		}
		return nil
	}
}

func ClearFilter(key string) Change {
	return SetFilter(key, Value{})
}

// ClearFilters resets the filter state to the page defaults.
func ClearFilters() Change {
	return func(d *draft) error {
		defaults := d.defaults()
		if d.state.Filters.Equal(defaults) {
			return nil
		}
		for key := range d.state.Filters {
			if d.remoteField(key) && !sameValue(d.state.Filters[key], defaults[key]) {
				d.refetch = true
			}
		}
		for key := range defaults {
			if d.remoteField(key) && !sameValue(d.state.Filters[key], defaults[key]) {
				d.refetch = true
			}
		}
		d.state.Filters = defaults
		d.filtersChanged = true
		return nil
	}
}

func SetSort(st SortState) Change {
	return func(d *draft) error {
		if err := d.checkSort(st); err != nil {
			return err
		}
		if d.state.Sort == st {
			return nil
		}
		if d.remoteSort(d.state.Sort.Key) || d.remoteSort(st.Key) {
			d.refetch = true
		}
		d.state.Sort = st
		d.sortChanged = true
		return nil
	}
}

// ToggleSort flips the direction when key is already active, otherwise
// sorts by key descending.
func ToggleSort(key string) Change {
	return func(d *draft) error {
		st := SortState{Key: key, Direction: Desc}
		if d.state.Sort.Key == key {
			st.Direction = d.state.Sort.Direction.Toggle()
		}
		return SetSort(st)(d)
	}
}

func NextPage() Change {
	return func(d *draft) error {
		if d.state.Page.Next() {
			d.pageChanged = true
		}
		return nil
	}
}

func PrevPage() Change {
	return func(d *draft) error {
		if d.state.Page.Prev() {
			d.pageChanged = true
		}
		return nil
	}
}

func GoToPage(n int) Change {
	return func(d *draft) error {
		if d.state.Page.GoTo(n) {
			d.pageChanged = true
		}
		return nil
	}
}
