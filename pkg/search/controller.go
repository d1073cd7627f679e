package search

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grantinsight/gisearch/pkg/dom"
	"github.com/grantinsight/gisearch/pkg/log"
	"github.com/grantinsight/gisearch/pkg/render"
)

var logger = log.ForService("search")

var (
	// ErrSuperseded is the cancellation cause of a request whose in-flight
	// slot was taken by Abort or Reset.
	ErrSuperseded = errors.New("search superseded by a newer request")
	// ErrTimeout is the cancellation cause of a request that ran past the
	// configured timeout.
	ErrTimeout = errors.New("search request timed out")
)

// StateKey is the session storage key of the last successful query.
const StateKey = "gi_search_state"

const (
	DefaultTimeout          = 30 * time.Second
	DefaultDebounceDelay    = 300 * time.Millisecond
	DefaultAnimation        = 200 * time.Millisecond
	DefaultStaggerStep      = 50 * time.Millisecond
	DefaultMinSuggestLength = 2
)

// cardClass is the class of the elements the entrance animation targets.
const cardClass = "grant-card"

// StateStore is session-scoped key/value storage.
type StateStore interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
}

// Outcome reports how an ExecuteSearch call settled.
type Outcome int

const (
	// Dropped: another request was in flight, nothing happened.
	Dropped Outcome = iota
	// Cached: a cached reply was rendered without a request.
	Cached
	// Rendered: a fresh reply was rendered.
	Rendered
	// Failed: an error message was rendered.
	Failed
	// Superseded: the request lost its in-flight slot and left the page
	// untouched.
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Cached:
		return "cached"
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Elements lists the ids of the page elements the controller drives.
// Ids that do not resolve on the page are skipped.
type Elements struct {
	SearchInputs     []string
	Filters          map[string][]string
	SortSelect       string
	PerPageSelect    string
	ResultsContainer string
	Pagination       string
	LoadingIndicator string
}

// Strings are the messages rendered into the results container.
type Strings struct {
	NoResults     string
	SearchFailed  string
	RequestFailed string
}

type Options struct {
	Elements Elements
	Strings  Strings

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration

	// DebounceDelay is the quiet period before a suggestion lookup.
	DebounceDelay    time.Duration
	MinSuggestLength int
	// DisableAutoComplete turns keystroke handling off entirely.
	DisableAutoComplete bool
	Suggester           Suggester
	// OnSuggest receives suggestion lists; nil means hide them.
	OnSuggest func([]string)

	// DisableLoadingUI keeps the indicator and container busy state
	// untouched while a request is pending.
	DisableLoadingUI bool

	AnimationDuration time.Duration
	StaggerStep       time.Duration

	// CacheSize bounds the response cache; zero keeps every reply.
	CacheSize         int
	ClearCacheOnReset bool

	// State persists the last successful query. Nil disables persistence.
	State StateStore
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = DefaultDebounceDelay
	}
	if o.MinSuggestLength <= 0 {
		o.MinSuggestLength = DefaultMinSuggestLength
	}
	if o.AnimationDuration <= 0 {
		o.AnimationDuration = DefaultAnimation
	}
	if o.StaggerStep <= 0 {
		o.StaggerStep = DefaultStaggerStep
	}
	if o.Strings.NoResults == "" {
		o.Strings.NoResults = "No results found"
	}
	if o.Strings.SearchFailed == "" {
		o.Strings.SearchFailed = "Search failed"
	}
	if o.Strings.RequestFailed == "" {
		o.Strings.RequestFailed = "Search request failed"
	}
}

// Controller drives one search page. It is safe for concurrent use; page
// mutations that depend on request ordering happen under one mutex.
type Controller struct {
	page      dom.Page
	transport Transport
	opts      Options
	cache     responseCache

	mu          sync.Mutex
	els         elements
	initialized bool
	closed      bool
	ctx         context.Context
	stop        context.CancelFunc
	subs        []dom.Subscription
	pageSubs    []dom.Subscription
	inflight    *request
	seq         uint64
	current     Params

	debounce      *time.Timer
	suggestCancel context.CancelFunc

	wg sync.WaitGroup
}

type request struct {
	seq    uint64
	cancel context.CancelCauseFunc
}

type elements struct {
	inputs     []dom.Control
	filters    map[string][]dom.Control
	sort       dom.Control
	perPage    dom.Control
	results    dom.Container
	pagination dom.Container
	loading    dom.Indicator
}

// New creates a controller for page and resolves the configured element
// ids. No listener is bound until Initialize.
func New(page dom.Page, transport Transport, opts Options) *Controller {
	opts.applyDefaults()
	c := &Controller{
		page:      page,
		transport: transport,
		opts:      opts,
		cache:     newResponseCache(opts.CacheSize),
		ctx:       context.Background(),
		current:   DefaultParams(),
	}
	c.els = c.discover()
	return c
}

func (c *Controller) discover() elements {
	e := c.opts.Elements
	els := elements{filters: make(map[string][]dom.Control)}
	for _, id := range e.SearchInputs {
		if ctrl, ok := c.page.Control(id); ok {
			els.inputs = append(els.inputs, ctrl)
		}
	}
	for _, name := range FilterNames {
		for _, id := range e.Filters[name] {
			if ctrl, ok := c.page.Control(id); ok {
				els.filters[name] = append(els.filters[name], ctrl)
			}
		}
	}
	if ctrl, ok := c.page.Control(e.SortSelect); ok {
		els.sort = ctrl
	}
	if ctrl, ok := c.page.Control(e.PerPageSelect); ok {
		els.perPage = ctrl
	}
	if box, ok := c.page.Container(e.ResultsContainer); ok {
		els.results = box
	}
	if box, ok := c.page.Container(e.Pagination); ok {
		els.pagination = box
	}
	if ind, ok := c.page.Indicator(e.LoadingIndicator); ok {
		els.loading = ind
	}
	return els
}

// Initialize binds the page listeners and reapplies the persisted query to
// the form without fetching. Event-triggered searches run under ctx. Only
// the first call has an effect.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.ctx, c.stop = context.WithCancel(ctx)
	logger.Debugf("initializing controller")

	for _, in := range c.els.inputs {
		c.subs = append(c.subs,
			in.On(dom.EventInput, func(ev dom.Event) { c.HandleInput(ev.Value) }),
			in.On(dom.EventSubmit, func(dom.Event) { c.spawn() }),
		)
	}
	for _, name := range FilterNames {
		for _, ctrl := range c.els.filters[name] {
			c.subs = append(c.subs, ctrl.On(dom.EventChange, func(dom.Event) { c.spawn() }))
		}
	}
	if c.els.sort != nil {
		c.subs = append(c.subs, c.els.sort.On(dom.EventChange, func(dom.Event) { c.spawn() }))
	}
	if c.els.perPage != nil {
		c.subs = append(c.subs, c.els.perPage.On(dom.EventChange, func(dom.Event) { c.spawn(Page(1)) }))
	}
	c.mu.Unlock()

	c.RestoreState()
	logger.Debugf("initialization complete")
}

// spawn runs an event-triggered search in the background.
// Nothing is spawned once Close has started.
func (c *Controller) spawn(overrides ...Override) {
	c.mu.Lock()
	ctx := c.ctx
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.wg.Done()
		c.ExecuteSearch(ctx, overrides...)
	}()
}

// Wait blocks until every event-triggered search has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// CollectParams reads the form and applies overrides last. The result also
// becomes the current query.
func (c *Controller) CollectParams(overrides ...Override) Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collectLocked(overrides)
}

func (c *Controller) collectLocked(overrides []Override) Params {
	p := Params{
		Search:       c.keyword(),
		Amount:       c.filterValue(FilterAmount),
		Status:       c.filterValue(FilterStatus),
		Industry:     c.filterValue(FilterIndustry),
		Region:       c.filterValue(FilterRegion),
		OrderBy:      firstValue(c.els.sort),
		PostsPerPage: parsePositive(firstValue(c.els.perPage), DefaultPostsPerPage),
		Page:         1,
	}
	for _, o := range overrides {
		o(&p)
	}
	p.normalize()
	c.current = p
	return p
}

func (c *Controller) keyword() string {
	for _, in := range c.els.inputs {
		if v := firstValue(in); v != "" {
			return v
		}
	}
	return ""
}

func (c *Controller) filterValue(name string) string {
	var values []string
	for _, ctrl := range c.els.filters[name] {
		values = append(values, ctrl.Values()...)
	}
	if joinsValues(name) {
		return strings.Join(values, ",")
	}
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

func firstValue(ctrl dom.Control) string {
	if ctrl == nil {
		return ""
	}
	if v := ctrl.Values(); len(v) > 0 {
		return v[0]
	}
	return ""
}

// CurrentQuery returns the parameters of the last collected query.
func (c *Controller) CurrentQuery() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Loading reports whether a request is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// ExecuteSearch runs one search and blocks until it settles.
//
// The call is dropped when another request is in flight. A cached reply is
// rendered without a request. Otherwise the request runs under the
// configured timeout; its reply is rendered, and on success cached and
// persisted. Loading state is cleared on every path. If the request lost its
// in-flight slot meanwhile, nothing is rendered.
func (c *Controller) ExecuteSearch(ctx context.Context, overrides ...Override) Outcome {
	c.mu.Lock()
	return c.executeLocked(ctx, overrides)
}

// executeLocked is ExecuteSearch entered with c.mu held. The lock is
// released before the request is issued.
func (c *Controller) executeLocked(ctx context.Context, overrides []Override) Outcome {
	if c.inflight != nil {
		c.mu.Unlock()
		logger.Debugf("search already in progress")
		return Dropped
	}

	params := c.collectLocked(overrides)
	key := params.CacheKey()
	if resp, ok := c.cache.Get(key); ok {
		logger.Debugf("using cached results for %s", key)
		c.renderLocked(resp)
		c.mu.Unlock()
		return Cached
	}

	c.seq++
	reqCtx, cancel := context.WithCancelCause(ctx)
	req := &request{seq: c.seq, cancel: cancel}
	c.inflight = req
	c.showLoadingLocked()
	c.mu.Unlock()

	timeoutCtx, stop := context.WithTimeoutCause(reqCtx, c.opts.Timeout, ErrTimeout)
	logger.Debugf("request #%d: %s", req.seq, key)
	resp, err := c.transport.Search(timeoutCtx, params)
	cause := context.Cause(timeoutCtx)
	stop()
	cancel(nil)

	return c.settle(req, params, key, resp, err, cause)
}

// settle commits a reply if req still owns the in-flight slot. A successful
// reply is cached, rendered and persisted before the slot is handed on, so
// the stored state is always the last one rendered.
func (c *Controller) settle(req *request, params Params, key string, resp *Response, err, cause error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != req {
		logger.Debugf("request #%d superseded, discarding reply", req.seq)
		return Superseded
	}
	c.inflight = nil
	defer c.hideLoadingLocked()

	if err != nil {
		switch {
		case errors.Is(cause, ErrTimeout):
			logger.Debugf("request #%d timed out after %s", req.seq, c.opts.Timeout)
		case cause != nil:
			logger.Debugf("request #%d cancelled: %v", req.seq, cause)
		default:
			logger.Debugf("request #%d failed: %v", req.seq, err)
		}
		c.showErrorLocked(c.opts.Strings.RequestFailed)
		return Failed
	}

	if resp == nil || !resp.Success {
		msg := c.opts.Strings.SearchFailed
		if resp != nil && resp.ErrorText() != "" {
			msg = resp.ErrorText()
		}
		logger.Debugf("request #%d unsuccessful: %s", req.seq, msg)
		c.showErrorLocked(msg)
		return Failed
	}

	c.cache.Add(key, resp)
	c.renderLocked(resp)
	c.PersistState(params)
	return Rendered
}

// Search is ExecuteSearch under its public name.
func (c *Controller) Search(ctx context.Context, overrides ...Override) Outcome {
	return c.ExecuteSearch(ctx, overrides...)
}

// Abort cancels the in-flight request, if any, and clears the loading
// state. The aborted request will not render.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
}

func (c *Controller) abortLocked() {
	if c.inflight == nil {
		return
	}
	logger.Debugf("aborting request #%d", c.inflight.seq)
	c.inflight.cancel(ErrSuperseded)
	c.inflight = nil
	c.hideLoadingLocked()
}

// Reset clears the search inputs and filters and searches again. A pending
// request is aborted first and the lock is held until the new request owns
// the in-flight slot, so the reset is never dropped.
func (c *Controller) Reset(ctx context.Context) Outcome {
	c.mu.Lock()
	c.abortLocked()
	for _, in := range c.els.inputs {
		in.Clear()
	}
	for _, name := range FilterNames {
		for _, ctrl := range c.els.filters[name] {
			ctrl.Clear()
		}
	}
	if c.opts.ClearCacheOnReset {
		c.cache.Purge()
	}
	return c.executeLocked(ctx, nil)
}

// UpdateFilter sets a filter group and searches. Unknown groups only
// trigger the search.
func (c *Controller) UpdateFilter(ctx context.Context, name, value string) Outcome {
	c.mu.Lock()
	c.setFilterLocked(name, value)
	return c.executeLocked(ctx, nil)
}

func (c *Controller) setFilterLocked(name, value string) {
	for _, ctrl := range c.els.filters[name] {
		ctrl.SetValue(value)
	}
}

// RenderResults writes a reply into the results container: the
// pre-rendered fragment if present, otherwise the card grid. Pagination and
// the entrance animation follow. A reply without data renders nothing.
func (c *Controller) RenderResults(resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked(resp)
}

func (c *Controller) renderLocked(resp *Response) {
	if c.els.results == nil || resp == nil || resp.Data == nil {
		return
	}
	data := resp.Data

	switch {
	case data.HTML != "":
		c.els.results.SetHTML(data.HTML)
	case data.Grants != nil:
		cards := make([]render.Card, 0, len(data.Grants))
		for _, g := range data.Grants {
			cards = append(cards, g.Card())
		}
		html, err := render.String(context.Background(), render.CardGrid(cards, c.opts.Strings.NoResults))
		if err != nil {
			logger.Debugf("rendering cards: %v", err)
			return
		}
		c.els.results.SetHTML(html)
	}

	if data.Pagination != "" {
		c.renderPaginationLocked(data.Pagination)
	}

	if a, ok := c.els.results.(dom.Animator); ok {
		a.Stagger(cardClass, c.opts.StaggerStep, c.opts.AnimationDuration)
	}
}

// RenderPagination injects a pagination fragment and rebinds one click
// handler per target page, disposing the previous handlers first.
func (c *Controller) RenderPagination(html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderPaginationLocked(html)
}

func (c *Controller) renderPaginationLocked(html string) {
	if c.els.pagination == nil {
		return
	}
	c.els.pagination.SetHTML(html)

	for _, dispose := range c.pageSubs {
		dispose()
	}
	c.pageSubs = c.pageSubs[:0]

	seen := make(map[int]bool)
	for _, link := range render.PageLinks(html) {
		if seen[link.Page] {
			continue
		}
		seen[link.Page] = true
		page := link.Page
		c.pageSubs = append(c.pageSubs, c.els.pagination.On(dom.EventClick, func(ev dom.Event) {
			if n, err := strconv.Atoi(strings.TrimSpace(ev.Attr("data-page"))); err == nil && n == page {
				c.spawn(Page(page))
			}
		}))
	}
}

func (c *Controller) showLoadingLocked() {
	if c.opts.DisableLoadingUI {
		return
	}
	if c.els.loading != nil {
		c.els.loading.Show()
	}
	if c.els.results != nil {
		c.els.results.SetBusy(true)
	}
}

func (c *Controller) hideLoadingLocked() {
	if c.opts.DisableLoadingUI {
		return
	}
	if c.els.loading != nil {
		c.els.loading.Hide()
	}
	if c.els.results != nil {
		c.els.results.SetBusy(false)
	}
}

func (c *Controller) showErrorLocked(msg string) {
	if c.els.results == nil {
		return
	}
	html, err := render.String(context.Background(), render.ErrorMessage(msg))
	if err != nil {
		logger.Debugf("rendering error message: %v", err)
		return
	}
	c.els.results.SetHTML(html)
}

// PersistState saves params as the session's last query. Failures are
// logged at debug level only.
func (c *Controller) PersistState(params Params) {
	if c.opts.State == nil {
		return
	}
	data, err := json.Marshal(params)
	if err != nil {
		logger.Debugf("failed to save state: %v", err)
		return
	}
	if err := c.opts.State.Save(StateKey, string(data)); err != nil {
		logger.Debugf("failed to save state: %v", err)
	}
}

// RestoreState applies the session's last query to the form. It never
// fetches; failures are logged at debug level only.
func (c *Controller) RestoreState() {
	if c.opts.State == nil {
		return
	}
	raw, ok, err := c.opts.State.Load(StateKey)
	if err != nil {
		logger.Debugf("failed to restore state: %v", err)
		return
	}
	if !ok || raw == "" {
		return
	}

	var (
		params  Params
		present map[string]json.RawMessage
	)
	if err := json.Unmarshal([]byte(raw), &present); err != nil {
		logger.Debugf("failed to restore state: %v", err)
		return
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		logger.Debugf("failed to restore state: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(params, present)
}

// ApplyParams writes params into the form without searching.
func (c *Controller) ApplyParams(params Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(params, nil)
}

// applyLocked writes params into the form. When present is non-nil, filter
// groups are only touched if their field was present.
func (c *Controller) applyLocked(params Params, present map[string]json.RawMessage) {
	if params.Search != "" && len(c.els.inputs) > 0 {
		c.els.inputs[0].SetValue(params.Search)
	}
	for _, name := range FilterNames {
		if present != nil {
			if _, ok := present[name]; !ok {
				continue
			}
		}
		c.setFilterLocked(name, params.Filter(name))
	}
	if params.OrderBy != "" && c.els.sort != nil {
		c.els.sort.SetValue(params.OrderBy)
	}
	if params.PostsPerPage > 0 && c.els.perPage != nil {
		c.els.perPage.SetValue(strconv.Itoa(params.PostsPerPage))
	}
}

// Close detaches every listener, aborts the in-flight request, stops
// pending timers and waits for event-triggered searches to return.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	for _, dispose := range c.subs {
		dispose()
	}
	for _, dispose := range c.pageSubs {
		dispose()
	}
	c.subs, c.pageSubs = nil, nil
	c.abortLocked()
	if c.debounce != nil {
		c.debounce.Stop()
	}
	if c.suggestCancel != nil {
		c.suggestCancel()
	}
	if c.stop != nil {
		c.stop()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
