package cmd

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grantinsight/gisearch/cmd/web/components"
	"github.com/grantinsight/gisearch/pkg/config"
	"github.com/grantinsight/gisearch/pkg/dom"
	gilog "github.com/grantinsight/gisearch/pkg/log"
	"github.com/grantinsight/gisearch/pkg/realtime"
	"github.com/grantinsight/gisearch/pkg/search"
	"github.com/grantinsight/gisearch/pkg/storage"
	"github.com/grantinsight/gisearch/pkg/version"
	"github.com/klauspost/compress/gzhttp"
	"github.com/urfave/cli/v3"
)

//go:embed web/static/*
var staticFS embed.FS

const (
	sessionCookie = "gisearch_session"
	writeWait     = 10 * time.Second
	purgeInterval = time.Hour
)

var webLogger = gilog.ForService("web")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var fieldLabels = map[string]string{
	search.FilterAmount:   "助成金額",
	search.FilterStatus:   "募集状況",
	search.FilterIndustry: "業種",
	search.FilterRegion:   "地域",
	"orderby":             "並び順",
	"posts_per_page":      "表示件数",
}

// WebCommand creates the web command
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the search page, driven by a controller per browser tab",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on",
				Value: "8080",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to",
				Value: "localhost",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return startWebServer(ctx, c.String("config"), cfg, c.String("host"), c.String("port"))
		},
	}
}

// WebServer holds the server configuration and dependencies
type WebServer struct {
	mu     sync.RWMutex
	cfg    *config.Config
	client *search.AjaxClient

	store *storage.SessionStore
	hub   *realtime.Hub
}

func newWebServer(cfg *config.Config, store *storage.SessionStore) *WebServer {
	return &WebServer{
		cfg:    cfg,
		client: search.NewAjaxClient(cfg.Endpoint),
		store:  store,
		hub:    realtime.NewHub(0),
	}
}

// current returns the configuration and endpoint client new pages use.
func (s *WebServer) current() (*config.Config, *search.AjaxClient) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.client
}

// setConfig swaps the configuration for pages opened from now on and tells
// the open ones about it.
func (s *WebServer) setConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.client = search.NewAjaxClient(cfg.Endpoint)
	s.mu.Unlock()
	if cfg.Debug {
		gilog.SetGlobalDebug(true)
	}
	s.hub.Broadcast(realtime.Event{Type: realtime.TypeConfig, Message: "configuration reloaded, reload the page to apply it"})
}

func (s *WebServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", gzhttp.GzipHandler(http.HandlerFunc(s.handleHome)))
	mux.Handle("/static/", gzhttp.GzipHandler(http.HandlerFunc(s.handleStatic)))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// startWebServer serves until SIGINT or SIGTERM
func startWebServer(ctx context.Context, configPath string, cfg *config.Config, host, port string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close session store: %v\n", err)
		}
	}()

	s := newWebServer(cfg, store)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", host, port),
		Handler: s.routes(),
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.purgeLoop(bgCtx, purgeInterval)

	go func() {
		log.Printf("Starting web server on http://%s:%s", host, port)
		log.Printf("Available endpoints:")
		log.Printf("  GET / - Search page (query string is applied as a deep link)")
		log.Printf("  GET /ws - Page websocket")
		log.Printf("  GET /health - Health check")
		log.Printf("Search endpoint: %s (action %s)", cfg.Endpoint.AjaxURL, cfg.Endpoint.SearchAction)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	s.watch(bgCtx, configPath)

	log.Println("Shutting down web server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	return server.Shutdown(shutdownCtx)
}

// purgeLoop drops idle sessions every interval.
func (s *WebServer) purgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg, _ := s.current()
			n, err := s.store.Purge(cfg.Storage.SessionTTL.Duration)
			if err != nil {
				webLogger.Warnf("purging sessions: %v", err)
				continue
			}
			if n > 0 {
				webLogger.Infof("purged %d idle sessions", n)
			}
		}
	}
}

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, cookie := sessionFromRequest(r); cookie != nil {
		http.SetCookie(w, cookie)
	}

	cfg, _ := s.current()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := components.SearchPage(pageData(cfg)).Render(r.Context(), w); err != nil {
		webLogger.Errorf("rendering page: %v", err)
	}
}

// handleStatic serves static assets from embedded files
func (s *WebServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	content, err := staticFS.ReadFile("web/static/" + strings.TrimPrefix(path, "/static/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch {
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(content); err != nil {
		webLogger.Warnf("writing static content: %v", err)
	}
}

func (s *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": version.Version,
		"pages":   s.hub.Size(),
	}); err != nil {
		webLogger.Warnf("writing health response: %v", err)
	}
}

// sessionFromRequest returns the session id carried by the request cookie.
// When the cookie is missing or malformed a new id is minted and the cookie
// to set is returned as well.
func sessionFromRequest(r *http.Request) (string, *http.Cookie) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), nil
		}
	}
	id := uuid.NewString()
	return id, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// clientMessage is what the page script sends over the websocket.
type clientMessage struct {
	Type  string    `json:"type"`
	Event dom.Event `json:"event"`
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID, cookie := sessionFromRequest(r)
	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": []string{cookie.String()}}
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		webLogger.Warnf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	s.servePage(conn, sessionID, r.URL.Query())
}

// servePage runs one page view: a Document mirrored to the browser through
// patches, driven by its own controller.
func (s *WebServer) servePage(conn *websocket.Conn, sessionID string, query url.Values) {
	cfg, client := s.current()
	pageID := uuid.NewString()
	doc := newSearchPage(cfg)

	opts := controllerOptions(cfg)
	opts.State = s.store.Session(sessionID)
	opts.Suggester = client
	opts.OnSuggest = func(list []string) {
		s.hub.Publish(pageID, realtime.Event{Type: realtime.TypeSuggest, Suggestions: list})
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := search.New(doc, client, opts)
	ctrl.Initialize(ctx)

	listener := s.hub.Register(pageID)
	stopObserving := doc.Observe(func(p dom.Patch) {
		s.hub.Publish(pageID, realtime.PatchEvent(p))
	})

	var tasks sync.WaitGroup
	defer func() {
		stopObserving()
		cancel()
		ctrl.Close()
		tasks.Wait()
		s.hub.Unregister(listener.ID)
	}()

	webLogger.Debugf("page %s opened for session %s", pageID, sessionID)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(realtime.Event{Type: realtime.TypeInit, Page: pageID, Patches: doc.Snapshot()}); err != nil {
		webLogger.Debugf("page %s: writing init: %v", pageID, err)
		return
	}

	go s.writeLoop(ctx, conn, doc, listener)

	run := func(fn func() search.Outcome) {
		tasks.Add(1)
		go func() {
			defer tasks.Done()
			outcome := fn()
			s.hub.Publish(pageID, realtime.Event{Type: realtime.TypeOutcome, Outcome: outcome.String()})
		}()
	}

	if len(query) > 0 {
		params := search.ParseParams(query)
		ctrl.ApplyParams(params)
		run(func() search.Outcome { return ctrl.ExecuteSearch(ctx, search.Page(params.Page)) })
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				webLogger.Debugf("page %s: websocket read: %v", pageID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			webLogger.Debugf("page %s: invalid message: %v", pageID, err)
			continue
		}

		switch msg.Type {
		case "event":
			if err := doc.Dispatch(msg.Event); err != nil {
				webLogger.Debugf("page %s: %v", pageID, err)
			}
		case "reset":
			run(func() search.Outcome { return ctrl.Reset(ctx) })
		case "abort":
			ctrl.Abort()
		default:
			webLogger.Debugf("page %s: unknown message type %q", pageID, msg.Type)
		}
	}
}

// writeLoop is the only writer of conn once the init message is out. A
// listener that dropped events is resynchronized with a snapshot.
func (s *WebServer) writeLoop(ctx context.Context, conn *websocket.Conn, doc *dom.Document, l *realtime.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.C:
			if !ok {
				return
			}
			if l.TakeDropped() > 0 {
				drain(l.C)
				ev = realtime.SnapshotEvent(l.Page, doc.Snapshot())
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				webLogger.Debugf("page %s: write: %v", l.Page, err)
				return
			}
		}
	}
}

func drain(c <-chan realtime.Event) {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func pageData(cfg *config.Config) components.PageData {
	e := cfg.Elements
	strs := cfg.ResolvedStrings()
	d := components.PageData{
		Title:        "助成金検索",
		Version:      version.BuildVersion(),
		Placeholder:  "キーワードを入力",
		LoadingText:  strs.Loading,
		ResultsID:    e.ResultsContainer,
		PaginationID: e.Pagination,
		LoadingID:    e.LoadingIndicator,
		WSPath:       "/ws",
	}
	for _, id := range e.SearchInputs {
		d.SearchInputs = append(d.SearchInputs, components.Field{ID: id, Name: "search", Kind: components.FieldText})
	}

	choices := cfg.Form.ByName()
	for _, name := range search.FilterNames {
		for _, id := range e.Filters.ByName()[name] {
			f := components.Field{ID: id, Name: name, Label: fieldLabels[name], Kind: components.FieldSelect}
			if multiValued(name) {
				f.Kind = components.FieldCheckboxes
			} else {
				f.Choices = append(f.Choices, components.Choice{Value: "", Label: "すべて"})
			}
			f.Choices = append(f.Choices, componentChoices(choices[name])...)
			d.Filters = append(d.Filters, f)
		}
	}

	d.Sort = components.Field{ID: e.SortSelect, Name: "orderby", Label: fieldLabels["orderby"], Kind: components.FieldSelect, Choices: componentChoices(cfg.Form.OrderBy)}
	d.PerPage = components.Field{ID: e.PerPageSelect, Name: "posts_per_page", Label: fieldLabels["posts_per_page"], Kind: components.FieldSelect, Choices: componentChoices(cfg.Form.PerPage)}
	return d
}

func componentChoices(opts []config.Option) []components.Choice {
	out := make([]components.Choice, 0, len(opts))
	for _, o := range opts {
		out = append(out, components.Choice{Value: o.Value, Label: o.Label})
	}
	return out
}
