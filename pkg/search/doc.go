// Package search implements the unified grant search controller.
//
// # Overview
//
// A Controller drives one search page: it reads the form controls of a
// dom.Page, turns them into Params, fetches results from the CMS AJAX
// endpoint through a Transport, and writes the rendered results and
// pagination back into the page. The last successful query is kept in
// session-scoped storage and reapplied to the form when a page is rebuilt.
//
// # Request lifecycle
//
//   - At most one request is in flight. A search issued while another is
//     pending is dropped, not queued.
//   - Responses are cached by the canonical serialization of Params; a cache
//     hit renders without touching the network.
//   - Every request runs under a timeout and is cancelled when superseded
//     (Abort, Reset). A request that no longer owns the in-flight slot never
//     mutates the page.
//   - Loading state is cleared on every settle path.
//
// # Usage
//
//	doc := dom.NewDocument()
//	// register controls and containers on doc ...
//	client := search.NewAjaxClient(cfg.Endpoint)
//	ctrl := search.New(doc, client, search.Options{Timeout: 30 * time.Second})
//	ctrl.Initialize(ctx)
//	outcome := ctrl.ExecuteSearch(ctx, search.Page(2))
package search
