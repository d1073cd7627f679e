package search

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// suggestTimeout bounds a single suggestion lookup.
const suggestTimeout = 5 * time.Second

// HandleInput restarts the suggestion debounce timer for a keystroke. When
// the input stays quiet for the debounce delay, a lookup runs if the trimmed
// keyword is long enough; shorter input hides the suggestions.
func (c *Controller) HandleInput(value string) {
	if c.opts.DisableAutoComplete {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.opts.DebounceDelay, func() {
		c.showSuggestions(value)
	})
}

func (c *Controller) showSuggestions(keyword string) {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < c.opts.MinSuggestLength {
		c.emitSuggestions(nil)
		return
	}
	if c.opts.Suggester == nil {
		return
	}

	c.mu.Lock()
	if c.suggestCancel != nil {
		c.suggestCancel()
	}
	ctx, cancel := context.WithTimeout(c.ctx, suggestTimeout)
	c.suggestCancel = cancel
	c.mu.Unlock()
	defer cancel()

	list, err := c.opts.Suggester.Suggest(ctx, keyword)
	if err != nil {
		logger.Debugf("suggestion lookup for %q failed: %v", keyword, err)
		return
	}
	if ctx.Err() != nil {
		return
	}
	c.emitSuggestions(list)
}

func (c *Controller) emitSuggestions(list []string) {
	if c.opts.OnSuggest != nil {
		c.opts.OnSuggest(list)
	}
}
