package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/grantinsight/gisearch/pkg/render"
)

// Response is the decoded reply of the AJAX endpoint.
type Response struct {
	Success bool
	// Data is nil when the reply carried no object payload.
	Data *Payload
	// Message is set when data was a plain string, which is how the
	// endpoint reports failures.
	Message string
}

// Payload is the object form of a reply's data field.
type Payload struct {
	HTML string `json:"html"`
	// Grants is nil when the field was absent; an empty list is non-nil.
	Grants     []Grant `json:"grants"`
	Pagination string  `json:"pagination"`
	Message    string  `json:"message"`
}

// Grant is one structured result record.
type Grant struct {
	ID         flexString   `json:"id"`
	Title      flexString   `json:"title"`
	Permalink  flexString   `json:"permalink"`
	Amount     flexString   `json:"amount"`
	Deadline   flexString   `json:"deadline"`
	Excerpt    flexString   `json:"excerpt"`
	Categories []flexString `json:"categories"`
}

// Card converts g to its view model.
func (g Grant) Card() render.Card {
	c := render.Card{
		ID:        string(g.ID),
		Title:     string(g.Title),
		Permalink: string(g.Permalink),
		Amount:    string(g.Amount),
		Deadline:  string(g.Deadline),
		Excerpt:   string(g.Excerpt),
	}
	for _, cat := range g.Categories {
		if cat != "" {
			c.Categories = append(c.Categories, string(cat))
		}
	}
	return c
}

// ErrorText returns the message an unsuccessful reply asks to display, or
// "" when it carries none.
func (r *Response) ErrorText() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Data != nil {
		return r.Data.Message
	}
	return ""
}

// DecodeResponse parses a reply body. Only invalid JSON is an error; a
// payload of an unexpected shape decodes to a Response without Data.
func DecodeResponse(body []byte) (*Response, error) {
	var envelope struct {
		Success json.RawMessage `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	resp := &Response{Success: truthy(envelope.Success)}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 {
		return resp, nil
	}
	switch data[0] {
	case '"':
		_ = json.Unmarshal(data, &resp.Message)
	case '{':
		var p Payload
		if err := json.Unmarshal(data, &p); err == nil {
			resp.Data = &p
		}
	}
	return resp, nil
}

func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	}
	return false
}

// flexString decodes JSON strings, numbers and booleans into text. An
// object contributes its "name" field; anything else decodes to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*f = flexString(t)
	case json.Number:
		*f = flexString(t.String())
	case bool:
		*f = flexString(strconv.FormatBool(t))
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			*f = flexString(name)
		} else {
			*f = ""
		}
	default:
		*f = ""
	}
	return nil
}
