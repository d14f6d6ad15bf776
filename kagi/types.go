package kagi

import (
	"encoding/json"
	"fmt"
	"time"
)

// Meta carries the bookkeeping fields the API attaches to every response.
type Meta struct {
	// ID is the unique id of the API response.
	ID string
	// Node is the region the response was served from.
	Node string
	// Duration is the processing time reported by the API.
	Duration time.Duration
	// APIBalance is how much money (in dollars) is left on the account.
	APIBalance float64
}

// Reference is a web page that was provided as context to the model.
type Reference struct {
	Title   string
	Snippet string
	URL     string
}

// FastGPTResponse is the result of a Generate call.
type FastGPTResponse struct {
	Meta Meta
	// Output is the generated answer.
	Output string
	// Tokens is the number of tokens in the response.
	Tokens int
	// References lists cited pages in the exact order the API returned
	// them. The client never reorders or deduplicates.
	References []Reference
}

// SearchResult is a single ranked result from an enrichment call.
type SearchResult struct {
	// T is an undocumented field the API returns.
	T int
	// Rank is the relevance rank; 0 is most relevant.
	Rank      int
	URL       string
	Title     string
	Snippet   string
	Published time.Time
}

// EnrichResponse is the result of EnrichWeb or EnrichNews. Results keep
// the upstream order.
type EnrichResponse struct {
	Meta    Meta
	Results []SearchResult
}

// SummarizationResponse is the result of a Summarize call.
type SummarizationResponse struct {
	Meta   Meta
	Output string
	Tokens int
}

// SummarizationEngine selects the model behind /v0/summarize.
type SummarizationEngine string

const (
	// EngineCecil produces a friendly, descriptive, fast summary.
	EngineCecil SummarizationEngine = "cecil"
	// EngineAgnes produces a formal, technical, analytical summary.
	EngineAgnes SummarizationEngine = "agnes"
	// EngineDaphne produces an informal, creative, friendly summary.
	EngineDaphne SummarizationEngine = "daphne"
	// EngineMuriel produces a best-in-class summary using the
	// enterprise-grade model.
	EngineMuriel SummarizationEngine = "muriel"
)

// SummaryType selects the output shape of /v0/summarize.
type SummaryType string

const (
	// SummaryTypeSummary yields paragraph(s) of prose.
	SummaryTypeSummary SummaryType = "summary"
	// SummaryTypeTakeaway yields a bulleted list of key points.
	SummaryTypeTakeaway SummaryType = "takeaway"
)

// SummarizeRequest models POST /v0/summarize. Exactly one of URL or Text
// must be set.
type SummarizeRequest struct {
	URL            string
	Text           string
	Engine         SummarizationEngine
	SummaryType    SummaryType
	TargetLanguage string
	// NoCache asks the API to bypass its cache for this request.
	NoCache bool
}

// Wire structs below hold required fields as pointers so that schema
// drift fails decoding instead of producing zero values.

type wireEnvelope struct {
	Meta *wireMeta       `json:"meta"`
	Data json.RawMessage `json:"data"`
}

type wireMeta struct {
	ID         *string  `json:"id"`
	Node       string   `json:"node"`
	MS         *float64 `json:"ms"`
	APIBalance float64  `json:"api_balance"`
}

type wireFastGPTData struct {
	Output     *string         `json:"output"`
	Tokens     int             `json:"tokens"`
	References []wireReference `json:"references"`
}

type wireReference struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type wireSearchResult struct {
	T         int    `json:"t"`
	Rank      int    `json:"rank"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Published string `json:"published"`
}

type wireSummarizationData struct {
	Output *string `json:"output"`
	Tokens int     `json:"tokens"`
}

func (env *wireEnvelope) meta(endpoint string) (Meta, error) {
	w := env.Meta
	if w == nil {
		return Meta{}, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("missing %q field", "meta")}
	}
	if w.ID == nil {
		return Meta{}, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("missing %q field", "meta.id")}
	}
	if w.MS == nil {
		return Meta{}, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("missing %q field", "meta.ms")}
	}
	return Meta{
		ID:         *w.ID,
		Node:       w.Node,
		Duration:   time.Duration(*w.MS * float64(time.Millisecond)),
		APIBalance: w.APIBalance,
	}, nil
}

func (env *wireEnvelope) data(endpoint string, v any) error {
	if len(env.Data) == 0 {
		return &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("missing %q field", "data")}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func decodeFastGPT(endpoint string, env *wireEnvelope) (*FastGPTResponse, error) {
	meta, err := env.meta(endpoint)
	if err != nil {
		return nil, err
	}
	var data wireFastGPTData
	if err := env.data(endpoint, &data); err != nil {
		return nil, err
	}
	if data.Output == nil {
		return nil, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("missing %q field", "data.output")}
	}
	refs := make([]Reference, len(data.References))
	for i, r := range data.References {
		refs[i] = Reference{Title: r.Title, Snippet: r.Snippet, URL: r.URL}
	}
	return &FastGPTResponse{
		Meta:       meta,
		Output:     *data.Output,
		Tokens:     data.Tokens,
		References: refs,
	}, nil
}

func decodeEnrich(endpoint string, env *wireEnvelope) (*EnrichResponse, error) {
	meta, err := env.meta(endpoint)
	if err != nil {
		return nil, err
	}
	var data []wireSearchResult
	if err := env.data(endpoint, &data); err != nil {
		return nil, err
	}
	results := make([]SearchResult, len(data))
	for i, r := range data {
		res := SearchResult{
			T:       r.T,
			Rank:    r.Rank,
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Snippet,
		}
		if r.Published != "" {
			ts, err := time.Parse(time.RFC3339, r.Published)
			if err != nil {
				return nil, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("parsing %q: %w", "published", err)}
			}
			res.Published = ts
		}
		results[i] = res
	}
	return &EnrichResponse{Meta: meta, Results: results}, nil
}

func decodeSummarization(endpoint string, env *wireEnvelope) (*SummarizationResponse, error) {
	meta, err := env.meta(endpoint)
	if err != nil {
		return nil, err
	}
	var data wireSummarizationData
	if err := env.data(endpoint, &data); err != nil {
		return nil, err
	}
	if data.Output == nil {
		return nil, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("missing %q field", "data.output")}
	}
	return &SummarizationResponse{Meta: meta, Output: *data.Output, Tokens: data.Tokens}, nil
}
