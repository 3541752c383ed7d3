// Package research is the generative research source: a Claude-backed
// client that discovers leads as a parsed text stream and produces a
// structured research report for a single lead.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
)

// Client defines the generative research operations used by the engine.
type Client interface {
	// DiscoverLeads streams business leads for the query, invoking emit for
	// each complete "name | url" unit as soon as it parses. A non-nil error
	// from emit stops the stream.
	DiscoverLeads(ctx context.Context, req DiscoverRequest, emit func(Lead) error) error

	// ResearchLead performs the expensive research pass for one lead.
	ResearchLead(ctx context.Context, req ResearchRequest) (*LeadReport, error)
}

// DiscoverRequest describes a streaming discovery query.
type DiscoverRequest struct {
	Area         string
	BusinessType string
	Count        int
}

// ResearchRequest identifies the lead to research.
type ResearchRequest struct {
	Name    string
	Website string
}

// LeadReport is the structured result of a research pass. Fields the
// source could not determine are empty strings; the source's explicit
// "Not Found" marker is normalized away during parsing.
type LeadReport struct {
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		c.model = model
	}
}

// WithMaxTokens overrides the default max output tokens.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		c.maxTokens = n
	}
}

// WithRequestOptions forwards options to the underlying SDK client, e.g.
// a base URL override for tests.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *sdkClient) {
		c.sdkOpts = append(c.sdkOpts, opts...)
	}
}

type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	sdkOpts   []option.RequestOption
}

// NewClient creates a research client backed by the Anthropic SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	sdkOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.sdkOpts...)
	c.client = sdk.NewClient(sdkOpts...)
	return c
}

const discoverSystemPrompt = `You are a local business directory. For the given area and business type, list real businesses, one per line, in exactly this format:

Business Name | https://website.example

Output only lines in that format. If a business has no website, skip it. Do not number the lines or add commentary.`

func (c *sdkClient) DiscoverLeads(ctx context.Context, req DiscoverRequest, emit func(Lead) error) error {
	prompt := fmt.Sprintf("List %d %s in %s.", req.Count, req.BusinessType, req.Area)

	stream := c.client.Messages.NewStreaming(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: discoverSystemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})

	var parser LineParser
	for stream.Next() {
		event := stream.Current()
		delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		text, ok := delta.Delta.AsAny().(sdk.TextDelta)
		if !ok {
			continue
		}
		for _, lead := range parser.Feed(text.Text) {
			if err := emit(lead); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return eris.Wrap(err, "research: discovery stream")
	}

	// The stream may end without a trailing newline; flush the last unit.
	if lead := parser.Flush(); lead != nil {
		if err := emit(*lead); err != nil {
			return err
		}
	}
	return nil
}

const researchSystemPrompt = `You research small businesses for outreach. Respond with a single JSON object with exactly these string keys: companyName, contactName, address, phone, email, description. Use "Not Found" for anything you cannot determine. No prose, no markdown fences.`

func (c *sdkClient) ResearchLead(ctx context.Context, req ResearchRequest) (*LeadReport, error) {
	prompt := fmt.Sprintf("Research the business %q", req.Name)
	if req.Website != "" {
		prompt += fmt.Sprintf(" (website: %s)", req.Website)
	}
	prompt += ". Find the owner or primary contact, full address, phone, a contact email, and write a two-sentence description of what they do."

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: researchSystemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	report, err := ParseReport(text.String())
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ParseReport extracts the JSON report from model output, tolerating
// markdown fences and surrounding prose. "Not Found" (and n/a variants)
// normalize to empty strings so they merge as absent, not as display text.
func ParseReport(text string) (*LeadReport, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, eris.Errorf("research: no JSON object in response: %q", truncate(text, 120))
	}

	var report LeadReport
	if err := json.Unmarshal([]byte(text[start:end+1]), &report); err != nil {
		return nil, eris.Wrap(err, "research: unmarshal report")
	}

	report.CompanyName = scrubNotFound(report.CompanyName)
	report.ContactName = scrubNotFound(report.ContactName)
	report.Address = scrubNotFound(report.Address)
	report.Phone = scrubNotFound(report.Phone)
	report.Email = scrubNotFound(report.Email)
	report.Description = scrubNotFound(report.Description)
	return &report, nil
}

func scrubNotFound(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "not found", "n/a", "none", "unknown":
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
