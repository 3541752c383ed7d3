package export

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// NotionPageCreator is the slice of the Notion API the sink needs.
type NotionPageCreator interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// notionClient adapts notionapi.Client to NotionPageCreator.
type notionClient struct {
	c *notionapi.Client
}

func (n notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return n.c.Page.Create(ctx, req)
}

// NewNotionClient wraps a notionapi client for the sink.
func NewNotionClient(token string) NotionPageCreator {
	return notionClient{c: notionapi.NewClient(notionapi.Token(token))}
}

// PushToNotion creates one page per candidate in the given database.
// Returns the number of pages created; stops on the first API error.
func PushToNotion(ctx context.Context, client NotionPageCreator, databaseID string, candidates []model.Candidate) (int, error) {
	created := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			return created, eris.Wrap(ctx.Err(), "export: notion push cancelled")
		}

		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(databaseID),
			},
			Properties: candidateProperties(c),
		}

		if _, err := client.CreatePage(ctx, req); err != nil {
			return created, eris.Wrap(err, "export: notion create page")
		}
		created++
	}

	zap.L().Info("notion push complete", zap.Int("pages_created", created))
	return created, nil
}

// candidateProperties maps a candidate to Notion page properties: Name as
// the title, Website as a URL property, Status as a status property, and
// the remaining export columns as rich_text.
func candidateProperties(c model.Candidate) notionapi.Properties {
	props := make(notionapi.Properties)

	name := c.CompanyName
	if name == "" {
		name = c.DiscoveryName
	}
	props["Name"] = notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: richText(name),
	}
	if c.Website != "" {
		props["Website"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  c.Website,
		}
	}
	props["Status"] = notionapi.StatusProperty{
		Status: notionapi.Status{Name: string(c.Status)},
	}

	for key, val := range map[string]string{
		"Contact Name":  c.ContactName,
		"Address":       c.Address,
		"Phone":         c.Phone,
		"Email":         c.Email,
		"Description":   c.Description,
		"Area Searched": c.AreaSearched,
		"Business Type": c.BusinessType,
	} {
		if val == "" {
			continue
		}
		props[key] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(val),
		}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
