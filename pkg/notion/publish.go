package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/model"
)

// Publisher pushes discovered rules into a Notion rule database, one page
// per rule. Pages are keyed by subject, rule type, and segment so repeated
// publishes update in place instead of duplicating.
type Publisher struct {
	c    Client
	dbID string
}

// NewPublisher creates a Publisher targeting the given rule database.
func NewPublisher(c Client, dbID string) *Publisher {
	return &Publisher{c: c, dbID: dbID}
}

// PublishResult reports what a publish run did.
type PublishResult struct {
	Created int
	Updated int
}

// ruleKey identifies a rule page across publishes.
func ruleKey(r model.Rule) string {
	return fmt.Sprintf("%s|%s|%s", r.SubjectKey(), r.Type, r.Segment)
}

// Publish creates or updates one page per rule. Existing pages are matched
// by the Key property.
func (p *Publisher) Publish(ctx context.Context, rules []model.Rule) (*PublishResult, error) {
	existing, err := QueryAll(ctx, p.c, p.dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notion: list rule pages")
	}

	byKey := make(map[string]string, len(existing))
	for _, page := range existing {
		if key := pageKey(page); key != "" {
			byKey[key] = string(page.ID)
		}
	}

	result := &PublishResult{}
	for _, r := range rules {
		key := ruleKey(r)
		props := ruleProperties(r, key)

		if pageID, ok := byKey[key]; ok {
			if _, err := p.c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
				Properties: props,
			}); err != nil {
				return result, eris.Wrapf(err, "notion: update rule page %s", key)
			}
			result.Updated++
		} else {
			if _, err := p.c.CreatePage(ctx, &notionapi.PageCreateRequest{
				Parent: notionapi.Parent{
					Type:       notionapi.ParentTypeDatabaseID,
					DatabaseID: notionapi.DatabaseID(p.dbID),
				},
				Properties: props,
			}); err != nil {
				return result, eris.Wrapf(err, "notion: create rule page %s", key)
			}
			result.Created++
		}
	}

	zap.L().Info("published rules to notion",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	return result, nil
}

// ruleProperties builds the Notion property set for a rule page.
func ruleProperties(r model.Rule, key string) notionapi.Properties {
	props := notionapi.Properties{
		"Rule": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: r.Description}}},
		},
		"Key": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: key}}},
		},
		"Subject": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: r.SubjectKey()}}},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(r.Type)},
		},
		"Segment": notionapi.SelectProperty{
			Select: notionapi.Option{Name: r.Segment},
		},
		"Confidence": notionapi.NumberProperty{
			Number: r.Confidence,
		},
	}
	if r.Nature != nil {
		props["Nature"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(r.Nature.Nature)},
		}
	}
	return props
}

// pageKey extracts the Key property from a rule page. Returns "" when the
// page has no usable key.
func pageKey(page notionapi.Page) string {
	prop, ok := page.Properties["Key"]
	if !ok {
		return ""
	}
	switch rt := prop.(type) {
	case *notionapi.RichTextProperty:
		if len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	case notionapi.RichTextProperty:
		if len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
