package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rostermine/internal/model"
)

func weeklyLimitRule() model.Rule {
	return model.Rule{
		Subject:     "alice",
		Type:        model.RuleWeeklyLimit,
		Description: "alice works at most 3 days per week",
		Confidence:  0.92,
		Evidence:    map[string]any{"weeks_observed": 8.0},
		Segment:     model.SegmentOverall,
		Nature: &model.NatureVerdict{
			Nature:         model.NatureUpperBound,
			ThresholdValue: 3,
			Confidence:     0.85,
		},
	}
}

func TestPublish_CreatesNewPages(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-rules", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{HasMore: false}, nil).Once()

	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		title, ok := req.Properties["Rule"].(notionapi.TitleProperty)
		if !ok || len(title.Title) == 0 {
			return false
		}
		sel, ok := req.Properties["Type"].(notionapi.SelectProperty)
		if !ok || sel.Select.Name != "weekly_limit" {
			return false
		}
		nature, ok := req.Properties["Nature"].(notionapi.SelectProperty)
		return ok && nature.Select.Name == "upper_bound" &&
			title.Title[0].Text.Content == "alice works at most 3 days per week"
	})).Return(&notionapi.Page{ID: "new-page"}, nil).Once()

	p := NewPublisher(mc, "db-rules")
	result, err := p.Publish(ctx, []model.Rule{weeklyLimitRule()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Updated)
	mc.AssertExpectations(t)
}

func TestPublish_UpdatesExistingPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	existing := notionapi.Page{
		ID: "page-1",
		Properties: notionapi.Properties{
			"Key": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: "alice|weekly_limit|overall"}},
			},
		},
	}
	mc.On("QueryDatabase", ctx, "db-rules", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{existing},
			HasMore: false,
		}, nil).Once()

	mc.On("UpdatePage", ctx, "page-1", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	p := NewPublisher(mc, "db-rules")
	result, err := p.Publish(ctx, []model.Rule{weeklyLimitRule()})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	mc.AssertExpectations(t)
}

func TestPublish_QueryError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-rules", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()

	p := NewPublisher(mc, "db-rules")
	_, err := p.Publish(ctx, []model.Rule{weeklyLimitRule()})
	assert.Error(t, err)
	mc.AssertExpectations(t)
}

func TestPublish_CreateErrorStopsRun(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-rules", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{HasMore: false}, nil).Once()
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(nil, assert.AnError).Once()

	p := NewPublisher(mc, "db-rules")
	result, err := p.Publish(ctx, []model.Rule{weeklyLimitRule()})
	require.Error(t, err)
	assert.Equal(t, 0, result.Created)
	mc.AssertExpectations(t)
}

func TestRuleKey_PairRule(t *testing.T) {
	t.Parallel()
	r := model.Rule{
		Subject:     "bob",
		PairSubject: "carol",
		Type:        model.RuleAffinity,
		Segment:     model.SegmentOverall,
	}
	assert.Equal(t, "bob+carol|pair_affinity|overall", ruleKey(r))
}
