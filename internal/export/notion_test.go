package export

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

type fakePageCreator struct {
	requests []*notionapi.PageCreateRequest
	failAt   int // fail on the Nth call (1-based); 0 means never
}

func (f *fakePageCreator) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.requests = append(f.requests, req)
	if f.failAt > 0 && len(f.requests) == f.failAt {
		return nil, assert.AnError
	}
	return &notionapi.Page{}, nil
}

func TestPushToNotion(t *testing.T) {
	fake := &fakePageCreator{}
	candidates := []model.Candidate{sampleCandidate(), {ID: "c2", DiscoveryName: "Beta Bar", Status: model.StatusEmailed}}

	created, err := PushToNotion(context.Background(), fake, "db-1", candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, fake.requests, 2)

	req := fake.requests[0]
	assert.Equal(t, notionapi.DatabaseID("db-1"), req.Parent.DatabaseID)

	title, ok := req.Properties["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Acme Cafe LLC", title.Title[0].Text.Content)

	url, ok := req.Properties["Website"].(notionapi.URLProperty)
	require.True(t, ok)
	assert.Equal(t, "https://acme.test", url.URL)

	// Empty fields are omitted, not sent as empty rich_text.
	_, hasWebsite := fake.requests[1].Properties["Website"]
	assert.False(t, hasWebsite)
	_, hasPhone := fake.requests[1].Properties["Phone"]
	assert.False(t, hasPhone)
}

func TestPushToNotion_StopsOnError(t *testing.T) {
	fake := &fakePageCreator{failAt: 2}
	candidates := []model.Candidate{sampleCandidate(), sampleCandidate(), sampleCandidate()}

	created, err := PushToNotion(context.Background(), fake, "db-1", candidates)
	require.Error(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, fake.requests, 2)
}

func TestPushToNotion_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakePageCreator{}
	created, err := PushToNotion(ctx, fake, "db-1", []model.Candidate{sampleCandidate()})
	require.Error(t, err)
	assert.Zero(t, created)
	assert.Empty(t, fake.requests)
}
