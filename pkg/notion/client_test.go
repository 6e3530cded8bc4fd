package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestNewClientReturnsClient(t *testing.T) {
	c := NewClient("test-token")
	assert.NotNil(t, c)
	var _ Client = c //nolint:staticcheck // interface compliance check
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("test-token", WithRateLimit(10)).(*notionClient)
	assert.NotNil(t, c.limiter)
	assert.Equal(t, 10, c.limiter.Burst())

	c = NewClient("test-token", WithRateLimit(0)).(*notionClient)
	assert.Nil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))
}

func TestWait_ContextCancelled(t *testing.T) {
	c := NewClient("test-token", WithRateLimit(0.001)).(*notionClient)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.wait(ctx))
	cancel()

	err := c.wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
}
