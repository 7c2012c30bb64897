package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/models"
)

type stubClient struct {
	mu       sync.Mutex
	calls    atomic.Int32
	response Response
	err      error
	requests []Request
	delay    time.Duration
}

func (s *stubClient) Generate(ctx context.Context, request Request) (Response, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.requests = append(s.requests, request)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	return s.response, s.err
}

func (s *stubClient) lastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func TestAdviseFallbackOnFailure(t *testing.T) {
	client := &stubClient{err: errors.New("upstream down")}
	service := NewService(client, time.Minute)

	reply, _, _, err := service.Advise(context.Background(), AdviceInput{Prompt: "Is glass recyclable?", Mode: models.ModeKid})
	require.Error(t, err)
	assert.True(t, reply.Fallback)
	assert.Equal(t, FallbackAdviceKid, reply.Text)

	reply, _, _, _ = service.Advise(context.Background(), AdviceInput{Prompt: "Is glass recyclable?", Mode: models.ModePro})
	assert.Equal(t, FallbackAdvicePro, reply.Text)
}

func TestAdviseCitationsAndEmptyText(t *testing.T) {
	client := &stubClient{response: Response{
		Text: "  ",
		Citations: []models.Citation{
			{URL: "https://example.org/a", Title: ""},
			{URL: "https://example.org/a", Title: "dup"},
			{URL: "", Title: "empty"},
		},
	}}
	service := NewService(client, time.Minute)

	reply, _, _, err := service.Advise(context.Background(), AdviceInput{Prompt: "hi", Mode: models.ModePro})
	require.NoError(t, err)
	assert.Equal(t, FallbackEmptyAdvice, reply.Text)
	assert.Equal(t, []models.Citation{{URL: "https://example.org/a", Title: "Local Resource"}}, reply.Citations)
}

func TestAdvisePersonalizesAndDefaultsImagePrompt(t *testing.T) {
	client := &stubClient{response: Response{Text: "A banana peel! 🍌"}}
	service := NewService(client, time.Minute)

	profile := &models.Profile{Name: "Sam", Pronouns: "they/them", Age: "8"}
	_, prompt, _, err := service.Advise(context.Background(), AdviceInput{
		Image:    &Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}},
		Location: &Location{Latitude: 120, Longitude: 10},
		Mode:     models.ModeKid,
		Profile:  profile,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about this!", prompt)

	request := client.lastRequest()
	assert.Contains(t, request.System, "Leafy")
	assert.Contains(t, request.System, "Sam")
	assert.Nil(t, request.Location, "invalid coordinates are ignored")
	assert.True(t, request.Search)
}

func TestNewsIsCachedPerMode(t *testing.T) {
	client := &stubClient{response: Response{
		Text:      "Good news!",
		Citations: []models.Citation{{URL: "https://news.example/1"}},
	}}
	service := NewService(client, time.Minute)
	ctx := context.Background()

	first, prompt, _, err := service.News(ctx, models.ModePro, false)
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Equal(t, "Read Story", first.Citations[0].Title)

	_, prompt, _, err = service.News(ctx, models.ModePro, false)
	require.NoError(t, err)
	assert.Empty(t, prompt, "second call is served from cache")
	assert.Equal(t, int32(1), client.calls.Load())

	kid, _, _, err := service.News(ctx, models.ModeKid, false)
	require.NoError(t, err)
	assert.Empty(t, kid.Citations, "kid digest carries no links")
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestNewsCollapsesConcurrentRefreshes(t *testing.T) {
	client := &stubClient{response: Response{Text: "News"}, delay: 50 * time.Millisecond}
	service := NewService(client, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, _ = service.News(context.Background(), models.ModePro, true)
		}()
	}
	wg.Wait()

	assert.Less(t, client.calls.Load(), int32(5))
}

func TestNewsFallback(t *testing.T) {
	service := NewService(&stubClient{err: errors.New("boom")}, time.Minute)

	reply, _, _, err := service.News(context.Background(), models.ModePro, false)
	require.Error(t, err)
	assert.Equal(t, FallbackNews, reply.Text)
	assert.True(t, reply.Fallback)
}

func TestFindOrganizationsLocal(t *testing.T) {
	client := &stubClient{response: Response{Text: "Green Club"}}
	service := NewService(client, time.Minute)

	_, prompt, _, err := service.FindOrganizations(context.Background(), OrganizationInput{
		Query:    "local",
		Location: &Location{Latitude: 52.52, Longitude: 13.40},
		Mode:     models.ModePro,
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, localOrganization)
	assert.Contains(t, prompt, "near this location")
	require.NotNil(t, client.lastRequest().Location)

	_, prompt, _, err = service.FindOrganizations(context.Background(), OrganizationInput{
		Query:    "Reforestation",
		Location: &Location{Latitude: 52.52, Longitude: 13.40},
		Mode:     models.ModePro,
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "globally")
	assert.Nil(t, client.lastRequest().Location)
}

func TestGenerateMissionsFailsClosed(t *testing.T) {
	service := NewService(&stubClient{response: Response{Text: "not json"}}, time.Minute)

	missions, _, _, err := service.GenerateMissions(context.Background(), models.ModePro)
	assert.Error(t, err)
	assert.NotNil(t, missions)
	assert.Empty(t, missions)
}

func TestGenerateQuizTrimsToCount(t *testing.T) {
	text := `[
		{"question":"Q1","options":["A","B","C"],"correctAnswer":0,"explanation":"."},
		{"question":"Q2","options":["A","B","C"],"correctAnswer":1,"explanation":"."},
		{"question":"Q3","options":["A","B","C"],"correctAnswer":2,"explanation":"."},
		{"question":"Q4","options":["A","B","C"],"correctAnswer":2,"explanation":"."}
	]`
	client := &stubClient{response: Response{Text: text}}
	service := NewService(client, time.Minute)

	questions, _, _, err := service.GenerateQuiz(context.Background(), "ocean", models.ModeKid, 3, 3)
	require.NoError(t, err)
	assert.Len(t, questions, 3)
	assert.Equal(t, FormatQuiz, client.lastRequest().Format)
}

func TestServiceTimeoutFallsBack(t *testing.T) {
	client := &stubClient{response: Response{Text: "late"}, delay: time.Second}
	service := NewService(client, time.Minute).WithTimeout(10 * time.Millisecond)

	reply, _, _, err := service.Advise(context.Background(), AdviceInput{Prompt: "hi", Mode: models.ModeKid})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, reply.Fallback)
}
