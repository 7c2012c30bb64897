package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"example.com/ecopulse/backend/internal/models"
)

const (
	missionCount      = 5
	localOrganization = "local environmental groups"
)

// Reply — текст для показа игроку и ссылки на источники.
type Reply struct {
	Text      string            `json:"text"`
	Citations []models.Citation `json:"citations"`
	Fallback  bool              `json:"fallback"`
}

// AdviceInput — вопрос советнику.
type AdviceInput struct {
	Prompt   string
	Image    *Image
	Location *Location
	Mode     models.Mode
	Profile  *models.Profile
}

// OrganizationInput — поиск организаций по запросу или категории.
type OrganizationInput struct {
	Query    string
	Location *Location
	Mode     models.Mode
}

type cachedNews struct {
	reply     Reply
	fetchedAt time.Time
}

type Service struct {
	client  Client
	newsTTL time.Duration
	timeout time.Duration
	now     func() time.Time

	flight singleflight.Group
	mu     sync.RWMutex
	news   map[models.Mode]cachedNews
}

// NewService создает сервис работы с AI-клиентом.
func NewService(client Client, newsTTL time.Duration) *Service {
	return &Service{
		client:  client,
		newsTTL: newsTTL,
		now:     time.Now,
		news:    make(map[models.Mode]cachedNews),
	}
}

// WithTimeout ограничивает каждое обращение к модели. Нулевое значение снимает ограничение.
func (s *Service) WithTimeout(timeout time.Duration) *Service {
	s.timeout = timeout
	return s
}

func (s *Service) generate(ctx context.Context, request Request) (Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.client.Generate(ctx, request)
}

// Advise отвечает на вопрос игрока. При ошибке возвращается извинение режима вместе с ошибкой,
// чтобы вызывающий мог показать его и записать сбой.
func (s *Service) Advise(ctx context.Context, input AdviceInput) (Reply, string, []byte, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" && input.Image != nil {
		prompt = defaultImagePrompt(input.Mode)
	}

	request := Request{
		System:   advisorSystem(input.Mode, input.Profile),
		Prompt:   prompt,
		Image:    input.Image,
		Location: validLocation(input.Location),
		Search:   true,
	}

	response, err := s.generate(ctx, request)
	if err != nil {
		return Reply{Text: FallbackAdvice(input.Mode), Fallback: true}, prompt, response.Raw, err
	}

	return textReply(response, FallbackEmptyAdvice, "Local Resource"), prompt, response.Raw, nil
}

// News возвращает дайджест новостей режима. Дайджест общий для всех игроков и кэшируется;
// одновременные обновления схлопываются в один запрос. Пустой prompt означает ответ из кэша.
func (s *Service) News(ctx context.Context, mode models.Mode, refresh bool) (Reply, string, []byte, error) {
	if !refresh {
		if reply, ok := s.cachedNews(mode); ok {
			return reply, "", nil, nil
		}
	}

	type flightResult struct {
		reply  Reply
		prompt string
		raw    []byte
	}

	value, err, _ := s.flight.Do(string(mode), func() (interface{}, error) {
		system, prompt := newsPrompt(mode)
		response, err := s.generate(ctx, Request{System: system, Prompt: prompt, Search: true})
		if err != nil {
			return flightResult{prompt: prompt, raw: response.Raw}, err
		}

		reply := textReply(response, FallbackNews, "Read Story")
		if mode.IsKid() {
			reply.Citations = nil
		}
		if !reply.Fallback {
			s.mu.Lock()
			s.news[mode] = cachedNews{reply: reply, fetchedAt: s.now()}
			s.mu.Unlock()
		}
		return flightResult{reply: reply, prompt: prompt, raw: response.Raw}, nil
	})

	result, _ := value.(flightResult)
	if err != nil {
		return Reply{Text: FallbackNews, Citations: []models.Citation{}, Fallback: true}, result.prompt, result.raw, err
	}
	return result.reply, result.prompt, result.raw, nil
}

func (s *Service) cachedNews(mode models.Mode) (Reply, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.news[mode]
	if !ok || s.now().Sub(entry.fetchedAt) > s.newsTTL {
		return Reply{}, false
	}
	return entry.reply, true
}

// FindOrganizations ищет экологические организации. Запрос "local" ищет группы рядом с игроком.
func (s *Service) FindOrganizations(ctx context.Context, input OrganizationInput) (Reply, string, []byte, error) {
	query := strings.TrimSpace(input.Query)
	location := validLocation(input.Location)
	if strings.EqualFold(query, "local") {
		query = localOrganization
	} else {
		location = nil
	}

	system, prompt := organizationPrompt(query, location != nil, input.Mode)
	response, err := s.generate(ctx, Request{
		System:   system,
		Prompt:   prompt,
		Location: location,
		Search:   true,
	})
	if err != nil {
		return Reply{Text: FallbackOrganization, Citations: []models.Citation{}, Fallback: true}, prompt, response.Raw, err
	}

	return textReply(response, FallbackOrganization, "Organization Website"), prompt, response.Raw, nil
}

// GenerateMissions запрашивает доску миссий. Любой сбой даёт пустой список.
func (s *Service) GenerateMissions(ctx context.Context, mode models.Mode) ([]models.Mission, string, []byte, error) {
	prompt := missionsPrompt(mode, missionCount)
	response, err := s.generate(ctx, Request{
		System: structuredSystem,
		Prompt: prompt,
		Format: FormatMissions,
	})
	if err != nil {
		return []models.Mission{}, prompt, response.Raw, err
	}

	missions, err := ParseMissions(response.Text, mode)
	if err != nil {
		return []models.Mission{}, prompt, response.Raw, err
	}
	if len(missions) > missionCount {
		missions = missions[:missionCount]
	}
	return missions, prompt, response.Raw, nil
}

// GenerateQuiz запрашивает вопросы викторины. Любой сбой даёт пустой список.
func (s *Service) GenerateQuiz(ctx context.Context, topic string, mode models.Mode, count, options int) ([]models.Question, string, []byte, error) {
	prompt := quizPrompt(topic, mode, count, options)
	response, err := s.generate(ctx, Request{
		System: structuredSystem,
		Prompt: prompt,
		Format: FormatQuiz,
	})
	if err != nil {
		return []models.Question{}, prompt, response.Raw, err
	}

	questions, err := ParseQuestions(response.Text)
	if err != nil {
		return []models.Question{}, prompt, response.Raw, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, prompt, response.Raw, nil
}

func textReply(response Response, emptyText, citationTitle string) Reply {
	reply := Reply{
		Text:      strings.TrimSpace(response.Text),
		Citations: dedupeCitations(response.Citations, citationTitle),
	}
	if reply.Text == "" {
		reply.Text = emptyText
		reply.Fallback = true
	}
	return reply
}

func validLocation(location *Location) *Location {
	if !location.Valid() {
		return nil
	}
	return location
}
