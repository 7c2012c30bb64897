package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/profile"
	"example.com/ecopulse/backend/internal/quiz"
)

// LearningTopic — раздел базы знаний.
type LearningTopic struct {
	Title string `json:"title"`
	Count string `json:"count"`
	Icon  string `json:"icon"`
	Text  string `json:"text"`
}

type Article struct {
	Title    string `json:"title"`
	ReadTime string `json:"read_time"`
	Author   string `json:"author"`
	Summary  string `json:"summary"`
}

type LearningResponse struct {
	Topics                 []LearningTopic        `json:"topics"`
	Articles               []Article              `json:"articles"`
	QuizTopics             []quiz.Topic           `json:"quiz_topics"`
	OrganizationCategories []OrganizationCategory `json:"organization_categories"`
	Avatars                []string               `json:"avatars"`
}

const articleSummary = "Practical tips and tricks to help you transition to a more mindful and planet-friendly lifestyle starting today."

var learningTopics = []LearningTopic{
	{Title: "Waste Management", Count: "12 lessons", Icon: "♻️", Text: "Learn the secrets of proper composting and recycling."},
	{Title: "Renewable Energy", Count: "8 lessons", Icon: "☀️", Text: "Harness the power of nature for your home."},
	{Title: "Ocean Conservation", Count: "15 lessons", Icon: "🌊", Text: "Protect our most precious resource and its life."},
	{Title: "Sustainable Food", Count: "10 lessons", Icon: "🥗", Text: "Grow your own food and reduce food waste."},
}

var featuredArticles = []Article{
	{Title: "Zero-Waste Kitchen: A Comprehensive Guide", ReadTime: "5 min read", Author: "Elena Green", Summary: articleSummary},
	{Title: "Why Fast Fashion is Destroying our Planet", ReadTime: "5 min read", Author: "Elena Green", Summary: articleSummary},
	{Title: "Top 10 Energy Saving Hacks for Winter", ReadTime: "5 min read", Author: "Elena Green", Summary: articleSummary},
}

// Learning возвращает статические каталоги базы знаний.
func Learning(c echo.Context) error {
	return c.JSON(http.StatusOK, LearningResponse{
		Topics:                 learningTopics,
		Articles:               featuredArticles,
		QuizTopics:             quiz.Topics,
		OrganizationCategories: OrganizationCategories,
		Avatars:                profile.AvatarPalette,
	})
}
