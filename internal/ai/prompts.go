package ai

import (
	"fmt"
	"strings"

	"example.com/ecopulse/backend/internal/models"
)

const (
	advisorKidSystem = "You are Leafy, a super friendly and bubbly robot friend for kids (ages 5-10). " +
		"CRITICAL RULE: Always give a very short answer first (1 or 2 simple sentences). " +
		"Only if the user asks for more details or says 'tell me more', you can provide a longer, fun story or explanation. " +
		"Use very simple words, lots of emojis, and keep it happy! " +
		"If they show an image, identify it quickly and wait for them to ask to learn more."
	advisorProSystem = "You are EcoPulse, a world-class environmental expert. " +
		"CRITICAL RULE: Your initial response must be extremely concise (maximum 2 sentences). " +
		"Provide the direct answer immediately. Only provide a detailed scientific explanation, data, or long-form advice " +
		"if the user explicitly asks follow-up questions like 'why?', 'tell me more', or 'elaborate'. " +
		"If the user asks about local resources, find them via Google Search but keep the summary brief initially."

	newsKidSystem = "You are a storyteller for children. Tell happy stories about nature."
	newsProSystem = "You are an environmental news curator. Focus on verified, current events from reputable sources. " +
		"Use Google Search to get the absolute latest information. Group the news logically."
	newsKidPrompt = "Find 3 happy stories about animals or trees that were saved recently. " +
		"Explain them like a bedtime story for a 6-year-old."
	newsProPrompt = "What are the most significant and positive environmental news stories happening right now or in the last 7 days? " +
		"Look for breakthroughs in renewable energy, major conservation wins, or significant climate policy changes. " +
		"Provide a list of 4-5 items with a headline and a 2-sentence summary for each."

	orgKidSystem = "You are Leafy, helping a child find nature heroes. Use lots of emojis and very simple, happy words. " +
		"Only find groups that are safe and positive for children to learn about. Always include URLs."
	orgProSystem = "You are a green directory assistant. Your job is to help people find credible environmental organizations. " +
		"Always include URLs for the organizations you find. Use Google Search to ensure the data is current."

	structuredSystem = "Respond with a JSON array only, without code fences or extra text."
)

// Fallback-тексты показываются вместо ответа модели при сбое или пустом ответе.
const (
	FallbackAdviceKid    = "Oh no! My robot brain is tired. Can you try again?"
	FallbackAdvicePro    = "I'm having trouble connecting right now."
	FallbackEmptyAdvice  = "I'm sorry, I couldn't process that request."
	FallbackNews         = "No news found at the moment."
	FallbackOrganization = "No organizations found for this query."
)

// Greeting возвращает первое сообщение советника в режиме.
func Greeting(mode models.Mode) string {
	if mode.IsKid() {
		return "BEEP-BOOP! Hi there friend! I'm Leafy! Want to find out something cool about nature? Or show me a picture of something you found? Let's play!"
	}
	return "Hello! I'm EcoPulse, your sustainability advisor. You can ask me anything about recycling, carbon footprints, or even upload a photo of an item to see if it's recyclable!"
}

// FallbackAdvice возвращает извинение советника при сбое.
func FallbackAdvice(mode models.Mode) string {
	if mode.IsKid() {
		return FallbackAdviceKid
	}
	return FallbackAdvicePro
}

func advisorSystem(mode models.Mode, profile *models.Profile) string {
	system := advisorProSystem
	if mode.IsKid() {
		system = advisorKidSystem
	}
	if line := profileLine(profile); line != "" {
		system += " " + line
	}
	return system
}

// profileLine описывает игрока для персонализации ответа.
func profileLine(profile *models.Profile) string {
	if profile == nil || strings.TrimSpace(profile.Name) == "" {
		return ""
	}

	parts := []string{fmt.Sprintf("The user's name is %s", strings.TrimSpace(profile.Name))}
	if profile.Pronouns != "" {
		parts = append(parts, fmt.Sprintf("their pronouns are %s", profile.Pronouns))
	}
	if profile.Age != "" {
		parts = append(parts, fmt.Sprintf("they are %s years old", profile.Age))
	}
	if profile.FavAnimal != "" {
		parts = append(parts, fmt.Sprintf("their favorite animal is %s", profile.FavAnimal))
	}
	if profile.FavColor != "" {
		parts = append(parts, fmt.Sprintf("their favorite color is %s", profile.FavColor))
	}
	if profile.FavFood != "" {
		parts = append(parts, fmt.Sprintf("their favorite food is %s", profile.FavFood))
	}
	return strings.Join(parts, ", ") + ". Address them by name when it feels natural."
}

func defaultImagePrompt(mode models.Mode) string {
	if mode.IsKid() {
		return "Tell me about this!"
	}
	return "What is this?"
}

func newsPrompt(mode models.Mode) (system, prompt string) {
	if mode.IsKid() {
		return newsKidSystem, newsKidPrompt
	}
	return newsProSystem, newsProPrompt
}

func organizationPrompt(query string, nearby bool, mode models.Mode) (system, prompt string) {
	if mode.IsKid() {
		return orgKidSystem, fmt.Sprintf("Find 3 amazing groups that help animals or trees related to %q. "+
			"Describe them in 1 very simple sentence each using words a 6-year-old would know. "+
			"Make it sound like they are superheroes for nature!", query)
	}

	scope := "globally"
	if nearby {
		scope = "near this location"
	}
	return orgProSystem, fmt.Sprintf("Find reputable environmental organizations or charities related to %q %s. "+
		"For each, provide a short 2-sentence description of their mission. "+
		"Focus on organizations that are currently active and well-regarded.", query, scope)
}

func missionsPrompt(mode models.Mode, count int) string {
	if mode.IsKid() {
		return fmt.Sprintf("Generate %d super fun 'Eco-Quests' for a kid. Examples: 'Find a cool leaf', "+
			"'Turn off a light like a ninja', 'Ask a grown-up to recycle a bottle'. "+
			"Return a JSON array of objects with title, description, category, and points (10-50).", count)
	}
	return fmt.Sprintf("Generate %d daily environmental missions for a user. "+
		"Return a JSON array of objects with title, short description, category (Waste, Energy, Water, or Food), "+
		"and points (10-50).", count)
}

func quizPrompt(topic string, mode models.Mode, count, options int) string {
	ultimate := strings.Contains(strings.ToLower(topic), "ultimate")

	if mode.IsKid() {
		focus := fmt.Sprintf("Focus on the topic of %q.", topic)
		if ultimate {
			focus = "Cover MANY different topics like recycling, animals, saving water, and cleaning up parks."
		}
		return fmt.Sprintf("Generate %d fun and very simple environmental quiz questions for a child. %s "+
			"Each question must be unique. Include %d options, the index of the correct one (0-based) as correctAnswer, "+
			"and a short fun explanation. Return a JSON array of objects with question, options, correctAnswer, explanation.",
			count, focus, options)
	}

	focus := fmt.Sprintf("Focus on the specific topic of %q.", topic)
	if ultimate {
		focus = "Provide a massive marathon test covering a wide range of topics including climate policy, " +
			"circular economy, renewable tech, marine biology, and biodiversity."
	}
	return fmt.Sprintf("Generate %d challenging environmental quiz questions for an adult. %s "+
		"Each question must be scientifically accurate and unique. Include %d options, the index of the correct one (0-based) "+
		"as correctAnswer, and a detailed scientific explanation. "+
		"Return a JSON array of objects with question, options, correctAnswer, explanation.",
		count, focus, options)
}
