package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode выбирает одну из двух независимых экономик.
type Mode string

const (
	ModePro Mode = "pro"
	ModeKid Mode = "kid"
)

// Modes перечисляет режимы в порядке отображения.
var Modes = []Mode{ModePro, ModeKid}

// ParseMode разбирает режим из строки запроса или хранилища.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModePro:
		return ModePro, nil
	case ModeKid:
		return ModeKid, nil
	default:
		return "", fmt.Errorf("unknown mode %q", value)
	}
}

func (m Mode) IsKid() bool {
	return m == ModeKid
}

// Level описывает один ранг таблицы уровней.
type Level struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Cost int64  `json:"cost"`
	Icon string `json:"icon"`
}

// ProgressState хранит баланс и ранг в одном режиме.
type ProgressState struct {
	CoinBalance int64 `json:"coin_balance"`
	CurrentRank int   `json:"current_rank"`
}

// Profile описывает анкету игрока из онбординга.
type Profile struct {
	Name       string `json:"name"`
	Age        string `json:"age"`
	Pronouns   string `json:"pronouns"`
	FavColor   string `json:"favColor"`
	FavFood    string `json:"favFood"`
	FavAnimal  string `json:"favAnimal"`
	AvatarIcon string `json:"avatarIcon"`
}

// Complete сообщает, заполнены ли обязательные поля анкеты.
func (p Profile) Complete() bool {
	return strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Age) != "" &&
		strings.TrimSpace(p.Pronouns) != ""
}

type Player struct {
	ID           uuid.UUID `json:"id"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash *string   `json:"-"`
	DisplayName  *string   `json:"display_name,omitempty"`
	IsGuest      bool      `json:"is_guest"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Mission описывает задание доски миссий.
type Mission struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Points      int    `json:"points"`
	CoinReward  int64  `json:"coin_reward"`
	Completed   bool   `json:"completed"`
}

// Question описывает вопрос викторины. CorrectAnswer индексирует Options с нуля.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	PlayerID   uuid.UUID  `json:"player_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}
