package progression

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"example.com/ecopulse/backend/internal/models"
)

// Policy описывает экономику: кривую стоимости рангов, темы таблиц и награды активностей.
type Policy struct {
	LevelCount      int                   `yaml:"level_count"`
	StartingBalance int64                 `yaml:"starting_balance"`
	Cost            CostCurve             `yaml:"cost"`
	Rewards         Rewards               `yaml:"rewards"`
	Themes          map[models.Mode]Theme `yaml:"themes"`
}

// CostCurve задаёт cost(rank) = floor(Base * Growth^(rank-1) + Linear*rank) для rank > 1.
type CostCurve struct {
	Base   float64 `yaml:"base"`
	Growth float64 `yaml:"growth"`
	Linear float64 `yaml:"linear"`
}

// Theme задаёт оформление таблицы уровней одного режима.
type Theme struct {
	Prefixes []string `yaml:"prefixes"`
	Icons    []string `yaml:"icons"`
	Supreme  string   `yaml:"supreme"`
	// Names используется вместо префиксов, если в нём не меньше LevelCount записей.
	Names  []string `yaml:"names"`
	Garden []string `yaml:"garden"`
}

// ModeAmount хранит величину награды для каждого режима.
type ModeAmount struct {
	Pro int64 `yaml:"pro"`
	Kid int64 `yaml:"kid"`
}

// For возвращает величину для режима.
func (a ModeAmount) For(mode models.Mode) int64 {
	if mode == models.ModeKid {
		return a.Kid
	}
	return a.Pro
}

type Rewards struct {
	Mission       ModeAmount `yaml:"mission"`
	QuizCorrect   ModeAmount `yaml:"quiz_correct"`
	SortCorrect   int64      `yaml:"sort_correct"`
	GrowComplete  int64      `yaml:"grow_complete"`
	TapMultiplier int64      `yaml:"tap_multiplier"`
}

// DefaultPolicy возвращает встроенную экономику: 100 рангов на режим, стартовый баланс 0.
func DefaultPolicy() Policy {
	return Policy{
		LevelCount:      100,
		StartingBalance: 0,
		Cost:            CostCurve{Base: 100, Growth: 1.06, Linear: 25},
		Rewards: Rewards{
			Mission:       ModeAmount{Pro: 50, Kid: 20},
			QuizCorrect:   ModeAmount{Pro: 10, Kid: 15},
			SortCorrect:   5,
			GrowComplete:  50,
			TapMultiplier: 2,
		},
		Themes: map[models.Mode]Theme{
			models.ModePro: {
				Prefixes: []string{
					"Seedling", "Sprout", "Sapling", "Oak", "Grove", "Forest",
					"Warrior", "Sage", "Master", "Titan", "Guardian", "Champion",
				},
				Icons:   []string{"🌿", "🌳", "🪵", "🛡️", "☀️", "🌊", "🌬️", "🏔️", "🏰", "🌍"},
				Supreme: "Supreme",
			},
			models.ModeKid: {
				Prefixes: []string{
					"Nature Friend", "Petal Pal", "Sunbeam", "Star Helper", "Cloud Hopper", "Tree Hero",
					"Rainbow Rider", "Jungle Scout", "Ocean Explorer", "Planet Pal", "Moon Walker", "Earth Wizard",
				},
				Icons:   []string{"🌱", "🌸", "☀️", "🦋", "🌈", "🦒", "🐬", "🌍", "🌙", "✨"},
				Supreme: "Supreme",
				Garden:  []string{"🌱", "🌸", "🌻", "🌳", "🦋", "🍄", "🌈", "🏰", "🐉", "✨"},
			},
		},
	}
}

// LoadPolicy читает YAML поверх встроенной политики. Пустой путь возвращает встроенную политику.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read economy policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse economy policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("economy policy %s: %w", path, err)
	}
	return policy, nil
}

// Validate проверяет параметры политики до генерации таблиц.
func (p Policy) Validate() error {
	if p.LevelCount < 2 {
		return fmt.Errorf("level_count must be at least 2")
	}
	if p.StartingBalance < 0 {
		return fmt.Errorf("starting_balance cannot be negative")
	}
	if p.Cost.Base < 0 || p.Cost.Linear < 0 || p.Cost.Growth <= 0 {
		return fmt.Errorf("cost curve parameters must be non-negative with positive growth")
	}
	for _, mode := range models.Modes {
		theme, ok := p.Themes[mode]
		if !ok {
			return fmt.Errorf("theme for mode %s is missing", mode)
		}
		if len(theme.Names) < p.LevelCount && (len(theme.Prefixes) == 0 || len(theme.Icons) == 0) {
			return fmt.Errorf("theme for mode %s needs prefixes and icons", mode)
		}
	}
	if p.Rewards.TapMultiplier < 0 || p.Rewards.SortCorrect < 0 || p.Rewards.GrowComplete < 0 {
		return fmt.Errorf("rewards cannot be negative")
	}
	return nil
}
