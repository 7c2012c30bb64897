// Package profile хранит анкету игрока и проверяет шаги онбординга.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/store"
)

// Key — ключ анкеты в хранилище игрока.
const Key = "ecopulse_profile"

const (
	StepPronouns = 1
	StepAvatar   = 2
	StepDetails  = 3
)

var (
	ErrPronounsRequired = errors.New("pronouns are required")
	ErrDetailsRequired  = errors.New("name, age and pronouns are required")
	ErrInvalidAvatar    = errors.New("avatar is not in the palette")
	ErrInvalidStep      = errors.New("unknown onboarding step")
)

// AvatarPalette — доступные аватары.
var AvatarPalette = []string{
	"🧑‍🚀", "🧑‍🔬", "🧑‍🎨", "🧑‍🌾", "🦸", "🥷", "🧚", "🧙", "🤖",
	"🦁", "🐢", "🐶", "🦊", "🐼", "🐨", "🐙", "🦋", "🦄",
}

// Load читает анкету. Отсутствующая или повреждённая анкета считается незаполненной.
func Load(ctx context.Context, kv store.KV) (models.Profile, bool, error) {
	raw, ok, err := kv.Get(ctx, Key)
	if err != nil {
		return models.Profile{}, false, fmt.Errorf("load profile: %w", err)
	}
	if !ok {
		return models.Profile{}, false, nil
	}

	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("ignoring stored profile", slog.String("error", err.Error()))
		return models.Profile{}, false, nil
	}
	return p, true, nil
}

// Save сохраняет анкету строкой JSON.
func Save(ctx context.Context, kv store.KV, p models.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return kv.Set(ctx, Key, string(payload))
}

// Normalize обрезает пробелы и подставляет аватар по умолчанию.
func Normalize(p models.Profile) models.Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Age = strings.TrimSpace(p.Age)
	p.Pronouns = strings.TrimSpace(p.Pronouns)
	p.FavColor = strings.TrimSpace(p.FavColor)
	p.FavFood = strings.TrimSpace(p.FavFood)
	p.FavAnimal = strings.TrimSpace(p.FavAnimal)
	p.AvatarIcon = strings.TrimSpace(p.AvatarIcon)
	if p.AvatarIcon == "" {
		p.AvatarIcon = AvatarPalette[0]
	}
	return p
}

// Advance проверяет черновик на шаге онбординга и возвращает следующий шаг.
// done означает, что анкета заполнена и её можно сохранить.
func Advance(step int, draft models.Profile) (next int, done bool, err error) {
	draft = Normalize(draft)

	switch step {
	case StepPronouns:
		if draft.Pronouns == "" {
			return step, false, ErrPronounsRequired
		}
		return StepAvatar, false, nil
	case StepAvatar:
		if !validAvatar(draft.AvatarIcon) {
			return step, false, ErrInvalidAvatar
		}
		return StepDetails, false, nil
	case StepDetails:
		if !draft.Complete() {
			return step, false, ErrDetailsRequired
		}
		if !validAvatar(draft.AvatarIcon) {
			return step, false, ErrInvalidAvatar
		}
		return step, true, nil
	default:
		return step, false, ErrInvalidStep
	}
}

// ValidateCustomization проверяет изменения из редактора аватара.
func ValidateCustomization(p models.Profile) error {
	if strings.TrimSpace(p.Pronouns) == "" {
		return ErrPronounsRequired
	}
	if !validAvatar(strings.TrimSpace(p.AvatarIcon)) {
		return ErrInvalidAvatar
	}
	return nil
}

func validAvatar(icon string) bool {
	for _, candidate := range AvatarPalette {
		if candidate == icon {
			return true
		}
	}
	return false
}
