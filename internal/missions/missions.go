// Package missions ведёт ежедневные доски миссий игрока.
package missions

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"example.com/ecopulse/backend/internal/models"
)

var (
	ErrMissionNotFound  = errors.New("mission not found")
	ErrAlreadyCompleted = errors.New("mission already completed")
)

const dateLayout = "2006-01-02"

// Board — миссии игрока на один день в одном режиме.
type Board struct {
	Date     string           `json:"date"`
	Mode     models.Mode      `json:"mode"`
	Missions []models.Mission `json:"missions"`
}

// Clone копирует список миссий: отметка о выполнении меняет элементы на месте.
func (b Board) Clone() Board {
	b.Missions = slices.Clone(b.Missions)
	return b
}

// NewBoard раздаёт миссиям идентификаторы и награду режима.
func NewBoard(date string, mode models.Mode, missions []models.Mission, reward int64) Board {
	out := make([]models.Mission, len(missions))
	for i, mission := range missions {
		mission.ID = fmt.Sprintf("m%d", i+1)
		mission.CoinReward = reward
		mission.Completed = false
		out[i] = mission
	}
	return Board{Date: date, Mode: mode, Missions: out}
}

// Complete отмечает миссию выполненной. Награда выдаётся только при первом выполнении.
func (b *Board) Complete(id string) (models.Mission, error) {
	for i := range b.Missions {
		if b.Missions[i].ID != id {
			continue
		}
		if b.Missions[i].Completed {
			return b.Missions[i], ErrAlreadyCompleted
		}
		b.Missions[i].Completed = true
		return b.Missions[i], nil
	}
	return models.Mission{}, ErrMissionNotFound
}

// Progress возвращает число выполненных миссий.
func (b *Board) Progress() (done, total int) {
	for _, mission := range b.Missions {
		if mission.Completed {
			done++
		}
	}
	return done, len(b.Missions)
}

// Today возвращает дату доски в UTC.
func Today(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// BoardKey строит ключ доски игрока.
func BoardKey(playerID uuid.UUID, mode models.Mode, date string) string {
	return playerID.String() + ":" + string(mode) + ":" + date
}
