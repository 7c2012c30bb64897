package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/missions"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/session"
)

type MissionHandler struct {
	Service   *ai.Service
	Registry  *progression.Registry
	Sequencer *ai.Sequencer
	Boards    session.Store[missions.Board]
	Audit     *AIAudit
	Notifier  *notifications.Hub
	Now       func() time.Time
}

// NewMissionHandler создает обработчик ежедневных миссий.
func NewMissionHandler(service *ai.Service, registry *progression.Registry, sequencer *ai.Sequencer, boards session.Store[missions.Board], audit *AIAudit, notifier *notifications.Hub) *MissionHandler {
	return &MissionHandler{
		Service:   service,
		Registry:  registry,
		Sequencer: sequencer,
		Boards:    boards,
		Audit:     audit,
		Notifier:  notifier,
		Now:       time.Now,
	}
}

type BoardResponse struct {
	missions.Board
	Done     int  `json:"done"`
	Total    int  `json:"total"`
	Fallback bool `json:"fallback,omitempty"`
	Stale    bool `json:"stale,omitempty"`
}

type CompleteMissionResponse struct {
	Mission     models.Mission `json:"mission"`
	CoinBalance int64          `json:"coin_balance"`
	Done        int            `json:"done"`
	Total       int            `json:"total"`
}

// Board возвращает доску миссий на сегодня, генерируя ее при первом обращении.
func (h *MissionHandler) Board(c echo.Context) error {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()
	ctx := c.Request().Context()
	date := missions.Today(h.Now())
	key := missions.BoardKey(playerID, mode, date)

	if board, ok, err := h.Boards.Get(ctx, key); err != nil {
		return serverError(c)
	} else if ok {
		return c.JSON(http.StatusOK, boardResponse(board))
	}

	ticket := h.Sequencer.Issue(ai.SequenceKey(transcriptKey(playerID, mode), ai.ChannelMissions))
	generated, prompt, raw, genErr := h.Service.GenerateMissions(ctx, mode)

	board := missions.NewBoard(date, mode, generated, h.Registry.Policy().Rewards.Mission.For(mode))
	requestPayload, _ := json.Marshal(map[string]interface{}{"mode": mode, "date": date})
	responsePayload, _ := json.Marshal(board.Missions)
	h.Audit.Record(c, playerID, aiRequestMissions, prompt, requestPayload, responsePayload, raw, genErr)

	response := boardResponse(board)
	if len(board.Missions) == 0 {
		// Пустая доска не кэшируется, чтобы игрок мог повторить попытку.
		response.Fallback = true
		return c.JSON(http.StatusOK, response)
	}

	applied := h.Sequencer.Apply(ticket, func() {
		_ = h.Boards.Put(ctx, key, board)
	})
	if !applied {
		if current, ok, _ := h.Boards.Get(ctx, key); ok {
			return c.JSON(http.StatusOK, boardResponse(current))
		}
		response.Stale = true
	}

	return c.JSON(http.StatusOK, response)
}

// Complete отмечает миссию выполненной и начисляет награду один раз.
func (h *MissionHandler) Complete(c echo.Context) error {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()
	ctx := c.Request().Context()
	key := missions.BoardKey(playerID, mode, missions.Today(h.Now()))
	missionID := c.Param("id")

	var completed models.Mission
	board, err := h.Boards.Update(ctx, key, func(b *missions.Board) error {
		mission, err := b.Complete(missionID)
		completed = mission
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, missions.ErrMissionNotFound):
			return notFound(c, "mission not found")
		case errors.Is(err, missions.ErrAlreadyCompleted):
			return conflict(c, "mission already completed")
		}
		return serverError(c)
	}

	state, err := award(c, engine, h.Notifier, playerID, mode, completed.CoinReward, "mission")
	if err != nil {
		_, _ = h.Boards.Update(ctx, key, func(b *missions.Board) error {
			for i := range b.Missions {
				if b.Missions[i].ID == missionID {
					b.Missions[i].Completed = false
				}
			}
			return nil
		})
		return serverError(c)
	}

	done, total := board.Progress()
	return c.JSON(http.StatusOK, CompleteMissionResponse{
		Mission:     completed,
		CoinBalance: state.CoinBalance,
		Done:        done,
		Total:       total,
	})
}

func boardResponse(board missions.Board) BoardResponse {
	done, total := board.Progress()
	return BoardResponse{Board: board, Done: done, Total: total}
}
