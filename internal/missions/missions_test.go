package missions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/models"
)

func TestBoardCompleteOnce(t *testing.T) {
	board := NewBoard("2024-05-01", models.ModePro, []models.Mission{
		{Title: "Bike to work", Category: "Energy", Points: 30, Completed: true},
		{Title: "Compost scraps", Category: "Waste", Points: 20},
	}, 50)

	require.Len(t, board.Missions, 2)
	assert.Equal(t, "m1", board.Missions[0].ID)
	assert.False(t, board.Missions[0].Completed, "new boards start incomplete")
	assert.Equal(t, int64(50), board.Missions[1].CoinReward)

	mission, err := board.Complete("m2")
	require.NoError(t, err)
	assert.True(t, mission.Completed)

	_, err = board.Complete("m2")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = board.Complete("m9")
	assert.ErrorIs(t, err, ErrMissionNotFound)

	done, total := board.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)
}

func TestTodayAndKey(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "2024-05-02", Today(now))

	id := uuid.MustParse("7f1f0f86-5ad4-4d43-9d4c-6a8d5b5c9a10")
	assert.Equal(t, "7f1f0f86-5ad4-4d43-9d4c-6a8d5b5c9a10:kid:2024-05-02", BoardKey(id, models.ModeKid, "2024-05-02"))
}
