package progression

import (
	"example.com/ecopulse/backend/internal/models"
)

const prestigeRank = 50

// Dashboard — производные значения экрана прогресса одного режима.
type Dashboard struct {
	Mode          models.Mode   `json:"mode"`
	CoinBalance   int64         `json:"coin_balance"`
	Current       models.Level  `json:"current"`
	Next          *models.Level `json:"next,omitempty"`
	Shortfall     int64         `json:"shortfall"`
	CanUpgrade    bool          `json:"can_upgrade"`
	IsMaxRank     bool          `json:"is_max_rank"`
	MaxRank       int           `json:"max_rank"`
	Tier          int           `json:"tier"`
	Milestone     int           `json:"milestone"`
	MilestoneGoal int           `json:"milestone_goal"`
	ProgressPct   int           `json:"progress_pct"`
	Prestige      bool          `json:"prestige"`
	Garden        []string      `json:"garden,omitempty"`
}

// Snapshot собирает данные экрана прогресса для режима.
func (e *Engine) Snapshot(mode models.Mode, garden []string) (Dashboard, error) {
	state, err := e.State(mode)
	if err != nil {
		return Dashboard{}, err
	}
	table, err := e.Table(mode)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(mode, state, table, garden), nil
}

// BuildDashboard вычисляет производные значения из состояния и таблицы.
func BuildDashboard(mode models.Mode, state models.ProgressState, table Table, garden []string) Dashboard {
	current, _ := table.Level(state.CurrentRank)
	rank := state.CurrentRank

	d := Dashboard{
		Mode:          mode,
		CoinBalance:   state.CoinBalance,
		Current:       current,
		MaxRank:       table.Len(),
		Tier:          (rank-1)/ranksPerTier + 1,
		Milestone:     rank / ranksPerTier,
		MilestoneGoal: ((rank + ranksPerTier) / ranksPerTier) * ranksPerTier,
		Prestige:      rank > prestigeRank,
		ProgressPct:   100,
		IsMaxRank:     true,
	}

	if next, ok := table.Next(rank); ok {
		d.Next = &next
		d.IsMaxRank = false
		d.CanUpgrade = state.CoinBalance >= next.Cost
		if !d.CanUpgrade {
			d.Shortfall = next.Cost - state.CoinBalance
		}
		if next.Cost > 0 && state.CoinBalance < next.Cost {
			d.ProgressPct = int(state.CoinBalance * 100 / next.Cost)
		}
	}

	if mode == models.ModeKid && len(garden) > 0 {
		count := rank/ranksPerTier + 1
		if count > len(garden) {
			count = len(garden)
		}
		d.Garden = append([]string(nil), garden[:count]...)
	}

	return d
}
