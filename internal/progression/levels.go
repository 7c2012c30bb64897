package progression

import (
	"fmt"
	"math"

	"example.com/ecopulse/backend/internal/models"
)

const ranksPerTier = 10

// Table — неизменяемая таблица уровней одного режима. Rank i хранится по индексу i-1.
type Table struct {
	mode   models.Mode
	levels []models.Level
}

// GenerateTable строит таблицу уровней режима по политике.
// Генерация детерминирована: одинаковая политика всегда даёт одинаковую таблицу.
func GenerateTable(mode models.Mode, policy Policy) (Table, error) {
	theme, ok := policy.Themes[mode]
	if !ok {
		return Table{}, fmt.Errorf("theme for mode %s is missing", mode)
	}
	if policy.LevelCount < 1 {
		return Table{}, fmt.Errorf("level count must be positive")
	}
	if len(theme.Names) < policy.LevelCount && len(theme.Prefixes) == 0 {
		return Table{}, fmt.Errorf("theme for mode %s has no prefixes", mode)
	}

	levels := make([]models.Level, policy.LevelCount)
	for i := range levels {
		rank := i + 1
		levels[i] = models.Level{
			Rank: rank,
			Name: levelName(theme, rank, policy.LevelCount),
			Cost: policy.Cost.At(rank),
			Icon: levelIcon(theme, rank),
		}
	}

	for i := 1; i < len(levels); i++ {
		if levels[i].Cost <= levels[i-1].Cost {
			return Table{}, fmt.Errorf("mode %s: cost of rank %d (%d) does not exceed rank %d (%d)",
				mode, levels[i].Rank, levels[i].Cost, levels[i-1].Rank, levels[i-1].Cost)
		}
	}

	return Table{mode: mode, levels: levels}, nil
}

// At возвращает стоимость ранга. Первый ранг бесплатный.
func (c CostCurve) At(rank int) int64 {
	if rank <= 1 {
		return 0
	}
	return int64(math.Floor(c.Base*math.Pow(c.Growth, float64(rank-1)) + c.Linear*float64(rank)))
}

func levelName(theme Theme, rank, count int) string {
	if len(theme.Names) >= count {
		return theme.Names[rank-1]
	}

	tier := (rank - 1) / ranksPerTier
	sub := (rank-1)%ranksPerTier + 1
	prefix := theme.Prefixes[tier%len(theme.Prefixes)]
	if sub == ranksPerTier {
		supreme := theme.Supreme
		if supreme == "" {
			supreme = "Supreme"
		}
		return supreme + " " + prefix
	}
	return fmt.Sprintf("%s %d", prefix, sub)
}

func levelIcon(theme Theme, rank int) string {
	if len(theme.Icons) == 0 {
		return ""
	}
	tier := (rank - 1) / ranksPerTier
	return theme.Icons[tier%len(theme.Icons)]
}

func (t Table) Mode() models.Mode {
	return t.mode
}

// Len возвращает число рангов, он же максимальный ранг.
func (t Table) Len() int {
	return len(t.levels)
}

// Level возвращает уровень по рангу.
func (t Table) Level(rank int) (models.Level, bool) {
	if rank < 1 || rank > len(t.levels) {
		return models.Level{}, false
	}
	return t.levels[rank-1], true
}

// Next возвращает уровень, следующий за рангом. На последнем ранге следующего нет.
func (t Table) Next(rank int) (models.Level, bool) {
	return t.Level(rank + 1)
}

// Levels возвращает копию таблицы.
func (t Table) Levels() []models.Level {
	out := make([]models.Level, len(t.levels))
	copy(out, t.levels)
	return out
}

// Tables хранит таблицы обоих режимов.
type Tables map[models.Mode]Table

// GenerateTables строит таблицы для всех режимов.
func GenerateTables(policy Policy) (Tables, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	tables := make(Tables, len(models.Modes))
	for _, mode := range models.Modes {
		table, err := GenerateTable(mode, policy)
		if err != nil {
			return nil, err
		}
		tables[mode] = table
	}
	return tables, nil
}
