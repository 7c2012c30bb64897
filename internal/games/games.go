// Package games содержит правила мини-игр, открывающихся по мере роста ранга.
package games

import (
	"errors"
	"time"
)

var (
	ErrLocked        = errors.New("game is locked")
	ErrUnknownGame   = errors.New("unknown game")
	ErrUnknownBin    = errors.New("unknown bin")
	ErrUnknownTarget = errors.New("unknown target")
	ErrFullyGrown    = errors.New("tree is fully grown")
	ErrRoundOver     = errors.New("round is over")
)

const (
	GameSort = "sort"
	GameGrow = "grow"
	GameTap  = "tap"
)

type Game struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	UnlockRank  int    `json:"unlock_rank"`
}

// Catalog — мини-игры в порядке открытия.
var Catalog = []Game{
	{ID: GameSort, Title: "Sort-o-Matic", Icon: "🤖", Description: "Sort the trash correctly!", UnlockRank: 1},
	{ID: GameGrow, Title: "Nature Grower", Icon: "🌳", Description: "Grow a massive forest!", UnlockRank: 6},
	{ID: GameTap, Title: "Eco-Tap Blitz", Icon: "⚡", Description: "Fast-paced reaction challenge!", UnlockRank: 11},
}

// Find ищет игру по идентификатору.
func Find(id string) (Game, bool) {
	for _, game := range Catalog {
		if game.ID == id {
			return game, true
		}
	}
	return Game{}, false
}

// Check проверяет, доступна ли игра на ранге.
func Check(id string, rank int) (Game, error) {
	game, ok := Find(id)
	if !ok {
		return Game{}, ErrUnknownGame
	}
	if rank < game.UnlockRank {
		return game, ErrLocked
	}
	return game, nil
}

// SortItem — предмет для сортировки.
type SortItem struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
	Bin  string `json:"-"`
}

var SortItems = []SortItem{
	{Name: "Apple Core", Icon: "🍎", Bin: "compost"},
	{Name: "Soda Can", Icon: "🥤", Bin: "recycle"},
	{Name: "Paper Box", Icon: "📦", Bin: "recycle"},
	{Name: "Banana Peel", Icon: "🍌", Bin: "compost"},
	{Name: "Plastic Bottle", Icon: "🧴", Bin: "recycle"},
	{Name: "Used Napkin", Icon: "🧻", Bin: "trash"},
}

var bins = map[string]struct{}{"compost": {}, "recycle": {}, "trash": {}}

// SortState — прогресс в Sort-o-Matic. Предметы идут по кругу.
type SortState struct {
	Index int `json:"index"`
	Score int `json:"score"`
}

type SortOutcome struct {
	Correct bool     `json:"correct"`
	Earned  int64    `json:"earned"`
	Item    SortItem `json:"item"`
	Next    SortItem `json:"next"`
}

// Current возвращает предмет, который нужно отсортировать.
func (s *SortState) Current() SortItem {
	return SortItems[s.Index%len(SortItems)]
}

// Sort кладёт текущий предмет в корзину. Верная корзина приносит reward монет.
func (s *SortState) Sort(bin string, reward int64) (SortOutcome, error) {
	if _, ok := bins[bin]; !ok {
		return SortOutcome{}, ErrUnknownBin
	}

	item := s.Current()
	outcome := SortOutcome{Item: item}
	if item.Bin == bin {
		s.Score++
		outcome.Correct = true
		outcome.Earned = reward
	}
	s.Index = (s.Index + 1) % len(SortItems)
	outcome.Next = s.Current()
	return outcome, nil
}

const (
	growStep = 10
	growFull = 100
)

// GrowState — дерево в Nature Grower.
type GrowState struct {
	Growth int `json:"growth"`
	Trees  int `json:"trees"`
}

// Water поливает дерево. Достижение полного роста приносит reward один раз.
func (g *GrowState) Water(reward int64) (int64, error) {
	if g.Growth >= growFull {
		return 0, ErrFullyGrown
	}

	g.Growth += growStep
	if g.Growth < growFull {
		return 0, nil
	}
	g.Growth = growFull
	g.Trees++
	return reward, nil
}

// FullyGrown сообщает, что дерево выросло и его можно пересадить.
func (g *GrowState) FullyGrown() bool {
	return g.Growth >= growFull
}

// Replant сажает новое дерево после полного роста.
func (g *GrowState) Replant() {
	g.Growth = 0
}

// Stage возвращает иконку стадии роста.
func (g *GrowState) Stage() string {
	switch {
	case g.Growth < 30:
		return "🌱"
	case g.Growth < 70:
		return "🌿"
	default:
		return "🌳"
	}
}

const (
	TapRoundDuration = 30 * time.Second
	tapGoodPoints    = 10
	tapBadPenalty    = 20
)

// TapState — раунд Eco-Tap Blitz.
type TapState struct {
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
	Score     int       `json:"score"`
	Finished  bool      `json:"finished"`
	Payout    int64     `json:"payout"`
}

// NewTapRound начинает раунд.
func NewTapRound(now time.Time) TapState {
	return TapState{StartedAt: now, Deadline: now.Add(TapRoundDuration)}
}

// Hit засчитывает касание: хорошая цель +10, плохая -20 без ухода ниже нуля.
func (t *TapState) Hit(kind string, now time.Time) error {
	if t.Finished || !now.Before(t.Deadline) {
		return ErrRoundOver
	}

	switch kind {
	case "good":
		t.Score += tapGoodPoints
	case "bad":
		t.Score -= tapBadPenalty
		if t.Score < 0 {
			t.Score = 0
		}
	default:
		return ErrUnknownTarget
	}
	return nil
}

// Finish завершает раунд и возвращает выплату score*multiplier. Повторное завершение ничего не платит.
func (t *TapState) Finish(multiplier int64) (int64, bool) {
	if t.Finished {
		return 0, false
	}
	t.Finished = true
	t.Payout = int64(t.Score) * multiplier
	return t.Payout, true
}

// Remaining возвращает оставшееся время раунда.
func (t *TapState) Remaining(now time.Time) time.Duration {
	if t.Finished || !now.Before(t.Deadline) {
		return 0
	}
	return t.Deadline.Sub(now)
}
