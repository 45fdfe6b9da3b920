package model

import (
	"encoding/json"
	"slices"
)

// ProgressStatistics 周期性胜场统计
type ProgressStatistics struct {
	DailyWins     int64   `json:"dailyWins"`
	WeeklyWins    int64   `json:"weeklyWins"`
	MonthlyWins   int64   `json:"monthlyWins"`
	HighestWin    float64 `json:"highestWin"`
	WinStreak     int64   `json:"winStreak"`
	BestWinStreak int64   `json:"bestWinStreak"`
}

// Progress 游戏进度文档，存储于 game_progress
type Progress struct {
	LastPlayedGame       *string            `json:"lastPlayedGame"`
	FavoriteGames        []string           `json:"favoriteGames"`
	AchievementsUnlocked []string           `json:"achievementsUnlocked"`
	TotalWins            int64              `json:"totalWins"`
	TotalSpins           int64              `json:"totalSpins"`
	TotalWagered         float64            `json:"totalWagered"`
	LastPlayedAt         *string            `json:"lastPlayedAt"`
	UnlockedThemes       []string           `json:"unlockedThemes"`
	UnlockedAvatars      []string           `json:"unlockedAvatars"`
	Statistics           ProgressStatistics `json:"statistics"`
}

// DefaultProgress 新用户的进度
func DefaultProgress() *Progress {
	return &Progress{
		FavoriteGames:        []string{},
		AchievementsUnlocked: []string{},
		UnlockedThemes:       []string{"default"},
		UnlockedAvatars:      []string{"default"},
	}
}

// MergeProgress 将持久化的部分文档覆盖到默认值上
func MergeProgress(raw json.RawMessage) (*Progress, error) {
	p := DefaultProgress()
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return DefaultProgress(), err
	}
	p.normalize()
	return p, nil
}

// Apply 将部分更新覆盖到当前文档：statistics 逐字段合并，列表整体替换
func (p *Progress) Apply(partial json.RawMessage) error {
	next := p.Clone()
	if err := json.Unmarshal(partial, next); err != nil {
		return err
	}
	next.normalize()
	*p = *next
	return nil
}

// UnlockAchievement 解锁成就，已解锁时返回 false
func (p *Progress) UnlockAchievement(id string) bool {
	if slices.Contains(p.AchievementsUnlocked, id) {
		return false
	}
	p.AchievementsUnlocked = append(p.AchievementsUnlocked, id)
	return true
}

// Clone 深拷贝
func (p *Progress) Clone() *Progress {
	c := *p
	c.FavoriteGames = slices.Clone(p.FavoriteGames)
	c.AchievementsUnlocked = slices.Clone(p.AchievementsUnlocked)
	c.UnlockedThemes = slices.Clone(p.UnlockedThemes)
	c.UnlockedAvatars = slices.Clone(p.UnlockedAvatars)
	c.LastPlayedGame = cloneString(p.LastPlayedGame)
	c.LastPlayedAt = cloneString(p.LastPlayedAt)
	return &c
}

// null 或缺失的列表回退为默认值
func (p *Progress) normalize() {
	def := DefaultProgress()
	if p.FavoriteGames == nil {
		p.FavoriteGames = def.FavoriteGames
	}
	if p.AchievementsUnlocked == nil {
		p.AchievementsUnlocked = def.AchievementsUnlocked
	}
	if p.UnlockedThemes == nil {
		p.UnlockedThemes = def.UnlockedThemes
	}
	if p.UnlockedAvatars == nil {
		p.UnlockedAvatars = def.UnlockedAvatars
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
