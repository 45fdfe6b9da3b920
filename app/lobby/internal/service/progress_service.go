package service

import (
	"context"
	"encoding/json"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

// ProgressService 游戏进度，整份文档存于存储键 game_progress
type ProgressService struct {
	docs   DocumentStore
	logger logger.Logger
}

func NewProgressService(docs DocumentStore, l logger.Logger) *ProgressService {
	return &ProgressService{
		docs:   docs,
		logger: l.Named("service.progress"),
	}
}

// GetProgress 读取进度并补齐默认值，读取失败时返回默认进度
func (s *ProgressService) GetProgress(ctx context.Context, userID string) *model.Progress {
	raw, found := s.docs.Get(ctx, userID, model.VaultKeyProgress)
	if !found {
		progress := model.DefaultProgress()
		if err := s.save(ctx, userID, progress); err != nil {
			s.logger.DebugContext(ctx, "default progress not persisted", "user_id", userID, "error", err)
		}
		return progress
	}

	progress, err := model.MergeProgress(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "stored progress undecodable, using defaults", "user_id", userID, "error", err)
	}
	return progress
}

// UpdateProgress 合并部分进度（statistics 逐字段）并写回
func (s *ProgressService) UpdateProgress(ctx context.Context, userID string, partial json.RawMessage) (*model.Progress, error) {
	progress := s.GetProgress(ctx, userID)
	if err := progress.Apply(partial); err != nil {
		return nil, errors.Wrap(ErrInvalidProgress, err.Error())
	}
	if err := s.save(ctx, userID, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// IncrementStatistic 累加一个计数字段。计数类字段只接受整数增量且结果不能为负
func (s *ProgressService) IncrementStatistic(ctx context.Context, userID, name string, delta float64) (*model.Progress, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, errors.Wrapf(ErrInvalidProgress, "delta %v", delta)
	}

	progress := s.GetProgress(ctx, userID)
	counter, amount := statisticField(progress, name)
	switch {
	case counter != nil:
		if delta != math.Trunc(delta) {
			return nil, errors.Wrapf(ErrInvalidProgress, "%s requires an integer delta", name)
		}
		if math.Abs(delta) > maxCounterDelta {
			return nil, errors.Wrapf(ErrInvalidProgress, "%s delta %v out of range", name, delta)
		}
		d := int64(delta)
		if d > 0 && *counter > math.MaxInt64-d {
			return nil, errors.Wrapf(ErrInvalidProgress, "%s would overflow", name)
		}
		next := *counter + d
		if next < 0 {
			return nil, errors.Wrapf(ErrInvalidProgress, "%s would become negative", name)
		}
		*counter = next
	case amount != nil:
		next := *amount + delta
		if math.IsInf(next, 0) {
			return nil, errors.Wrapf(ErrInvalidProgress, "%s would overflow", name)
		}
		if next < 0 {
			return nil, errors.Wrapf(ErrInvalidProgress, "%s would become negative", name)
		}
		*amount = next
	default:
		return nil, errors.Wrapf(ErrUnknownStatistic, "%q", name)
	}

	if stats := &progress.Statistics; stats.WinStreak > stats.BestWinStreak {
		stats.BestWinStreak = stats.WinStreak
	}

	if err := s.save(ctx, userID, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// UnlockAchievement 解锁成就，重复解锁不写存储且视为成功
func (s *ProgressService) UnlockAchievement(ctx context.Context, userID, achievementID string) (*model.Progress, error) {
	progress := s.GetProgress(ctx, userID)
	if !progress.UnlockAchievement(achievementID) {
		return progress, nil
	}
	if err := s.save(ctx, userID, progress); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "achievement unlocked", "user_id", userID, "achievement", achievementID)
	return progress, nil
}

func (s *ProgressService) save(ctx context.Context, userID string, progress *model.Progress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return errors.Wrap(err, "marshal progress")
	}
	if !s.docs.Set(ctx, userID, model.VaultKeyProgress, raw) {
		return errors.Wrap(ErrStorageUnavailable, "progress not saved")
	}
	return nil
}

// statisticField 按名称定位计数字段，整数计数返回 counter，金额类返回 amount
// 计数器单次增量上限，float64 在此范围内可精确表示整数
const maxCounterDelta = 1 << 53

func statisticField(p *model.Progress, name string) (counter *int64, amount *float64) {
	switch name {
	case "totalWins":
		return &p.TotalWins, nil
	case "totalSpins":
		return &p.TotalSpins, nil
	case "totalWagered":
		return nil, &p.TotalWagered
	case "dailyWins":
		return &p.Statistics.DailyWins, nil
	case "weeklyWins":
		return &p.Statistics.WeeklyWins, nil
	case "monthlyWins":
		return &p.Statistics.MonthlyWins, nil
	case "highestWin":
		return nil, &p.Statistics.HighestWin
	case "winStreak":
		return &p.Statistics.WinStreak, nil
	case "bestWinStreak":
		return &p.Statistics.BestWinStreak, nil
	}
	return nil, nil
}
