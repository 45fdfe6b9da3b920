package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

// SettingsService 游戏设置，整份文档存于存储键 game_settings
type SettingsService struct {
	docs      DocumentStore
	validator *config.Validator
	logger    logger.Logger
	now       func() time.Time
}

func NewSettingsService(docs DocumentStore, l logger.Logger) *SettingsService {
	return &SettingsService{
		docs:      docs,
		validator: config.NewValidator(),
		logger:    l.Named("service.settings"),
		now:       time.Now,
	}
}

// GetSettings 读取设置并以默认值补齐缺失字段。无存储文档时返回默认值并尽力持久化
func (s *SettingsService) GetSettings(ctx context.Context, userID string) *model.Settings {
	raw, found := s.docs.Get(ctx, userID, model.VaultKeySettings)
	if !found {
		settings := model.DefaultSettings()
		settings.LastUpdated = nowMillis(s.now)
		s.persist(ctx, userID, settings)
		return settings
	}

	settings, err := model.MergeSettings(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "stored settings partly undecodable, affected sections use defaults", "user_id", userID, "error", err)
	}
	if settings.LastUpdated == 0 {
		settings.LastUpdated = nowMillis(s.now)
	}
	return settings
}

// UpdateSetting 替换一个叶子字段并写回整份文档
func (s *SettingsService) UpdateSetting(ctx context.Context, userID, section, key string, value any) (*model.Settings, error) {
	if !model.IsSettingsSection(section) || key == "" {
		return nil, errors.Wrapf(ErrUnknownSetting, "%s.%s", section, key)
	}
	if value == nil {
		return nil, errors.Wrapf(ErrInvalidSettingValue, "%s.%s is null", section, key)
	}

	partial, err := json.Marshal(map[string]map[string]any{section: {key: value}})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSettingValue, err.Error())
	}
	return s.apply(ctx, userID, partial)
}

// SaveSettings 将部分文档按分组合并到当前设置并写回
func (s *SettingsService) SaveSettings(ctx context.Context, userID string, partial json.RawMessage) (*model.Settings, error) {
	return s.apply(ctx, userID, partial)
}

func (s *SettingsService) apply(ctx context.Context, userID string, partial []byte) (*model.Settings, error) {
	current := s.GetSettings(ctx, userID)
	next := *current

	if err := decodeStrict(partial, &next); err != nil {
		if errors.Is(err, errUnknownField) {
			return nil, errors.Wrap(ErrUnknownSetting, err.Error())
		}
		return nil, errors.Wrap(ErrInvalidSettingValue, err.Error())
	}
	if err := s.validator.Validate(&next); err != nil {
		return nil, errors.Wrap(ErrInvalidSettingValue, err.Error())
	}

	next.LastUpdated = nowMillis(s.now)
	if err := s.save(ctx, userID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *SettingsService) save(ctx context.Context, userID string, settings *model.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshal settings")
	}
	if !s.docs.Set(ctx, userID, model.VaultKeySettings, raw) {
		return errors.Wrap(ErrStorageUnavailable, "settings not saved")
	}
	return nil
}

// persist 尽力写入，失败只记录
func (s *SettingsService) persist(ctx context.Context, userID string, settings *model.Settings) {
	if err := s.save(ctx, userID, settings); err != nil {
		s.logger.DebugContext(ctx, "default settings not persisted", "user_id", userID, "error", err)
	}
}
