package model

import (
	"encoding/json"
	"slices"

	"github.com/cockroachdb/errors"
)

type SoundSettings struct {
	Enabled             bool    `json:"enabled"`
	Volume              float64 `json:"volume" validate:"gte=0,lte=1"`
	MusicEnabled        bool    `json:"musicEnabled"`
	MusicVolume         float64 `json:"musicVolume" validate:"gte=0,lte=1"`
	SoundEffectsEnabled bool    `json:"soundEffectsEnabled"`
	SoundEffectsVolume  float64 `json:"soundEffectsVolume" validate:"gte=0,lte=1"`
	VoiceEnabled        bool    `json:"voiceEnabled"`
	VoiceVolume         float64 `json:"voiceVolume" validate:"gte=0,lte=1"`
}

type GraphicsSettings struct {
	Quality           string `json:"quality" validate:"oneof=low medium high"`
	Animations        bool   `json:"animations"`
	ParticleEffects   bool   `json:"particleEffects"`
	BackgroundEffects bool   `json:"backgroundEffects"`
}

type GameplaySettings struct {
	AutoSpin           bool `json:"autoSpin"`
	AutoSpinCount      int  `json:"autoSpinCount" validate:"gte=1,lte=1000"`
	QuickSpin          bool `json:"quickSpin"`
	TurboMode          bool `json:"turboMode"`
	SpaceToSpin        bool `json:"spaceToSpin"`
	ShowWinCelebration bool `json:"showWinCelebration"`
	ShowGameHistory    bool `json:"showGameHistory"`
}

type NotificationSettings struct {
	BonusOffers bool `json:"bonusOffers"`
	JackpotWins bool `json:"jackpotWins"`
	FreeSpins   bool `json:"freeSpins"`
	Sound       bool `json:"sound"`
	Push        bool `json:"push"`
	Email       bool `json:"email"`
}

type AccessibilitySettings struct {
	ColorBlindMode bool `json:"colorBlindMode"`
	HighContrast   bool `json:"highContrast"`
	ReducedMotion  bool `json:"reducedMotion"`
	LargerText     bool `json:"largerText"`
}

type PrivacySettings struct {
	ShowInLeaderboards  bool `json:"showInLeaderboards"`
	AllowFriendRequests bool `json:"allowFriendRequests"`
	ShowOnlineStatus    bool `json:"showOnlineStatus"`
}

// Settings 游戏设置文档，存储于 game_settings
type Settings struct {
	Sound         SoundSettings         `json:"sound"`
	Graphics      GraphicsSettings      `json:"graphics"`
	Gameplay      GameplaySettings      `json:"gameplay"`
	Notifications NotificationSettings  `json:"notifications"`
	Accessibility AccessibilitySettings `json:"accessibility"`
	Privacy       PrivacySettings       `json:"privacy"`

	// 毫秒时间戳
	LastUpdated int64 `json:"lastUpdated,omitempty"`
}

// DefaultSettings 首次进入游戏时的默认设置
func DefaultSettings() *Settings {
	return &Settings{
		Sound: SoundSettings{
			Enabled:             true,
			Volume:              0.8,
			MusicEnabled:        true,
			MusicVolume:         0.6,
			SoundEffectsEnabled: true,
			SoundEffectsVolume:  0.8,
			VoiceEnabled:        true,
			VoiceVolume:         0.7,
		},
		Graphics: GraphicsSettings{
			Quality:           "high",
			Animations:        true,
			ParticleEffects:   true,
			BackgroundEffects: true,
		},
		Gameplay: GameplaySettings{
			AutoSpinCount:      10,
			SpaceToSpin:        true,
			ShowWinCelebration: true,
			ShowGameHistory:    true,
		},
		Notifications: NotificationSettings{
			BonusOffers: true,
			JackpotWins: true,
			FreeSpins:   true,
			Sound:       true,
			Push:        true,
		},
		Privacy: PrivacySettings{
			ShowInLeaderboards:  true,
			AllowFriendRequests: true,
			ShowOnlineStatus:    true,
		},
	}
}

// SettingsSections 文档中可修改的分组
var SettingsSections = []string{"sound", "graphics", "gameplay", "notifications", "accessibility", "privacy"}

// IsSettingsSection 是否为已知分组
func IsSettingsSection(name string) bool {
	return slices.Contains(SettingsSections, name)
}

// MergeSettings 将持久化的部分文档逐分组覆盖到默认值上，缺失字段保留默认。
// 某个分组无法解码时只有该分组回退默认，返回的 error 汇总所有失败分组
func MergeSettings(raw json.RawMessage) (*Settings, error) {
	s := DefaultSettings()
	if len(raw) == 0 {
		return s, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return s, errors.Wrap(err, "decode settings")
	}

	var errs error
	for name, target := range s.sections() {
		part, ok := doc[name]
		if !ok {
			continue
		}
		if err := decodeSection(part, target); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "decode settings.%s", name))
		}
	}
	if part, ok := doc["lastUpdated"]; ok {
		var ts int64
		if err := json.Unmarshal(part, &ts); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "decode settings.lastUpdated"))
		} else {
			s.LastUpdated = ts
		}
	}
	return s, errs
}

func (s *Settings) sections() map[string]any {
	return map[string]any{
		"sound":         &s.Sound,
		"graphics":      &s.Graphics,
		"gameplay":      &s.Gameplay,
		"notifications": &s.Notifications,
		"accessibility": &s.Accessibility,
		"privacy":       &s.Privacy,
	}
}

// decodeSection 在默认值副本上解码，失败时 target 保持不变
func decodeSection(part json.RawMessage, target any) error {
	switch t := target.(type) {
	case *SoundSettings:
		return decodeOver(part, t)
	case *GraphicsSettings:
		return decodeOver(part, t)
	case *GameplaySettings:
		return decodeOver(part, t)
	case *NotificationSettings:
		return decodeOver(part, t)
	case *AccessibilitySettings:
		return decodeOver(part, t)
	case *PrivacySettings:
		return decodeOver(part, t)
	}
	return errors.Newf("unknown settings section %T", target)
}

func decodeOver[T any](part json.RawMessage, target *T) error {
	tmp := *target
	if err := json.Unmarshal(part, &tmp); err != nil {
		return err
	}
	*target = tmp
	return nil
}
