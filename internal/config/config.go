package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// RulesConfig carries the behavior flags of the game rules and the hosted
// session transport.
type RulesConfig struct {
	// PermissivePlay keeps the reference legality rule: any card is playable
	// once a discard top exists.
	PermissivePlay bool `json:"permissive_play"`
	// WinOnEmptyHand enables win detection when a hand empties.
	WinOnEmptyHand bool `json:"win_on_empty_hand"`
	// HandSize is the number of cards dealt to each player.
	HandSize int `json:"hand_size"`
	// BotEnabled allows a bot to fill the second seat of a solo session.
	BotEnabled bool `json:"bot_enabled"`
	// BotMinDelaySeconds/BotMaxDelaySeconds bound how long a bot waits
	// before acting.
	BotMinDelaySeconds int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds int `json:"bot_max_delay_seconds"`
	// BotAutoFillDelaySeconds is how long a solo human waits before the
	// empty seat is filled with a bot.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
}

var (
	cfg      *RulesConfig
	loadOnce sync.Once
	loadErr  error
)

// DefaultRulesConfig matches the observed reference behavior.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		PermissivePlay:          true,
		WinOnEmptyHand:          false,
		HandSize:                7,
		BotEnabled:              true,
		BotMinDelaySeconds:      1,
		BotMaxDelaySeconds:      3,
		BotAutoFillDelaySeconds: 5,
	}
}

// LoadRulesConfig loads the rules configuration from the given path.
func LoadRulesConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read rules config: %w", err)
			return
		}

		c := DefaultRulesConfig()
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal rules config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetRulesConfig returns the loaded configuration, or the defaults when no
// file has been loaded.
func GetRulesConfig() RulesConfig {
	if cfg == nil {
		return DefaultRulesConfig()
	}
	return *cfg
}
