package models

import "time"

// Settings are the bot's global runtime settings, reloadable without a
// restart (config keys named non-disruptive in spec §6's control surface).
type Settings struct {
	ID                  int                     `json:"id" db:"id"`
	ConsiderFunding     bool                    `json:"consider_funding" db:"consider_funding"`
	MaxConcurrentTrades *int                    `json:"max_concurrent_trades" db:"max_concurrent_trades"` // nil = unlimited
	NotificationPrefs   NotificationPreferences `json:"notification_prefs" db:"notification_prefs"`
	UpdatedAt           time.Time               `json:"updated_at" db:"updated_at"`
}

// NotificationPreferences toggles which notification types are delivered.
type NotificationPreferences struct {
	Open          bool `json:"open"`
	Close         bool `json:"close"`
	StopLoss      bool `json:"stop_loss"`
	Liquidation   bool `json:"liquidation"`
	APIError      bool `json:"api_error"`
	Margin        bool `json:"margin"`
	Pause         bool `json:"pause"`
	SecondLegFail bool `json:"second_leg_fail"`
}
