package models

import "time"

// Notification is one operator-facing alert event. PairID anchors it to a
// tracked symbol's dashboard row (nil for account-wide events); SignalID
// anchors it to the arbitrage attempt that produced it (empty for events
// with no single signal, e.g. a circuit trip).
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`
	Severity  string                 `json:"severity" db:"severity"`
	PairID    *int                   `json:"pair_id,omitempty" db:"pair_id"`
	SignalID  string                 `json:"signal_id,omitempty" db:"signal_id"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"`
}

// Notification types.
const (
	NotificationTypeOpen          = "OPEN"
	NotificationTypeClose         = "CLOSE"
	NotificationTypeSL            = "SL"
	NotificationTypeLiquidation   = "LIQUIDATION"
	NotificationTypeError         = "ERROR"
	NotificationTypeMargin        = "MARGIN"
	NotificationTypePause         = "PAUSE"
	NotificationTypeSecondLegFail = "SECOND_LEG_FAIL"

	// Signal-pipeline events, emitted by the detector/risk/execution stages
	// rather than a per-pair position lifecycle.
	NotificationTypeSignalRejected = "SIGNAL_REJECTED"
	NotificationTypeCircuitWarning = "CIRCUIT_WARNING"
	NotificationTypeCircuitTripped = "CIRCUIT_TRIPPED"
)

// Severity levels.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
