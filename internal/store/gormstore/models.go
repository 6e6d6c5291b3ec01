package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile represents the profiles table.
type Profile struct {
	ProfileID  string         `gorm:"type:uuid;primaryKey"`
	Wallet     string         `gorm:"not null;index:uniq_profiles_wallet,unique"`
	Balance    float64        `gorm:"not null"`
	AccessCode *string        `gorm:""`
	RedeemedAt *time.Time     `gorm:""`
	Metadata   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (Profile) TableName() string { return "profiles" }

func (profile *Profile) BeforeCreate(tx *gorm.DB) error {
	if profile.ProfileID == "" {
		profile.ProfileID = uuid.NewString()
	}
	return nil
}

// Round mirrors the rounds table.
type Round struct {
	RoundID   string     `gorm:"type:uuid;primaryKey"`
	Wallet    string     `gorm:"not null;index:idx_rounds_wallet_opened,priority:1"`
	TargetID  string     `gorm:"not null"`
	Stake     float64    `gorm:"not null"`
	Payout    float64    `gorm:"not null"`
	Status    string     `gorm:"not null;index:idx_rounds_status"`
	OpenedAt  time.Time  `gorm:"not null;index:idx_rounds_wallet_opened,priority:2"`
	SettledAt *time.Time `gorm:""`
}

func (Round) TableName() string { return "rounds" }

func (round *Round) BeforeCreate(tx *gorm.DB) error {
	if round.RoundID == "" {
		round.RoundID = uuid.NewString()
	}
	return nil
}

// TargetCell mirrors the target_cells table.
type TargetCell struct {
	CellID     string  `gorm:"primaryKey"`
	Label      string  `gorm:"not null"`
	Multiplier float64 `gorm:"not null"`
	Position   int     `gorm:"not null;index:idx_target_cells_position"`
}

func (TargetCell) TableName() string { return "target_cells" }
