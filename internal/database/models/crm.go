package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	TenantBase
	Name     string     `gorm:"not null" json:"name"`
	Industry string     `json:"industry"`
	Website  string     `json:"website"`
	OwnerID  *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"`

	Opportunities []Opportunity `gorm:"foreignKey:AccountID" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

type OpportunityStage string

const (
	StageProspecting OpportunityStage = "prospecting"
	StageQualified   OpportunityStage = "qualified"
	StageProposal    OpportunityStage = "proposal"
	StageNegotiation OpportunityStage = "negotiation"
	StageClosedWon   OpportunityStage = "closed_won"
	StageClosedLost  OpportunityStage = "closed_lost"
)

type Opportunity struct {
	TenantBase
	AccountID   uuid.UUID        `gorm:"type:uuid;index;not null" json:"account_id"`
	Name        string           `gorm:"not null" json:"name"`
	Stage       OpportunityStage `gorm:"default:'prospecting'" json:"stage"`
	Amount      float64          `json:"amount"`
	Probability int              `json:"probability"` // 0-100
	CloseDate   *time.Time       `json:"close_date,omitempty"`

	Account *Account `gorm:"foreignKey:AccountID" json:"-"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}
