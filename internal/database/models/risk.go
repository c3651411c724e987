package models

import "github.com/google/uuid"

// RAID register entries: risks, assumptions, issues, dependencies.

type RiskCategory string

const (
	RiskCategoryRisk       RiskCategory = "risk"
	RiskCategoryAssumption RiskCategory = "assumption"
	RiskCategoryIssue      RiskCategory = "issue"
	RiskCategoryDependency RiskCategory = "dependency"
)

type RiskSeverity string

const (
	RiskSeverityLow      RiskSeverity = "low"
	RiskSeverityMedium   RiskSeverity = "medium"
	RiskSeverityHigh     RiskSeverity = "high"
	RiskSeverityCritical RiskSeverity = "critical"
)

type RiskStatus string

const (
	RiskStatusOpen      RiskStatus = "open"
	RiskStatusMitigated RiskStatus = "mitigated"
	RiskStatusClosed    RiskStatus = "closed"
)

type Risk struct {
	TenantBase
	ProjectID   *uuid.UUID   `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Category    RiskCategory `gorm:"default:'risk'" json:"category"`
	Severity    RiskSeverity `gorm:"default:'medium'" json:"severity"`
	Status      RiskStatus   `gorm:"default:'open'" json:"status"`
	Mitigation  string       `json:"mitigation"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

func (Risk) TableName() string {
	return "risks"
}
