package storage

import (
	"encoding/json"
	"time"
)

// RuleRecord is the persisted form of a billing rule.
type RuleRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RuleCode   string `gorm:"size:64;uniqueIndex"`
	Name       string `gorm:"size:128"`
	Status     string `gorm:"size:32;index;default:enabled"`
	RegionCode string `gorm:"size:32;index"`

	// LotCodes is a JSON string array; empty array = region-wide.
	LotCodes string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Versions []VersionRecord `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`
}

// TableName sets the rules table name.
func (RuleRecord) TableName() string { return "billing_rules" }

func (r RuleRecord) lotCodes() []string {
	var codes []string
	if r.LotCodes != "" {
		_ = json.Unmarshal([]byte(r.LotCodes), &codes)
	}
	return codes
}

// VersionRecord is the persisted form of one rule version. The payload
// column holds the wire-format segment array untouched.
type VersionRecord struct {
	ID            uint       `gorm:"primaryKey;autoIncrement"`
	RuleID        uint       `gorm:"index;uniqueIndex:uq_rule_version"`
	VersionNo     int        `gorm:"uniqueIndex:uq_rule_version"`
	EffectiveFrom time.Time  `gorm:"index"`
	EffectiveTo   *time.Time
	Priority      int    `gorm:"default:100"`
	RulePayload   string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the versions table name.
func (VersionRecord) TableName() string { return "billing_rule_versions" }

// OrderRecord is a parking order with its recorded amounts in cents.
type OrderRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	OrderNo    string `gorm:"size:64;uniqueIndex"`
	PlateNo    string `gorm:"size:16;index"`
	CityCode   string `gorm:"size:32;index"`
	LotCode    string `gorm:"size:64;index"`
	RuleCode   string `gorm:"size:64;index"`
	VersionNo  *int
	EntryTime  time.Time `gorm:"index"`
	ExitTime   *time.Time
	TotalCents int64 `gorm:"default:0"`
	PaidCents  int64 `gorm:"default:0"`

	// ArrearsCents is max(0, total - paid), fixed at write time.
	ArrearsCents int64  `gorm:"default:0;index"`
	Status       string `gorm:"size:32;index;default:UNPAID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the orders table name.
func (OrderRecord) TableName() string { return "parking_orders" }

// VerificationRecord is an audit row for one consistency check.
type VerificationRecord struct {
	ID            string `gorm:"size:36;primaryKey"`
	OrderNo       string `gorm:"size:64;index"`
	RuleCode      string `gorm:"size:64"`
	VersionNo     int
	ExpectedCents int64
	ActualCents   int64
	Result        string `gorm:"size:16"`
	Action        string `gorm:"size:32"`

	CreatedAt time.Time
}

// TableName sets the verifications table name.
func (VerificationRecord) TableName() string { return "fee_verifications" }
