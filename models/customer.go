package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type KiotvietCustomer struct {
	ID            int             `gorm:"primary_key" json:"id"`
	KiotvietID    int64           `gorm:"column:kiotviet_id;uniqueIndex;not null" json:"kiotviet_id"`
	Code          string          `gorm:"uniqueIndex;size:100;not null" json:"code"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Gender        *bool           `json:"gender"`
	BirthDate     *time.Time      `json:"birth_date"`
	ContactNumber string          `gorm:"size:50" json:"contact_number"`
	Email         string          `gorm:"size:255" json:"email"`
	Address       string          `gorm:"size:500" json:"address"`
	WardName      string          `gorm:"size:255" json:"ward_name"`
	LocationName  string          `gorm:"size:255" json:"location_name"`
	Comments      string          `gorm:"type:text" json:"comments"`
	TotalRevenue  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	TotalPoint    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_point"`
	Debt          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debt"`
	Groups        string          `gorm:"size:500" json:"groups"`
	ModifiedDate  *time.Time      `gorm:"index" json:"modified_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KiotvietCustomer) TableName() string {
	return "kiotviet_customers"
}
