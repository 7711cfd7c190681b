package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type KiotvietPurchaseOrder struct {
	ID           int             `gorm:"primary_key" json:"id"`
	KiotvietID   int64           `gorm:"column:kiotviet_id;uniqueIndex;not null" json:"kiotviet_id"`
	Code         string          `gorm:"uniqueIndex;size:100;not null" json:"code"`
	PurchaseDate *time.Time      `gorm:"index" json:"purchase_date"`
	BranchID     int64           `gorm:"index" json:"branch_id"`
	BranchName   string          `gorm:"size:255" json:"branch_name"`
	SupplierID   *int64          `json:"supplier_id"`
	SupplierCode string          `gorm:"size:100" json:"supplier_code"`
	SupplierName string          `gorm:"size:255" json:"supplier_name"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	TotalPayment decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_payment"`
	Discount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Status       int             `json:"status"`
	Description  string          `gorm:"type:text" json:"description"`
	ModifiedDate *time.Time      `gorm:"index" json:"modified_date"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KiotvietPurchaseOrder) TableName() string {
	return "kiotviet_purchase_orders"
}

type KiotvietPurchaseOrderDetail struct {
	ID                int                   `gorm:"primary_key" json:"id"`
	PurchaseOrderID   int                   `gorm:"index;not null" json:"purchase_order_id"`
	PurchaseOrder     KiotvietPurchaseOrder `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"-"`
	ProductKiotvietID int64                 `gorm:"column:product_kiotviet_id;index" json:"product_kiotviet_id"`
	ProductCode       string                `gorm:"size:100" json:"product_code"`
	ProductName       string                `gorm:"size:255" json:"product_name"`
	Quantity          decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Price             decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"price"`
	Discount          decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"discount"`
	CreatedAt         time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

func (KiotvietPurchaseOrderDetail) TableName() string {
	return "kiotviet_purchase_order_details"
}
