package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type KiotvietProduct struct {
	ID           int             `gorm:"primary_key" json:"id"`
	KiotvietID   int64           `gorm:"column:kiotviet_id;uniqueIndex;not null" json:"kiotviet_id"`
	Code         string          `gorm:"uniqueIndex;size:100;not null" json:"code"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	FullName     string          `gorm:"size:255" json:"full_name"`
	CategoryID   int64           `gorm:"index" json:"category_id"`
	CategoryName string          `gorm:"size:255" json:"category_name"`
	BasePrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_price"`
	Weight       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	Unit         string          `gorm:"size:50" json:"unit"`
	MasterUnitID *int64          `json:"master_unit_id"`
	Description  string          `gorm:"type:text" json:"description"`
	Images       []byte          `gorm:"type:jsonb" json:"images"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	AllowsSale   *bool           `gorm:"not null;default:true" json:"allows_sale"`
	HasVariants  *bool           `gorm:"not null;default:false" json:"has_variants"`
	ModifiedDate *time.Time      `gorm:"index" json:"modified_date"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KiotvietProduct) TableName() string {
	return "kiotviet_products"
}

// KiotvietInventory is the per-branch stock row under a product. Rows carry
// no upstream id of their own and are replaced as a set whenever the parent
// product is upserted.
type KiotvietInventory struct {
	ID         int             `gorm:"primary_key" json:"id"`
	ProductID  int             `gorm:"uniqueIndex:idx_kv_inventory_product_branch,priority:1;not null" json:"product_id"`
	Product    KiotvietProduct `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	BranchID   int64           `gorm:"uniqueIndex:idx_kv_inventory_product_branch,priority:2;not null" json:"branch_id"`
	BranchName string          `gorm:"size:255" json:"branch_name"`
	Cost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	OnHand     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"on_hand"`
	Reserved   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KiotvietInventory) TableName() string {
	return "kiotviet_inventories"
}
