package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type KvInvoice struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	KiotvietID         int64           `gorm:"column:kiotviet_id;uniqueIndex;not null" json:"kiotviet_id"`
	Code               string          `gorm:"uniqueIndex;size:100;not null" json:"code"`
	PurchaseDate       *time.Time      `gorm:"index" json:"purchase_date"`
	BranchID           int64           `gorm:"index" json:"branch_id"`
	BranchName         string          `gorm:"size:255" json:"branch_name"`
	SoldByID           int64           `json:"sold_by_id"`
	SoldByName         string          `gorm:"size:255" json:"sold_by_name"`
	CustomerKiotvietID *int64          `gorm:"column:customer_kiotviet_id;index" json:"customer_kiotviet_id"`
	CustomerCode       string          `gorm:"size:100" json:"customer_code"`
	CustomerName       string          `gorm:"size:255" json:"customer_name"`
	OrderCode          string          `gorm:"size:100" json:"order_code"`
	Total              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	TotalPayment       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_payment"`
	Discount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Status             int             `json:"status"`
	StatusValue        string          `gorm:"size:50" json:"status_value"`
	UsingCod           *bool           `gorm:"not null;default:false" json:"using_cod"`
	ModifiedDate       *time.Time      `gorm:"index" json:"modified_date"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KvInvoice) TableName() string {
	return "kv_invoices"
}

// KvInvoiceDetail rows are replaced as a set on every parent upsert; they
// have no upstream id of their own.
type KvInvoiceDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	InvoiceID         int             `gorm:"index;not null" json:"invoice_id"`
	Invoice           KvInvoice       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`
	ProductKiotvietID int64           `gorm:"column:product_kiotviet_id;index" json:"product_kiotviet_id"`
	ProductCode       string          `gorm:"size:100" json:"product_code"`
	ProductName       string          `gorm:"size:255" json:"product_name"`
	CategoryID        int64           `json:"category_id"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Price             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Discount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	DiscountRatio     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_ratio"`
	SubTotal          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	Note              string          `gorm:"type:text" json:"note"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (KvInvoiceDetail) TableName() string {
	return "kv_invoice_details"
}
