package kiotviet

import (
	"encoding/json"
	"strings"
	"time"
)

// ListResponse is the shape of every KiotViet list endpoint. Total is a
// pointer so a missing field can be told apart from zero.
type ListResponse struct {
	Total    *int              `json:"total"`
	PageSize int               `json:"pageSize"`
	Data     []json.RawMessage `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type Product struct {
	ID           int64       `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	FullName     string      `json:"fullName"`
	CategoryID   int64       `json:"categoryId"`
	CategoryName string      `json:"categoryName"`
	BasePrice    json.Number `json:"basePrice"`
	Weight       json.Number `json:"weight"`
	Unit         string      `json:"unit"`
	MasterUnitID *int64      `json:"masterUnitId"`
	Description  string      `json:"description"`
	Images       []string    `json:"images"`
	IsActive     *bool       `json:"isActive"`
	AllowsSale   *bool       `json:"allowsSale"`
	HasVariants  *bool       `json:"hasVariants"`
	ModifiedDate string      `json:"modifiedDate"`
	Inventories  []Inventory `json:"inventories"`
}

type Inventory struct {
	ProductID   int64       `json:"productId"`
	ProductCode string      `json:"productCode"`
	BranchID    int64       `json:"branchId"`
	BranchName  string      `json:"branchName"`
	Cost        json.Number `json:"cost"`
	OnHand      json.Number `json:"onHand"`
	Reserved    json.Number `json:"reserved"`
}

type Customer struct {
	ID            int64       `json:"id"`
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Gender        *bool       `json:"gender"`
	BirthDate     string      `json:"birthDate"`
	ContactNumber string      `json:"contactNumber"`
	Email         string      `json:"email"`
	Address       string      `json:"address"`
	WardName      string      `json:"wardName"`
	LocationName  string      `json:"locationName"`
	Comments      string      `json:"comments"`
	TotalRevenue  json.Number `json:"totalRevenue"`
	TotalPoint    json.Number `json:"totalPoint"`
	Debt          json.Number `json:"debt"`
	Groups        string      `json:"groups"`
	ModifiedDate  string      `json:"modifiedDate"`
}

type Invoice struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	PurchaseDate   string          `json:"purchaseDate"`
	BranchID       int64           `json:"branchId"`
	BranchName     string          `json:"branchName"`
	SoldByID       int64           `json:"soldById"`
	SoldByName     string          `json:"soldByName"`
	CustomerID     *int64          `json:"customerId"`
	CustomerCode   string          `json:"customerCode"`
	CustomerName   string          `json:"customerName"`
	OrderCode      string          `json:"orderCode"`
	Total          json.Number     `json:"total"`
	TotalPayment   json.Number     `json:"totalPayment"`
	Discount       json.Number     `json:"discount"`
	Status         int             `json:"status"`
	StatusValue    string          `json:"statusValue"`
	UsingCod       *bool           `json:"usingCod"`
	ModifiedDate   string          `json:"modifiedDate"`
	InvoiceDetails []InvoiceDetail `json:"invoiceDetails"`
}

type InvoiceDetail struct {
	ProductID     int64       `json:"productId"`
	ProductCode   string      `json:"productCode"`
	ProductName   string      `json:"productName"`
	CategoryID    int64       `json:"categoryId"`
	Quantity      json.Number `json:"quantity"`
	Price         json.Number `json:"price"`
	Discount      json.Number `json:"discount"`
	DiscountRatio json.Number `json:"discountRatio"`
	SubTotal      json.Number `json:"subTotal"`
	Note          string      `json:"note"`
}

type PurchaseOrder struct {
	ID                   int64                 `json:"id"`
	Code                 string                `json:"code"`
	PurchaseDate         string                `json:"purchaseDate"`
	BranchID             int64                 `json:"branchId"`
	BranchName           string                `json:"branchName"`
	SupplierID           *int64                `json:"supplierId"`
	SupplierCode         string                `json:"supplierCode"`
	SupplierName         string                `json:"supplierName"`
	Total                json.Number           `json:"total"`
	TotalPayment         json.Number           `json:"totalPayment"`
	Discount             json.Number           `json:"discount"`
	Status               int                   `json:"status"`
	Description          string                `json:"description"`
	ModifiedDate         string                `json:"modifiedDate"`
	PurchaseOrderDetails []PurchaseOrderDetail `json:"purchaseOrderDetails"`
}

type PurchaseOrderDetail struct {
	ProductID   int64       `json:"productId"`
	ProductCode string      `json:"productCode"`
	ProductName string      `json:"productName"`
	Quantity    json.Number `json:"quantity"`
	Price       json.Number `json:"price"`
	Discount    json.Number `json:"discount"`
}

// timeLayouts covers the timestamp shapes KiotViet emits: RFC3339 for some
// endpoints, a bare local timestamp with optional fractional seconds for
// others.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an upstream timestamp, returning nil for empty or
// unrecognised values.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
