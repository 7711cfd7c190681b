package kvsync

import (
	"encoding/json"
	"errors"

	"github.com/gaolamthuy/glt-backend/kiotviet"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/shopspring/decimal"
)

var (
	errMissingID   = errors.New("missing upstream id")
	errMissingCode = errors.New("missing code")
)

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

func mapProduct(raw json.RawMessage) (models.KiotvietProduct, []models.KiotvietInventory, error) {
	var src kiotviet.Product
	if err := json.Unmarshal(raw, &src); err != nil {
		return models.KiotvietProduct{}, nil, err
	}
	if src.ID == 0 {
		return models.KiotvietProduct{}, nil, errMissingID
	}
	if src.Code == "" {
		return models.KiotvietProduct{}, nil, errMissingCode
	}

	images, _ := json.Marshal(src.Images)
	row := models.KiotvietProduct{
		KiotvietID:   src.ID,
		Code:         src.Code,
		Name:         src.Name,
		FullName:     src.FullName,
		CategoryID:   src.CategoryID,
		CategoryName: src.CategoryName,
		BasePrice:    decimalFromNumber(src.BasePrice),
		Weight:       decimalFromNumber(src.Weight),
		Unit:         src.Unit,
		MasterUnitID: src.MasterUnitID,
		Description:  src.Description,
		Images:       images,
		IsActive:     src.IsActive,
		AllowsSale:   src.AllowsSale,
		HasVariants:  src.HasVariants,
		ModifiedDate: kiotviet.ParseTime(src.ModifiedDate),
	}

	// ProductID is filled in after the parent surrogate id is resolved.
	children := make([]models.KiotvietInventory, 0, len(src.Inventories))
	for _, inv := range src.Inventories {
		children = append(children, models.KiotvietInventory{
			BranchID:   inv.BranchID,
			BranchName: inv.BranchName,
			Cost:       decimalFromNumber(inv.Cost),
			OnHand:     decimalFromNumber(inv.OnHand),
			Reserved:   decimalFromNumber(inv.Reserved),
		})
	}
	return row, children, nil
}

func mapCustomer(raw json.RawMessage) (models.KiotvietCustomer, error) {
	var src kiotviet.Customer
	if err := json.Unmarshal(raw, &src); err != nil {
		return models.KiotvietCustomer{}, err
	}
	if src.ID == 0 {
		return models.KiotvietCustomer{}, errMissingID
	}
	if src.Code == "" {
		return models.KiotvietCustomer{}, errMissingCode
	}

	return models.KiotvietCustomer{
		KiotvietID:    src.ID,
		Code:          src.Code,
		Name:          src.Name,
		Gender:        src.Gender,
		BirthDate:     kiotviet.ParseTime(src.BirthDate),
		ContactNumber: src.ContactNumber,
		Email:         src.Email,
		Address:       src.Address,
		WardName:      src.WardName,
		LocationName:  src.LocationName,
		Comments:      src.Comments,
		TotalRevenue:  decimalFromNumber(src.TotalRevenue),
		TotalPoint:    decimalFromNumber(src.TotalPoint),
		Debt:          decimalFromNumber(src.Debt),
		Groups:        src.Groups,
		ModifiedDate:  kiotviet.ParseTime(src.ModifiedDate),
	}, nil
}

func mapInvoice(raw json.RawMessage) (models.KvInvoice, []models.KvInvoiceDetail, error) {
	var src kiotviet.Invoice
	if err := json.Unmarshal(raw, &src); err != nil {
		return models.KvInvoice{}, nil, err
	}
	if src.ID == 0 {
		return models.KvInvoice{}, nil, errMissingID
	}
	if src.Code == "" {
		return models.KvInvoice{}, nil, errMissingCode
	}

	row := models.KvInvoice{
		KiotvietID:         src.ID,
		Code:               src.Code,
		PurchaseDate:       kiotviet.ParseTime(src.PurchaseDate),
		BranchID:           src.BranchID,
		BranchName:         src.BranchName,
		SoldByID:           src.SoldByID,
		SoldByName:         src.SoldByName,
		CustomerKiotvietID: src.CustomerID,
		CustomerCode:       src.CustomerCode,
		CustomerName:       src.CustomerName,
		OrderCode:          src.OrderCode,
		Total:              decimalFromNumber(src.Total),
		TotalPayment:       decimalFromNumber(src.TotalPayment),
		Discount:           decimalFromNumber(src.Discount),
		Status:             src.Status,
		StatusValue:        src.StatusValue,
		UsingCod:           src.UsingCod,
		ModifiedDate:       kiotviet.ParseTime(src.ModifiedDate),
	}

	details := make([]models.KvInvoiceDetail, 0, len(src.InvoiceDetails))
	for _, d := range src.InvoiceDetails {
		details = append(details, models.KvInvoiceDetail{
			ProductKiotvietID: d.ProductID,
			ProductCode:       d.ProductCode,
			ProductName:       d.ProductName,
			CategoryID:        d.CategoryID,
			Quantity:          decimalFromNumber(d.Quantity),
			Price:             decimalFromNumber(d.Price),
			Discount:          decimalFromNumber(d.Discount),
			DiscountRatio:     decimalFromNumber(d.DiscountRatio),
			SubTotal:          decimalFromNumber(d.SubTotal),
			Note:              d.Note,
		})
	}
	return row, details, nil
}

func mapPurchaseOrder(raw json.RawMessage) (models.KiotvietPurchaseOrder, []models.KiotvietPurchaseOrderDetail, error) {
	var src kiotviet.PurchaseOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return models.KiotvietPurchaseOrder{}, nil, err
	}
	if src.ID == 0 {
		return models.KiotvietPurchaseOrder{}, nil, errMissingID
	}
	if src.Code == "" {
		return models.KiotvietPurchaseOrder{}, nil, errMissingCode
	}

	row := models.KiotvietPurchaseOrder{
		KiotvietID:   src.ID,
		Code:         src.Code,
		PurchaseDate: kiotviet.ParseTime(src.PurchaseDate),
		BranchID:     src.BranchID,
		BranchName:   src.BranchName,
		SupplierID:   src.SupplierID,
		SupplierCode: src.SupplierCode,
		SupplierName: src.SupplierName,
		Total:        decimalFromNumber(src.Total),
		TotalPayment: decimalFromNumber(src.TotalPayment),
		Discount:     decimalFromNumber(src.Discount),
		Status:       src.Status,
		Description:  src.Description,
		ModifiedDate: kiotviet.ParseTime(src.ModifiedDate),
	}

	details := make([]models.KiotvietPurchaseOrderDetail, 0, len(src.PurchaseOrderDetails))
	for _, d := range src.PurchaseOrderDetails {
		details = append(details, models.KiotvietPurchaseOrderDetail{
			ProductKiotvietID: d.ProductID,
			ProductCode:       d.ProductCode,
			ProductName:       d.ProductName,
			Quantity:          decimalFromNumber(d.Quantity),
			Price:             decimalFromNumber(d.Price),
			Discount:          decimalFromNumber(d.Discount),
		})
	}
	return row, details, nil
}

func mapInventory(raw json.RawMessage) (kiotviet.Inventory, models.KiotvietInventory, error) {
	var src kiotviet.Inventory
	if err := json.Unmarshal(raw, &src); err != nil {
		return kiotviet.Inventory{}, models.KiotvietInventory{}, err
	}
	if src.ProductID == 0 {
		return kiotviet.Inventory{}, models.KiotvietInventory{}, errMissingID
	}
	row := models.KiotvietInventory{
		BranchID:   src.BranchID,
		BranchName: src.BranchName,
		Cost:       decimalFromNumber(src.Cost),
		OnHand:     decimalFromNumber(src.OnHand),
		Reserved:   decimalFromNumber(src.Reserved),
	}
	return src, row, nil
}
