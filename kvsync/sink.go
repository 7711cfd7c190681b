package kvsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gaolamthuy/glt-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewSink returns the upsert sink for one entity kind.
func NewSink(db *gorm.DB, entity Entity) (Sink, error) {
	switch entity {
	case EntityProducts:
		return &productSink{db: db}, nil
	case EntityCustomers:
		return &customerSink{db: db}, nil
	case EntityInvoices:
		return &invoiceSink{db: db}, nil
	case EntityInventories:
		return &inventorySink{db: db}, nil
	case EntityPurchaseOrders:
		return &purchaseOrderSink{db: db}, nil
	default:
		return nil, fmt.Errorf("no sink for entity %q", entity)
	}
}

var productUpdateColumns = []string{
	"code", "name", "full_name", "category_id", "category_name",
	"base_price", "weight", "unit", "master_unit_id", "description",
	"images", "is_active", "allows_sale", "has_variants",
	"modified_date", "updated_at",
}

var customerUpdateColumns = []string{
	"code", "name", "gender", "birth_date", "contact_number", "email",
	"address", "ward_name", "location_name", "comments", "total_revenue",
	"total_point", "debt", "groups", "modified_date", "updated_at",
}

var invoiceUpdateColumns = []string{
	"code", "purchase_date", "branch_id", "branch_name", "sold_by_id",
	"sold_by_name", "customer_kiotviet_id", "customer_code", "customer_name",
	"order_code", "total", "total_payment", "discount", "status",
	"status_value", "using_cod", "modified_date", "updated_at",
}

var purchaseOrderUpdateColumns = []string{
	"code", "purchase_date", "branch_id", "branch_name", "supplier_id",
	"supplier_code", "supplier_name", "total", "total_payment", "discount",
	"status", "description", "modified_date", "updated_at",
}

var inventoryUpdateColumns = []string{
	"branch_name", "cost", "on_hand", "reserved", "updated_at",
}

// naturalConflict upserts on the upstream natural id so the destination
// surrogate id never changes across re-syncs.
func naturalConflict(updateColumns []string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "kiotviet_id"}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}
}

// idPair carries one natural-id → surrogate-id resolution.
type idPair struct {
	ID         int
	KiotvietID int64
}

type productSink struct {
	db *gorm.DB
}

func (s *productSink) Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error) {
	res := BatchResult{Attempted: len(batch)}

	type item struct {
		row      models.KiotvietProduct
		children []models.KiotvietInventory
	}
	items := make([]item, 0, len(batch))
	index := make(map[int64]int, len(batch))
	for _, raw := range batch {
		row, children, err := mapProduct(raw)
		if err != nil {
			res.fail(RecordError{
				Entity:  EntityProducts,
				Code:    "transform_failed",
				Message: err.Error(),
				Payload: raw,
			})
			continue
		}
		// Later occurrence of the same natural id wins within a batch.
		if at, seen := index[row.KiotvietID]; seen {
			items[at] = item{row: row, children: children}
			res.Attempted--
			continue
		}
		index[row.KiotvietID] = len(items)
		items = append(items, item{row: row, children: children})
	}
	if len(items) == 0 {
		return res, nil
	}

	rows := make([]models.KiotvietProduct, len(items))
	ids := make([]int64, len(items))
	for i, it := range items {
		rows[i] = it.row
		ids[i] = it.row.KiotvietID
	}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(naturalConflict(productUpdateColumns)).Create(&rows).Error; err != nil {
		return res, fmt.Errorf("product upsert: %w", err)
	}

	surrogates, err := resolveIDs(db, &models.KiotvietProduct{}, ids)
	if err != nil {
		return res, fmt.Errorf("product id resolution: %w", err)
	}

	for _, it := range items {
		parentID, ok := surrogates[it.row.KiotvietID]
		if !ok {
			res.fail(RecordError{
				Entity:     EntityProducts,
				KiotvietID: it.row.KiotvietID,
				Code:       "parent_unresolved",
				Message:    "upserted product row not found by kiotviet_id",
			})
			continue
		}
		if err := replaceInventories(db, parentID, it.children); err != nil {
			res.fail(RecordError{
				Entity:     EntityProducts,
				KiotvietID: it.row.KiotvietID,
				Code:       "child_write_failed",
				Message:    err.Error(),
			})
			continue
		}
		res.Upserted++
	}
	return res, nil
}

// replaceInventories swaps the per-branch stock set under one product.
// Delete+insert is scoped to a single parent to keep transactions bounded.
func replaceInventories(db *gorm.DB, productID int, children []models.KiotvietInventory) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).
			Delete(&models.KiotvietInventory{}).Error; err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}
		for i := range children {
			children[i].ProductID = productID
			children[i].ID = 0
		}
		return tx.Create(&children).Error
	})
}

type customerSink struct {
	db *gorm.DB
}

func (s *customerSink) Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error) {
	res := BatchResult{Attempted: len(batch)}

	rows := make([]models.KiotvietCustomer, 0, len(batch))
	index := make(map[int64]int, len(batch))
	for _, raw := range batch {
		row, err := mapCustomer(raw)
		if err != nil {
			res.fail(RecordError{
				Entity:  EntityCustomers,
				Code:    "transform_failed",
				Message: err.Error(),
				Payload: raw,
			})
			continue
		}
		if at, seen := index[row.KiotvietID]; seen {
			rows[at] = row
			res.Attempted--
			continue
		}
		index[row.KiotvietID] = len(rows)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return res, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Clauses(naturalConflict(customerUpdateColumns)).Create(&rows).Error; err != nil {
		return res, fmt.Errorf("customer upsert: %w", err)
	}
	res.Upserted = len(rows)
	return res, nil
}

type invoiceSink struct {
	db *gorm.DB
}

func (s *invoiceSink) Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error) {
	res := BatchResult{Attempted: len(batch)}

	type item struct {
		row      models.KvInvoice
		children []models.KvInvoiceDetail
	}
	items := make([]item, 0, len(batch))
	index := make(map[int64]int, len(batch))
	for _, raw := range batch {
		row, children, err := mapInvoice(raw)
		if err != nil {
			res.fail(RecordError{
				Entity:  EntityInvoices,
				Code:    "transform_failed",
				Message: err.Error(),
				Payload: raw,
			})
			continue
		}
		if at, seen := index[row.KiotvietID]; seen {
			items[at] = item{row: row, children: children}
			res.Attempted--
			continue
		}
		index[row.KiotvietID] = len(items)
		items = append(items, item{row: row, children: children})
	}
	if len(items) == 0 {
		return res, nil
	}

	rows := make([]models.KvInvoice, len(items))
	ids := make([]int64, len(items))
	for i, it := range items {
		rows[i] = it.row
		ids[i] = it.row.KiotvietID
	}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(naturalConflict(invoiceUpdateColumns)).Create(&rows).Error; err != nil {
		return res, fmt.Errorf("invoice upsert: %w", err)
	}

	surrogates, err := resolveIDs(db, &models.KvInvoice{}, ids)
	if err != nil {
		return res, fmt.Errorf("invoice id resolution: %w", err)
	}

	for _, it := range items {
		parentID, ok := surrogates[it.row.KiotvietID]
		if !ok {
			res.fail(RecordError{
				Entity:     EntityInvoices,
				KiotvietID: it.row.KiotvietID,
				Code:       "parent_unresolved",
				Message:    "upserted invoice row not found by kiotviet_id",
			})
			continue
		}
		if err := replaceInvoiceDetails(db, parentID, it.children); err != nil {
			res.fail(RecordError{
				Entity:     EntityInvoices,
				KiotvietID: it.row.KiotvietID,
				Code:       "child_write_failed",
				Message:    err.Error(),
			})
			continue
		}
		res.Upserted++
	}
	return res, nil
}

func replaceInvoiceDetails(db *gorm.DB, invoiceID int, children []models.KvInvoiceDetail) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoiceID).
			Delete(&models.KvInvoiceDetail{}).Error; err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}
		for i := range children {
			children[i].InvoiceID = invoiceID
			children[i].ID = 0
		}
		return tx.Create(&children).Error
	})
}

type purchaseOrderSink struct {
	db *gorm.DB
}

func (s *purchaseOrderSink) Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error) {
	res := BatchResult{Attempted: len(batch)}

	type item struct {
		row      models.KiotvietPurchaseOrder
		children []models.KiotvietPurchaseOrderDetail
	}
	items := make([]item, 0, len(batch))
	index := make(map[int64]int, len(batch))
	for _, raw := range batch {
		row, children, err := mapPurchaseOrder(raw)
		if err != nil {
			res.fail(RecordError{
				Entity:  EntityPurchaseOrders,
				Code:    "transform_failed",
				Message: err.Error(),
				Payload: raw,
			})
			continue
		}
		if at, seen := index[row.KiotvietID]; seen {
			items[at] = item{row: row, children: children}
			res.Attempted--
			continue
		}
		index[row.KiotvietID] = len(items)
		items = append(items, item{row: row, children: children})
	}
	if len(items) == 0 {
		return res, nil
	}

	rows := make([]models.KiotvietPurchaseOrder, len(items))
	ids := make([]int64, len(items))
	for i, it := range items {
		rows[i] = it.row
		ids[i] = it.row.KiotvietID
	}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(naturalConflict(purchaseOrderUpdateColumns)).Create(&rows).Error; err != nil {
		return res, fmt.Errorf("purchase order upsert: %w", err)
	}

	surrogates, err := resolveIDs(db, &models.KiotvietPurchaseOrder{}, ids)
	if err != nil {
		return res, fmt.Errorf("purchase order id resolution: %w", err)
	}

	for _, it := range items {
		parentID, ok := surrogates[it.row.KiotvietID]
		if !ok {
			res.fail(RecordError{
				Entity:     EntityPurchaseOrders,
				KiotvietID: it.row.KiotvietID,
				Code:       "parent_unresolved",
				Message:    "upserted purchase order row not found by kiotviet_id",
			})
			continue
		}
		if err := replacePurchaseOrderDetails(db, parentID, it.children); err != nil {
			res.fail(RecordError{
				Entity:     EntityPurchaseOrders,
				KiotvietID: it.row.KiotvietID,
				Code:       "child_write_failed",
				Message:    err.Error(),
			})
			continue
		}
		res.Upserted++
	}
	return res, nil
}

func replacePurchaseOrderDetails(db *gorm.DB, orderID int, children []models.KiotvietPurchaseOrderDetail) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", orderID).
			Delete(&models.KiotvietPurchaseOrderDetail{}).Error; err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}
		for i := range children {
			children[i].PurchaseOrderID = orderID
			children[i].ID = 0
		}
		return tx.Create(&children).Error
	})
}

// inventorySink serves the top-level inventories sweep: records arrive per
// (product, branch) and are upserted against the composite unique index.
// A record whose product has not been mirrored yet is a record-level
// failure, not an abort.
type inventorySink struct {
	db *gorm.DB
}

func (s *inventorySink) Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error) {
	res := BatchResult{Attempted: len(batch)}

	type key struct {
		product int64
		branch  int64
	}
	type item struct {
		productKiotvietID int64
		row               models.KiotvietInventory
	}
	items := make([]item, 0, len(batch))
	index := make(map[key]int, len(batch))
	for _, raw := range batch {
		src, row, err := mapInventory(raw)
		if err != nil {
			res.fail(RecordError{
				Entity:  EntityInventories,
				Code:    "transform_failed",
				Message: err.Error(),
				Payload: raw,
			})
			continue
		}
		k := key{product: src.ProductID, branch: src.BranchID}
		if at, seen := index[k]; seen {
			items[at] = item{productKiotvietID: src.ProductID, row: row}
			res.Attempted--
			continue
		}
		index[k] = len(items)
		items = append(items, item{productKiotvietID: src.ProductID, row: row})
	}
	if len(items) == 0 {
		return res, nil
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.productKiotvietID)
	}
	db := s.db.WithContext(ctx)
	surrogates, err := resolveIDs(db, &models.KiotvietProduct{}, ids)
	if err != nil {
		return res, fmt.Errorf("inventory product resolution: %w", err)
	}

	rows := make([]models.KiotvietInventory, 0, len(items))
	for _, it := range items {
		parentID, ok := surrogates[it.productKiotvietID]
		if !ok {
			res.fail(RecordError{
				Entity:     EntityInventories,
				KiotvietID: it.productKiotvietID,
				Code:       "product_not_mirrored",
				Message:    "inventory references a product absent from the mirror",
			})
			continue
		}
		it.row.ProductID = parentID
		rows = append(rows, it.row)
	}
	if len(rows) == 0 {
		return res, nil
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
		DoUpdates: clause.AssignmentColumns(inventoryUpdateColumns),
	}).Create(&rows).Error
	if err != nil {
		return res, fmt.Errorf("inventory upsert: %w", err)
	}
	res.Upserted += len(rows)
	return res, nil
}

// resolveIDs maps natural ids to surrogate ids in a single query.
func resolveIDs(db *gorm.DB, model any, naturalIDs []int64) (map[int64]int, error) {
	var pairs []idPair
	err := db.Model(model).
		Select("id, kiotviet_id").
		Where("kiotviet_id IN ?", naturalIDs).
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		out[p.KiotvietID] = p.ID
	}
	return out, nil
}
