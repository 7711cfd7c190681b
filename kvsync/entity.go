package kvsync

import (
	"fmt"
	"net/url"
	"time"
)

// Entity names one mirrored catalog kind; the value doubles as the upstream
// collection path segment.
type Entity string

const (
	EntityProducts       Entity = "products"
	EntityCustomers      Entity = "customers"
	EntityInvoices       Entity = "invoices"
	EntityInventories    Entity = "inventories"
	EntityPurchaseOrders Entity = "purchaseorders"
)

func AllEntities() []Entity {
	return []Entity{
		EntityProducts,
		EntityCustomers,
		EntityInvoices,
		EntityInventories,
		EntityPurchaseOrders,
	}
}

func ParseEntity(value string) (Entity, error) {
	for _, entity := range AllEntities() {
		if string(entity) == value {
			return entity, nil
		}
	}
	return "", fmt.Errorf("unknown entity %q (want one of %v)", value, AllEntities())
}

func (e Entity) Collection() string {
	return string(e)
}

// DateRanged reports whether the upstream list endpoint accepts a purchase
// date window; only those entities support bounded and historical sweeps.
func (e Entity) DateRanged() bool {
	return e == EntityInvoices || e == EntityPurchaseOrders
}

const upstreamDateLayout = "2006-01-02"

// listParams builds the entity-specific query parameters. Cursor, page size
// and traversal order are owned by the fetcher.
func listParams(entity Entity, from, to *time.Time) url.Values {
	params := url.Values{}
	switch entity {
	case EntityProducts:
		params.Set("includeInventory", "true")
	case EntityInvoices:
		params.Set("includeOrderDelivery", "true")
	}

	if entity.DateRanged() {
		if from != nil {
			params.Set("fromPurchaseDate", from.Format(upstreamDateLayout))
		}
		if to != nil {
			params.Set("toPurchaseDate", to.Format(upstreamDateLayout))
		}
	} else if from != nil {
		params.Set("lastModifiedFrom", from.Format(upstreamDateLayout))
	}
	return params
}
