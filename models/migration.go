package models

import (
	"log"

	"github.com/gaolamthuy/glt-backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&SystemSetting{},
		&KiotvietProduct{}, &KiotvietInventory{},
		&KiotvietCustomer{},
		&KvInvoice{}, &KvInvoiceDetail{},
		&KiotvietPurchaseOrder{}, &KiotvietPurchaseOrderDetail{},
		&SyncRun{}, &SyncRunError{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
