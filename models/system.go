package models

import "time"

// SystemSetting is a row in the `system` key/value table. The KiotViet
// credential lives here under the title "kiotviet"; the value is either a
// bare token string written by the old scripts or a JSON object
// {"token": "...", "expires_at": "..."}; readers must accept both.
type SystemSetting struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Title     string    `gorm:"uniqueIndex;size:100;not null" json:"title"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system"
}
