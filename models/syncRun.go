package models

import "time"

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusOk      = "ok"
	SyncRunStatusPartial = "partial"
	SyncRunStatusFailed  = "failed"
)

const (
	SyncTriggeredManual    = "manual"
	SyncTriggeredScheduled = "scheduled"
	SyncTriggeredAPI       = "api"
)

type SyncRun struct {
	ID               int        `gorm:"primary_key" json:"id"`
	Entity           string     `gorm:"index;size:32;not null" json:"entity"`
	Status           string     `gorm:"size:16;not null" json:"status"`
	TriggeredBy      string     `gorm:"size:16" json:"triggered_by"`
	WindowFrom       *time.Time `json:"window_from"`
	WindowTo         *time.Time `json:"window_to"`
	PagesFetched     int        `json:"pages_fetched"`
	RecordsAttempted int        `json:"records_attempted"`
	RecordsUpserted  int        `json:"records_upserted"`
	RecordsFailed    int        `json:"records_failed"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	DurationMs       int64      `json:"duration_ms"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

type SyncRunError struct {
	ID         int       `gorm:"primary_key" json:"id"`
	SyncRunID  int       `gorm:"index;not null" json:"sync_run_id"`
	SyncRun    SyncRun   `gorm:"foreignKey:SyncRunID;constraint:OnDelete:CASCADE" json:"-"`
	Entity     string    `gorm:"size:32" json:"entity"`
	KiotvietID int64     `gorm:"column:kiotviet_id" json:"kiotviet_id"`
	ErrorCode  string    `gorm:"size:64" json:"error_code"`
	Message    string    `gorm:"type:text" json:"message"`
	Payload    []byte    `gorm:"type:jsonb" json:"payload"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SyncRunError) TableName() string {
	return "sync_run_errors"
}
