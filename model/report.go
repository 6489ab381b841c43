package model

import "time"

// BadLinkReport records a delivery failure reported by a client, typically
// the playback watchdog after its retries are exhausted.
type BadLinkReport struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	TrackID   int64     `gorm:"index" json:"trackId"`
	Reason    string    `gorm:"size:100" json:"reason"`
	Detail    string    `gorm:"size:1000" json:"detail,omitempty"`
	Retries   int       `json:"retries"`
	UserAgent string    `gorm:"size:500" json:"-"`
	IP        string    `gorm:"size:100" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName keeps the original table name used by the reporting sink.
func (BadLinkReport) TableName() string { return "bad_links" }
