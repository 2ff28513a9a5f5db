package models

import "time"

// ScanLock: süreli, tekil anahtar kilidi (Redis yokken tarama kısıtlaması için).
type ScanLock struct {
	Name      string    `gorm:"primaryKey;size:100"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
