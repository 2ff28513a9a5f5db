package models

import "time"

type Supplier struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:255;not null;index"`
	ContactPerson string `gorm:"size:255"`
	Email         string `gorm:"size:255"`
	Phone         string `gorm:"size:50"`
	Address       string `gorm:"size:500"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
