package models

import "time"

type Customer struct {
	ID            uint   `gorm:"primaryKey"`
	BranchID      uint   `gorm:"index;not null"`
	Branch        Branch
	Name          string `gorm:"size:255;not null"`
	Email         string `gorm:"size:255"`
	Phone         string `gorm:"size:50"`
	Address       string `gorm:"size:500"`
	LoyaltyPoints int    `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
