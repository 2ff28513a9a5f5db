package models

import "time"

type BranchStatus string

const (
	BranchActive   BranchStatus = "active"
	BranchInactive BranchStatus = "inactive"
)

func (s BranchStatus) Valid() bool {
	return s == BranchActive || s == BranchInactive
}

type Branch struct {
	ID            uint         `gorm:"primaryKey"`
	Name          string       `gorm:"size:255;not null;unique"`
	Address       string       `gorm:"size:500"`
	ContactNumber string       `gorm:"size:20"`
	Status        BranchStatus `gorm:"size:20;not null;default:active"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Users []User
}
