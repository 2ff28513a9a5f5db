package models

import "time"

type NotificationType string

const NotificationLowStock NotificationType = "low_stock"

type StockNotification struct {
	ID        uint             `gorm:"primaryKey"`
	ProductID uint             `gorm:"index;not null"`
	Product   Product
	Type      NotificationType `gorm:"size:30;not null"`
	Message   string           `gorm:"size:500;not null"`
	IsRead    bool             `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
