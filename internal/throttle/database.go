package throttle

import (
	"context"
	"fmt"
	"time"

	"magaza-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBLocker kilidi scan_locks tablosunda tutar; Redis tanımlı değilse kullanılır.
type DBLocker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBLocker(db *gorm.DB) *DBLocker {
	return &DBLocker{db: db, now: time.Now}
}

func (l *DBLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.now().UTC()
	db := l.db.WithContext(ctx)

	// süresi dolmuş kilit temizlenir; geçerli kilit olduğu gibi kalır
	if err := db.Where("name = ? AND expires_at <= ?", key, now).Delete(&models.ScanLock{}).Error; err != nil {
		return false, fmt.Errorf("purge lock %s: %w", key, err)
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ScanLock{
		Name:      key,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if res.Error != nil {
		return false, fmt.Errorf("insert lock %s: %w", key, res.Error)
	}
	return res.RowsAffected == 1, nil
}
