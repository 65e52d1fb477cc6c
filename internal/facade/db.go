package facade

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AdminUser is the façade's single credential model: an operator account
// permitted to read peer-store and relay-reservation state.
type AdminUser struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash
	CreatedAt time.Time `json:"created_at"`
}

// InitDB opens the façade's credential store. Only "sqlite://" DSNs are
// supported; the façade has no need for a networked database.
func InitDB(dsn string) (*gorm.DB, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return nil, fmt.Errorf("facade: unsupported database DSN %q (only sqlite:// is supported)", dsn)
	}
	dbPath := strings.TrimPrefix(dsn, "sqlite://")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("facade: open database: %w", err)
	}
	if err := db.AutoMigrate(&AdminUser{}); err != nil {
		return nil, fmt.Errorf("facade: migrate database: %w", err)
	}
	return db, nil
}
