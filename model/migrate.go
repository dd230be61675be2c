package model

import "gorm.io/gorm"

// AutoMigrate 创建/更新本服务的全部表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Friendship{}, &Message{})
}
