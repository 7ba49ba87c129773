package models

import (
	"gorm.io/gorm"
)

// Account represents a registered login
type Account struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	gorm.Model
}

// TableName specifies the table name for Account Model
func (Account) TableName() string {
	return "accounts"
}
