package models

import "gorm.io/gorm"

// Asset is a member of the supported-asset set loaded at startup.
// Stable assets are quote currencies and are never liquidated.
type Asset struct {
	gorm.Model
	Symbol  string `gorm:"uniqueIndex"`
	Stable  bool   `gorm:"default:false"`
	Enabled bool   `gorm:"default:true"`
}
