package models

import "gorm.io/datatypes"

// InventoryItem is a garment or accessory the user already owns.
// Items are referenced by id from outfits and never copied.
type InventoryItem struct {
	JsonModel
	OwnerID     uint                        `gorm:"index" json:"-"`
	Owner       UserAccount                 `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Category    string                      `json:"category"` // free text, e.g. blouse, chinos, loafers
	Color       string                      `json:"color"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Description string                      `gorm:"type:text" json:"description"`
	Favorite    bool                        `gorm:"default:false" json:"favorite"`
	ImageURL    *string                     `json:"image_url"`
}
