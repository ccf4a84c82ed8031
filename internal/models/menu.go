package models

import "time"

type Menu struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Date        string     `gorm:"size:10;not null;index" json:"date"` // YYYY-MM-DD
	Name        string     `gorm:"size:150;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Active      bool       `gorm:"not null" json:"active"`
	Dishes      []MenuDish `gorm:"foreignKey:MenuID;constraint:OnDelete:CASCADE" json:"dishes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type MenuDish struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	MenuID    uint            `gorm:"index;not null" json:"menu_id"`
	SheetID   uint            `gorm:"index;not null" json:"sheet_id"`
	Sheet     *TechnicalSheet `gorm:"constraint:OnDelete:RESTRICT" json:"sheet,omitempty"`
	Available bool            `gorm:"not null" json:"available"`
	Position  int             `gorm:"not null" json:"position"`
}

type Table struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Number    int       `gorm:"uniqueIndex;not null" json:"number"`
	MenuID    *uint     `gorm:"index" json:"menu_id"`
	Menu      *Menu     `gorm:"constraint:OnDelete:SET NULL" json:"menu,omitempty"`
	QRCode    string    `gorm:"column:qr_code;type:text" json:"qrcode_url"` // PNG data URL
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
