package models

import (
	"path"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ProductNameMaxLength = 255
	ProductSlugMaxLength = 255
)

// Product represents a product in the catalog.
// It belongs to exactly one category; the foreign key restricts deleting
// a category that still has products.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:255;not null"`
	CategoryID  uint            `gorm:"not null;index"`
	Category    Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Slug        string          `gorm:"size:255;uniqueIndex;not null"`
	Description *string         `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null"`
	IsActive    bool            `gorm:"not null;default:true"`
	Image       *string         `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Product) TableName() string {
	return "products"
}

// BeforeSave assigns a slug to records that do not have one yet.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Name != "" && p.Slug == "" {
		p.Slug = MakeSlug(p.Name, ProductSlugMaxLength)
	}
	return nil
}

func (p *Product) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

func (p *Product) ImagePath() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}

func (p *Product) String() string {
	return p.Name
}

// ProductImagePath returns the storage key of an uploaded product image.
func ProductImagePath(slug, filename string) string {
	return path.Join("products", slug, path.Base(filename))
}
