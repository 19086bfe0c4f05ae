package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	CategoryNameMaxLength = 200
	CategorySlugMaxLength = 200
)

// Category represents a product category.
// The slug is derived from the name on first save and never changes afterwards.
type Category struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"size:200;uniqueIndex;not null"`
	NameKey     string  `gorm:"size:200;uniqueIndex;not null"`
	Slug        string  `gorm:"size:200;uniqueIndex;not null"`
	Description *string `gorm:"type:text"`
	IsActive    bool    `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Category) TableName() string {
	return "categories"
}

// CategoryNameKey returns the form of a category name that must be unique.
func CategoryNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BeforeSave keeps the name key in step with the name and assigns a slug
// to records that do not have one yet.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Name != "" {
		c.NameKey = CategoryNameKey(c.Name)
	}
	if c.Name != "" && c.Slug == "" {
		c.Slug = MakeSlug(c.Name, CategorySlugMaxLength)
	}
	return nil
}

func (c *Category) DescriptionText() string {
	if c.Description == nil {
		return ""
	}
	return *c.Description
}

func (c *Category) String() string {
	return c.Name
}
