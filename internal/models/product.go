package models

import (
	"time"

	"github.com/google/uuid"
)

// Product представляет товар каталога.
// Используется как источник актуальных цен и снапшотов для заказов.
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Brand     string    `json:"brand" db:"brand"`
	Category  string    `json:"category" db:"category"`
	Price     float64   `json:"price" db:"price"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	IsNew     bool      `json:"is_new" db:"is_new"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DisplayName возвращает отображаемое имя товара ("Nike Air Max 90").
func (p *Product) DisplayName() string {
	if p.Brand == "" {
		return p.Name
	}
	return p.Brand + " " + p.Name
}

// ProductFilter описывает фильтры списка каталога.
type ProductFilter struct {
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
}
