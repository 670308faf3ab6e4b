package validation

import "github.com/shopspring/decimal"

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Username        string `form:"username" json:"username" validate:"required,max=150"`
	Password        string `form:"password" json:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm" json:"confirm" validate:"required"`
}

type LoginRequest struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// ReviewRequest is a rating in [1,5] with an optional comment.
type ReviewRequest struct {
	Rating  int    `form:"rating" json:"rating" validate:"min=1,max=5"`
	Comment string `form:"comment" json:"comment" validate:"max=2000"`
}

type CategoryRequest struct {
	Label string `json:"label" validate:"required,max=100"`
}

type ProductRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	QuantityLabel string          `json:"quantity_label" validate:"max=50"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url"`
	CategoryID    int64           `json:"category_id" validate:"required,gt=0"`
	// Version is required on update for the optimistic check.
	Version int `json:"version" validate:"min=0"`
}

type OrderStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	Version int    `json:"version" validate:"min=0"`
}
