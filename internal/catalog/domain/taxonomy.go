package domain

import "time"

type Category struct {
	ID           int64
	Name         string
	Slug         string
	Description  string
	ParentID     *int64
	IsActive     bool
	ProductCount int
	CreatedAt    time.Time
}

type CategoryFilter struct {
	// MainOnly keeps top-level categories; otherwise ParentID > 0 narrows to
	// one parent's children.
	MainOnly bool
	ParentID int64
}

type Brand struct {
	ID           int64
	Name         string
	Slug         string
	Description  string
	IsActive     bool
	ProductCount int
	CreatedAt    time.Time
}
