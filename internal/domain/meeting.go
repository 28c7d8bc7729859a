package domain

import "time"

// Meeting is a confirmed booking. It is never modified after it is stored.
type Meeting struct {
	ID        string    `json:"id"`
	StaffName string    `json:"staff_name"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreInfo describes the business the assistant answers for.
type StoreInfo struct {
	Name        string `json:"store_name" yaml:"store_name"`
	Description string `json:"store_description" yaml:"store_description"`
}
