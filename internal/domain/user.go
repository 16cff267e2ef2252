package domain

import "time"

// Rider is an authenticated user as returned by the accounts service.
type Rider struct {
	UserID    string    `json:"userId"`
	Realname  string    `json:"realname"`
	Phone     string    `json:"phoneNo"`
	Email     string    `json:"email,omitempty"`
	Birthday  time.Time `json:"birthday"`
	UsedAt    time.Time `json:"usedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// License is a rider's registered driving license.
type License struct {
	LicenseID  string    `json:"licenseId"`
	UserID     string    `json:"userId"`
	Realname   string    `json:"realname"`
	Birthday   time.Time `json:"birthday"`
	LicenseStr string    `json:"licenseStr"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
