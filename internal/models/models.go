package models

import "time"

// ISO8601 is the canonical text form for timestamps handed to callers.
const ISO8601 = "2006-01-02T15:04:05.000Z"

// Offer represents a promotional offer shown on the home screen.
type Offer struct {
	OfferID     string `json:"offerId"`
	Description string `json:"description"`
	Image       string `json:"image"`     // image reference
	OfferType   string `json:"offerType"` // category tag, e.g. "Cashback"
}

// MiniApp represents an embedded partner app launched from the app grid.
type MiniApp struct {
	AppID       string `json:"appId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`      // icon reference
	LaunchURL   string `json:"launchUrl"` // opaque launch target
}

// CreditScoreReport is a user's credit score as reported by a bureau.
type CreditScoreReport struct {
	Score      int    `json:"score"`
	Provider   string `json:"provider"`
	ReportDate string `json:"reportDate"` // ISO8601
}

// HomeScreen bundles the resources the home screen shows.
type HomeScreen struct {
	Offers      []Offer           `json:"offers"`
	MiniApps    []MiniApp         `json:"miniApps"`
	CreditScore CreditScoreReport `json:"creditScore"`
}

// Session holds the local credentials used to call the backend.
type Session struct {
	UserID      string    `json:"userId"`
	AccessToken string    `json:"accessToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StartSessionRequest represents the request body for starting a session.
type StartSessionRequest struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
