package domain

import "time"

// Membership is the slice of the membership table the renewal scanner needs.
type Membership struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	MemberName     string    `json:"member_name"`
	Email          string    `json:"email,omitempty"`
	Level          string    `json:"level,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Grant is the slice of the grants table the report-deadline scanner needs.
type Grant struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Funder         string    `json:"funder"`
	Name           string    `json:"name"`
	AmountCents    int64     `json:"amount_cents"`
	ReportDueAt    time.Time `json:"report_due_at"`
}

// Donation is a recorded gift; inserting one is a producer call site for the
// "donation.created" event.
type Donation struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	DonorName      string    `json:"donor_name"`
	Email          string    `json:"email,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	ReceivedAt     time.Time `json:"received_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateDonationRequest struct {
	DonorName   string     `json:"donor_name"`
	Email       string     `json:"email,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
}
