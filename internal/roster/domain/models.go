package domain

import (
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
)

const (
	RowStatusActive   = memberdomain.StatusActive
	RowStatusInactive = memberdomain.StatusInactive
)

// Row is one mapped roster line. Email and Phone are raw.
type Row struct {
	ExternalID string
	Name       string
	Email      string
	Phone      string
	Tier       string
	Status     memberdomain.Status
}

// Probe returns the row's normalized identity keys.
func (r Row) Probe() memberdomain.Probe {
	return memberdomain.NewProbe(r.ExternalID, r.Email, r.Phone)
}

func (r Row) Identity() memberdomain.Identity {
	return memberdomain.Identity{
		ExternalID: r.ExternalID,
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Tier:       r.Tier,
		Status:     r.Status,
	}
}

// SampleLimit caps the examples returned per plan category.
const SampleLimit = 5

type Sample struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Counts struct {
	Inserts              int `json:"inserts"`
	Updates              int `json:"updates"`
	Reactivations        int `json:"reactivations"`
	DeactivateCandidates int `json:"deactivate_candidates"`
	TotalRows            int `json:"total_rows"`
}

type Samples struct {
	Inserts              []Sample `json:"inserts"`
	Updates              []Sample `json:"updates"`
	Reactivations        []Sample `json:"reactivations"`
	DeactivateCandidates []Sample `json:"deactivate_candidates"`
}

// Plan classifies roster rows against the current members. It is never stored.
type Plan struct {
	Counts  Counts  `json:"counts"`
	Samples Samples `json:"samples"`
}

type ApplyOptions struct {
	Commit            bool
	DeactivateMissing bool
}

type ApplyResult struct {
	Imported          int  `json:"imported"`
	Activated         int  `json:"activated"`
	Deactivated       int  `json:"deactivated"`
	DeactivateMissing bool `json:"deactivate_missing"`
	Committed         bool `json:"committed"`
}
