package handler

import (
	"ardhi/internal/parcel/models"
	regionmodels "ardhi/internal/region/models"
)

// CreateParcelRequest registers a new parcel.
type CreateParcelRequest struct {
	TitleNumber  string                `json:"title_number"`
	LRNumber     string                `json:"lr_number"`
	Location     regionmodels.Location `json:"location"`
	Size         models.Size           `json:"size"`
	Zoning       string                `json:"zoning,omitempty"`
	LandUse      string                `json:"land_use,omitempty"`
	MarketValue  float64               `json:"market_value,omitempty"`
	Description  string                `json:"description,omitempty"`
	Encumbrances []string              `json:"encumbrances,omitempty"`
	HasDisputes  bool                  `json:"has_disputes,omitempty"`
	OwnerID      string                `json:"owner_id"`
}

// ApprovalRequest records a stage decision.
type ApprovalRequest struct {
	Approved bool   `json:"approved"`
	Remarks  string `json:"remarks,omitempty"`
}

// FraudFlagRequest flags a parcel as fraudulent.
type FraudFlagRequest struct {
	Reason string `json:"reason"`
}

// FraudClearRequest clears a fraud flag.
type FraudClearRequest struct {
	Resolution string `json:"resolution"`
}
