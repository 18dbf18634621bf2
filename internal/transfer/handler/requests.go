package handler

// InitiateTransferRequest is the seller's request to start a transfer. Buyer
// identity is claimed here and verified against the user directory.
type InitiateTransferRequest struct {
	ParcelID        string  `json:"parcel_id"`
	BuyerNationalID string  `json:"buyer_national_id"`
	BuyerKraPin     string  `json:"buyer_kra_pin"`
	BuyerName       string  `json:"buyer_name"`
	AgreedPrice     float64 `json:"agreed_price"`
}

// AcceptRequest carries the buyer's optional acceptance remarks.
type AcceptRequest struct {
	Remarks string `json:"remarks,omitempty"`
}

// RejectRequest carries the buyer's rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// VerificationRequest records a county or NLC stage decision.
type VerificationRequest struct {
	Approved bool   `json:"approved"`
	Remarks  string `json:"remarks,omitempty"`
}

// CancelRequest carries the cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// StopRequest is the administrative force-stop. IsFraudulent additionally
// flags the underlying parcel.
type StopRequest struct {
	Reason       string `json:"reason"`
	IsFraudulent bool   `json:"is_fraudulent"`
}
