package models

// Counts carries the supply counters returned by the poll endpoint.
type Counts struct {
	TotalSupply    int `json:"totalSupply"`
	TotalMinted    int `json:"totalMinted"`
	AvailableCount int `json:"availableCount"`
}

// PollResponse is the GET /poll payload. Absent sections are nil and must not
// overwrite client state.
type PollResponse struct {
	Success             bool             `json:"success"`
	Counts              *Counts          `json:"counts,omitempty"`
	ActivePhase         *Phase           `json:"activePhase,omitempty"`
	UserWhitelistStatus *WhitelistStatus `json:"userWhitelistStatus,omitempty"`
	UserMintStatus      *UserMintStatus  `json:"userMintStatus,omitempty"`
}

// ReserveRequest is the POST /reserve body. ItemID is set for choices mints.
type ReserveRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	PhaseID       string `json:"phaseId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	ItemID        string `json:"itemId,omitempty"`
}

// ReserveResponse carries the granted ordinal(s).
type ReserveResponse struct {
	Success  bool            `json:"success"`
	Ordinal  *InventoryItem  `json:"ordinal,omitempty"`
	Ordinals []InventoryItem `json:"ordinals,omitempty"`
}

// Granted flattens the single/multi response shapes.
func (r ReserveResponse) Granted() []InventoryItem {
	if len(r.Ordinals) > 0 {
		return r.Ordinals
	}
	if r.Ordinal != nil {
		return []InventoryItem{*r.Ordinal}
	}
	return nil
}

// BuildMintRequest is the POST /mint/build body.
type BuildMintRequest struct {
	WalletAddress string   `json:"walletAddress" binding:"required"`
	PhaseID       string   `json:"phaseId" binding:"required"`
	Quantity      int      `json:"quantity" binding:"required,min=1"`
	OrdinalIDs    []string `json:"ordinalIds" binding:"required,min=1"`
}

// BuildMintResponse carries the base64 unsigned transaction.
type BuildMintResponse struct {
	Transaction string `json:"transaction"`
	NFTMint     string `json:"nftMint,omitempty"`
}

// ConfirmMintRequest is the POST /mint/confirm body.
type ConfirmMintRequest struct {
	Signature      string `json:"signature" binding:"required"`
	NFTMintAddress string `json:"nftMintAddress"`
	WalletAddress  string `json:"walletAddress" binding:"required"`
}

// ConfirmMintResponse reports whether the mint transaction confirmed.
type ConfirmMintResponse struct {
	Confirmed bool   `json:"confirmed"`
	Signature string `json:"signature,omitempty"`
}
