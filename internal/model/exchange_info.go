package model

// ExchangeInfoResponse represents the response from /fapi/v1/exchangeInfo
type ExchangeInfoResponse struct {
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// SymbolInfo represents a single contract's catalog entry
type SymbolInfo struct {
	Symbol       string `json:"symbol"`
	Pair         string `json:"pair"`
	ContractType string `json:"contractType"`
	Status       string `json:"status"`
	OnboardDate  int64  `json:"onboardDate"` // listing time, epoch millis
}
