package model

// Dataset is the export document, also accepted back as a resume checkpoint.
type Dataset struct {
	Alias  string   `json:"alias"`
	Trades []Record `json:"trades"`
	Orders []Record `json:"orders"`
}

// TradeFields are the fields every trade in a dataset must carry.
var TradeFields = []string{FieldSymbol, FieldID, FieldOrderID, FieldTime}

// OrderFields are the fields every order in a dataset must carry.
var OrderFields = []string{FieldSymbol, FieldOrderID, FieldTime}

// NewDataset returns an empty dataset whose slices encode as [] rather than null.
func NewDataset(alias string) *Dataset {
	return &Dataset{
		Alias:  alias,
		Trades: []Record{},
		Orders: []Record{},
	}
}
