package search

import "encoding/json"

// Contract is one contract record streamed by a search.
type Contract struct {
	ID             string      `json:"_id"`
	Operator       string      `json:"operator"`
	ContractorName string      `json:"contractorName"`
	ContractTitle  string      `json:"contractTitle"`
	Year           json.Number `json:"year,omitempty"`
	ContractNumber string      `json:"contractNumber"`
	StartDate      string      `json:"startDate,omitempty"`
	EndDate        string      `json:"endDate,omitempty"`
	ContractValue  json.Number `json:"contractValue,omitempty"`
	Media          []Media     `json:"media,omitempty"`
}

// Media is a document attached to a contract.
type Media struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
}
