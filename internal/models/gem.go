package models

import "encoding/json"

// GemPayload is the body of create-gem, update-gem and admin create-gem calls
type GemPayload struct {
	ReportNumber string     `json:"reportNumber"`
	LabName      string     `json:"labName"`
	GemType      string     `json:"gemType"`
	Variety      string     `json:"variety,omitempty"`
	Color        string     `json:"color"`
	Clarity      string     `json:"clarity"`
	Origin       string     `json:"origin"`
	Treatments   []string   `json:"treatments,omitempty"`
	Weight       Weight     `json:"weight"`
	Dimensions   Dimensions `json:"dimensions"`
	Shape        string     `json:"shape,omitempty"`
	Cut          string     `json:"cut,omitempty"`

	ListingType     ListingType    `json:"listingType"`
	Price           float64        `json:"price,omitempty"`
	StartingBid     float64        `json:"startingBid,omitempty"`
	ReservePrice    float64        `json:"reservePrice,omitempty"`
	AuctionDuration int            `json:"auctionDuration,omitempty"`
	ShippingMethod  ShippingMethod `json:"shippingMethod"`

	Fluorescence    string  `json:"fluorescence,omitempty"`
	Polish          string  `json:"polish,omitempty"`
	Symmetry        string  `json:"symmetry,omitempty"`
	Proportions     string  `json:"proportions,omitempty"`
	PricePerCarat   float64 `json:"pricePerCarat,omitempty"`
	MarketTrend     string  `json:"marketTrend,omitempty"`
	InvestmentGrade bool    `json:"investmentGrade,omitempty"`
	StockNumber     string  `json:"stockNumber,omitempty"`
	Memo            bool    `json:"isMemo,omitempty"`
	Consignment     bool    `json:"isConsignment,omitempty"`

	MediaFiles      []MediaFile `json:"mediaFiles"`
	DeletedMediaIDs []string    `json:"deletedMediaIds,omitempty"`
	SellerID        string      `json:"sellerId,omitempty"`
}

// NewGemPayload flattens a draft into the wire payload
func NewGemPayload(d ListingDraft, media []MediaFile) GemPayload {
	p := GemPayload{
		ReportNumber:   d.ReportNumber,
		LabName:        d.LabName,
		GemType:        d.GemType,
		Variety:        d.Variety,
		Color:          d.Color,
		Clarity:        d.Clarity,
		Origin:         d.Origin,
		Treatments:     d.TrimmedTreatments(),
		Weight:         d.Weight,
		Dimensions:     d.Dimensions,
		Shape:          d.Shape,
		Cut:            d.Cut,
		ListingType:    d.ListingType,
		ShippingMethod: d.ShippingMethod,

		Fluorescence:    d.Advanced.Fluorescence,
		Polish:          d.Advanced.Polish,
		Symmetry:        d.Advanced.Symmetry,
		Proportions:     d.Advanced.Proportions,
		PricePerCarat:   d.Advanced.PricePerCarat,
		MarketTrend:     d.Advanced.MarketTrend,
		InvestmentGrade: d.Advanced.InvestmentGrade,
		StockNumber:     d.Advanced.StockNumber,
		Memo:            d.Advanced.Memo,
		Consignment:     d.Advanced.Consignment,

		MediaFiles: media,
	}

	// Only the fields of the chosen listing type are sent
	switch d.ListingType {
	case ListingTypeAuction:
		p.StartingBid = d.StartingBid
		p.ReservePrice = d.ReservePrice
		p.AuctionDuration = d.AuctionDuration
	default:
		p.Price = d.Price
	}

	if p.MediaFiles == nil {
		p.MediaFiles = []MediaFile{}
	}
	return p
}

// APIResponse is the common {success, data, message} envelope
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// GemRecord is the subset of a created/updated gem the client reads back
type GemRecord struct {
	ID           string `json:"id"`
	ReportNumber string `json:"reportNumber,omitempty"`
	Status       string `json:"status,omitempty"`
}

// AsyncSubmission is the data of a submit-gem-async response
type AsyncSubmission struct {
	JobID string `json:"jobId"`
}
