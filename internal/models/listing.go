package models

import "strings"

// ListingType selects how a gem is sold
type ListingType string

const (
	ListingTypeDirectSale ListingType = "direct-sale"
	ListingTypeAuction    ListingType = "auction"
)

// ShippingMethod is the fulfilment option offered by the seller
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
	ShippingInsured  ShippingMethod = "insured"
	ShippingPickup   ShippingMethod = "pickup"
)

// WeightUnit is the unit of a gem's weight
type WeightUnit string

const (
	WeightUnitCarat WeightUnit = "ct"
	WeightUnitGram  WeightUnit = "g"
)

// Weight is a measured gem weight
type Weight struct {
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit"`
}

// Carats returns the weight in carats (1 g = 5 ct)
func (w Weight) Carats() float64 {
	if w.Unit == WeightUnitGram {
		return w.Value * 5
	}
	return w.Value
}

// Dimensions are stone measurements
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// IsZero reports whether no dimension was provided
func (d Dimensions) IsZero() bool {
	return d.Length == 0 && d.Width == 0 && d.Height == 0
}

// AdvancedDetails are optional certificate/market fields
type AdvancedDetails struct {
	Fluorescence    string  `json:"fluorescence,omitempty"`
	Polish          string  `json:"polish,omitempty"`
	Symmetry        string  `json:"symmetry,omitempty"`
	Proportions     string  `json:"proportions,omitempty"`
	PricePerCarat   float64 `json:"pricePerCarat,omitempty"`
	MarketTrend     string  `json:"marketTrend,omitempty"`
	InvestmentGrade bool    `json:"investmentGrade,omitempty"`
	StockNumber     string  `json:"stockNumber,omitempty"`
	Memo            bool    `json:"memo,omitempty"`
	Consignment     bool    `json:"consignment,omitempty"`
}

// ListingDraft is the in-progress, not-yet-submitted listing composed by the wizard.
// Media handles live on the wizard; the draft only carries field values.
type ListingDraft struct {
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
	AuctionDuration int            `json:"auctionDuration,omitempty"` // days
	ShippingMethod  ShippingMethod `json:"shippingMethod"`

	Advanced AdvancedDetails `json:"advanced"`

	Confirmed bool `json:"confirmed"`
}

// NewListingDraft returns a draft with unit defaults applied
func NewListingDraft() ListingDraft {
	return ListingDraft{
		Weight:      Weight{Unit: WeightUnitCarat},
		Dimensions:  Dimensions{Unit: "mm"},
		ListingType: ListingTypeDirectSale,
	}
}

// Clone returns a deep copy of the draft
func (d ListingDraft) Clone() ListingDraft {
	out := d
	if d.Treatments != nil {
		out.Treatments = append([]string(nil), d.Treatments...)
	}
	return out
}

// TrimmedTreatments drops blank treatment entries
func (d ListingDraft) TrimmedTreatments() []string {
	out := make([]string, 0, len(d.Treatments))
	for _, t := range d.Treatments {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// DraftPatch is a best-effort partial update produced from OCR output.
// nil fields were not matched and must not be applied.
type DraftPatch struct {
	ReportNumber *string
	LabName      *string
	GemType      *string
	Variety      *string
	Color        *string
	Clarity      *string
	Origin       *string
	Treatments   []string
	Weight       *Weight
	Dimensions   *Dimensions
	Shape        *string
	Cut          *string
}

// IsEmpty reports whether the patch carries no fields
func (p DraftPatch) IsEmpty() bool {
	return p.ReportNumber == nil && p.LabName == nil && p.GemType == nil &&
		p.Variety == nil && p.Color == nil && p.Clarity == nil && p.Origin == nil &&
		p.Treatments == nil && p.Weight == nil && p.Dimensions == nil &&
		p.Shape == nil && p.Cut == nil
}

// Apply writes every present patch field onto the draft
func (p DraftPatch) Apply(d *ListingDraft) {
	if p.ReportNumber != nil {
		d.ReportNumber = *p.ReportNumber
	}
	if p.LabName != nil {
		d.LabName = *p.LabName
	}
	if p.GemType != nil {
		d.GemType = *p.GemType
	}
	if p.Variety != nil {
		d.Variety = *p.Variety
	}
	if p.Color != nil {
		d.Color = *p.Color
	}
	if p.Clarity != nil {
		d.Clarity = *p.Clarity
	}
	if p.Origin != nil {
		d.Origin = *p.Origin
	}
	if p.Treatments != nil {
		d.Treatments = append([]string(nil), p.Treatments...)
	}
	if p.Weight != nil {
		d.Weight = *p.Weight
	}
	if p.Dimensions != nil {
		d.Dimensions = *p.Dimensions
	}
	if p.Shape != nil {
		d.Shape = *p.Shape
	}
	if p.Cut != nil {
		d.Cut = *p.Cut
	}
}
