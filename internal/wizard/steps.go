package wizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/models"
)

// Step is one page of the listing wizard
type Step int

const (
	StepCertificate Step = iota + 1
	StepDetails
	StepMedia
	StepReview
)

// Steps lists every step in order
var Steps = []Step{StepCertificate, StepDetails, StepMedia, StepReview}

func (s Step) String() string {
	switch s {
	case StepCertificate:
		return "certificate"
	case StepDetails:
		return "details"
	case StepMedia:
		return "media"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ValidationError lists the fields blocking a step
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s step is incomplete: %s", e.Step, strings.Join(names, ", "))
}

// formState is the part of the wizard that validation reads
type formState struct {
	draft          models.ListingDraft
	hasCertificate bool
	imageCount     int
}

// validate returns the field errors of step. An empty map means the step is valid.
func validate(step Step, f formState) map[string]string {
	errs := make(map[string]string)
	switch step {
	case StepCertificate:
		if !f.hasCertificate {
			errs["certificate"] = "Please upload a lab report"
		}
	case StepDetails:
		validateDetails(f.draft, errs)
	case StepMedia:
		validateImages(f, errs)
	case StepReview:
		if !f.draft.Confirmed {
			errs["confirmed"] = "Please confirm that the listing details are accurate"
		}
		validateImages(f, errs)
	}
	return errs
}

func validateImages(f formState, errs map[string]string) {
	if f.imageCount < 1 {
		errs["images"] = "At least one image is required"
	}
}

func validateDetails(d models.ListingDraft, errs map[string]string) {
	required := []struct {
		field string
		value string
		label string
	}{
		{"reportNumber", d.ReportNumber, "Report number"},
		{"labName", d.LabName, "Lab name"},
		{"gemType", d.GemType, "Gem type"},
		{"color", d.Color, "Color"},
		{"clarity", d.Clarity, "Clarity"},
		{"origin", d.Origin, "Origin"},
		{"shippingMethod", string(d.ShippingMethod), "Shipping method"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = r.label + " is required"
		}
	}

	if d.Weight.Value <= 0 {
		errs["weight"] = "Weight must be greater than 0"
	}

	switch d.ListingType {
	case models.ListingTypeDirectSale:
		if d.Price <= 0 {
			errs["price"] = "Price must be greater than 0"
		}
	case models.ListingTypeAuction:
		if d.StartingBid <= 0 {
			errs["startingBid"] = "Starting bid must be greater than 0"
		}
		if d.ReservePrice <= 0 {
			errs["reservePrice"] = "Reserve price must be greater than 0"
		} else if d.StartingBid > 0 && d.ReservePrice < d.StartingBid {
			errs["reservePrice"] = "Reserve price must be greater than or equal to the starting bid"
		}
		if d.AuctionDuration <= 0 {
			errs["auctionDuration"] = "Auction duration is required"
		}
	default:
		errs["listingType"] = "Listing type is required"
	}
}
