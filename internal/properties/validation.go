package properties

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MinPhotos is the number of photos a listing needs before it can be submitted.
const MinPhotos = 3

// DraftForm is the raw step-one form input.
type DraftForm struct {
	Title       string
	Description string
	Address     string
	Postcode    string
	City        string
	State       string
	HousingType string
	Price       string
	Bedrooms    string
	Bathrooms   string
	Size        string
	Amenities   []string
	Available   bool
}

// Draft is a parsed listing payload. It is the request body for create and update.
type Draft struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Address     string      `json:"address"`
	Postcode    string      `json:"postcode,omitempty"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	HousingType HousingType `json:"housing_type,omitempty"`
	Price       float64     `json:"price"`
	Bedrooms    int         `json:"bedrooms"`
	Bathrooms   int         `json:"bathrooms"`
	Size        float64     `json:"size"`
	Amenities   []string    `json:"amenities"`
	Photos      []string    `json:"photos"`
	Available   bool        `json:"available"`
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateDraft parses the form and checks it together with the photo list.
func ValidateDraft(form DraftForm, photos []string) (*Draft, error) {
	verr := &ValidationError{}

	required := map[string]string{
		"title":       form.Title,
		"description": form.Description,
		"address":     form.Address,
		"city":        form.City,
		"state":       form.State,
		"price":       form.Price,
		"bedrooms":    form.Bedrooms,
		"bathrooms":   form.Bathrooms,
		"size":        form.Size,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			verr.add(field, "is required")
		}
	}

	draft := &Draft{
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		Address:     strings.TrimSpace(form.Address),
		Postcode:    strings.TrimSpace(form.Postcode),
		City:        strings.TrimSpace(form.City),
		State:       strings.TrimSpace(form.State),
		HousingType: HousingType(strings.ToLower(strings.TrimSpace(form.HousingType))),
		Amenities:   form.Amenities,
		Photos:      append([]string(nil), photos...),
		Available:   form.Available,
	}

	if s := strings.TrimSpace(form.Price); s != "" {
		v, ok := parseAmount(s)
		if !ok {
			verr.add("price", "must be a number")
		}
		draft.Price = v
	}
	if s := strings.TrimSpace(form.Size); s != "" {
		v, ok := parseAmount(s)
		if !ok {
			verr.add("size", "must be a number")
		}
		draft.Size = v
	}
	if s := strings.TrimSpace(form.Bedrooms); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			verr.add("bedrooms", "must be a whole number")
		}
		draft.Bedrooms = v
	}
	if s := strings.TrimSpace(form.Bathrooms); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			verr.add("bathrooms", "must be a whole number")
		}
		draft.Bathrooms = v
	}

	draft.check(verr)
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return draft, nil
}

// Validate checks an already-parsed draft, as received over the API.
func (d *Draft) Validate() error {
	verr := &ValidationError{}
	for field, value := range map[string]string{
		"title":       d.Title,
		"description": d.Description,
		"address":     d.Address,
		"city":        d.City,
		"state":       d.State,
	} {
		if strings.TrimSpace(value) == "" {
			verr.add(field, "is required")
		}
	}
	d.check(verr)
	return verr.orNil()
}

// parseAmount parses a finite decimal. ParseFloat alone accepts NaN and Inf.
func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func checkAmount(verr *ValidationError, field string, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		verr.add(field, "must be a number")
	case v < 0:
		verr.add(field, "must not be negative")
	}
}

func (d *Draft) check(verr *ValidationError) {
	checkAmount(verr, "price", d.Price)
	checkAmount(verr, "size", d.Size)
	if d.Bedrooms < 0 {
		verr.add("bedrooms", "must not be negative")
	}
	if d.Bathrooms < 1 {
		verr.add("bathrooms", "must be at least 1")
	}
	if d.HousingType != "" && !d.HousingType.Valid() {
		verr.add("housing_type", "must be one of condo, apartment, studio, house")
	}
	if len(d.Photos) < MinPhotos {
		verr.add("photos", fmt.Sprintf("at least %d photos are required", MinPhotos))
	}
	d.Amenities = normalizeAmenities(d.Amenities)
}

// normalizeAmenities trims, drops blanks and duplicates, and sorts.
func normalizeAmenities(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// FormFrom pre-fills the step-one form from an existing property.
func FormFrom(p *Property) DraftForm {
	return DraftForm{
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		Postcode:    p.Postcode,
		City:        p.City,
		State:       p.State,
		HousingType: string(p.HousingType),
		Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		Bedrooms:    strconv.Itoa(p.Bedrooms),
		Bathrooms:   strconv.Itoa(p.Bathrooms),
		Size:        strconv.FormatFloat(p.Size, 'f', -1, 64),
		Amenities:   append([]string(nil), p.Amenities...),
		Available:   p.Available,
	}
}

// apply copies the draft onto p.
func (d *Draft) apply(p *Property) {
	p.Title = d.Title
	p.Description = d.Description
	p.Address = d.Address
	p.Postcode = d.Postcode
	p.City = d.City
	p.State = d.State
	p.HousingType = d.HousingType
	p.Price = d.Price
	p.Bedrooms = d.Bedrooms
	p.Bathrooms = d.Bathrooms
	p.Size = d.Size
	p.Amenities = d.Amenities
	p.Photos = append([]string(nil), d.Photos...)
	p.Available = d.Available
}
