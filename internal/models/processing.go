package models

import (
	"fmt"
	"math"
)

// NoiseProfile summarises how noisy and how busy an image is.
type NoiseProfile struct {
	NoiseSigma  float64 `json:"noise_sigma"`
	EdgeDensity float64 `json:"edge_density"`
}

// FilterParameters drives one run of the filter cascade. Its fields are
// unexported so a value can only come from NewFilterParameters, which
// guarantees an odd diameter of at least 3, a positive radius and positive
// finite sigmas and eps.
type FilterParameters struct {
	diameter            int
	sigmaColor          float64
	sigmaSpace          float64
	radius              int
	eps                 float64
	bilateralIterations int
	guidedIterations    int
	valid               bool
}

// NewFilterParameters validates and builds a FilterParameters value.
func NewFilterParameters(diameter int, sigmaColor, sigmaSpace float64, radius int, eps float64, bilateralIterations, guidedIterations int) (FilterParameters, error) {
	if diameter < 3 || diameter%2 == 0 {
		return FilterParameters{}, NewValidationError("diameter", diameter, "must be an odd integer >= 3")
	}
	if !positiveFinite(sigmaColor) {
		return FilterParameters{}, NewValidationError("sigma_color", sigmaColor, "must be positive and finite")
	}
	if !positiveFinite(sigmaSpace) {
		return FilterParameters{}, NewValidationError("sigma_space", sigmaSpace, "must be positive and finite")
	}
	if radius < 1 {
		return FilterParameters{}, NewValidationError("radius", radius, "must be >= 1")
	}
	if !positiveFinite(eps) {
		return FilterParameters{}, NewValidationError("eps", eps, "must be positive and finite")
	}
	if bilateralIterations < 0 {
		return FilterParameters{}, NewValidationError("bilateral_iterations", bilateralIterations, "must be >= 0")
	}
	if guidedIterations < 0 {
		return FilterParameters{}, NewValidationError("guided_iterations", guidedIterations, "must be >= 0")
	}

	return FilterParameters{
		diameter:            diameter,
		sigmaColor:          sigmaColor,
		sigmaSpace:          sigmaSpace,
		radius:              radius,
		eps:                 eps,
		bilateralIterations: bilateralIterations,
		guidedIterations:    guidedIterations,
		valid:               true,
	}, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (p FilterParameters) Diameter() int            { return p.diameter }
func (p FilterParameters) SigmaColor() float64      { return p.sigmaColor }
func (p FilterParameters) SigmaSpace() float64      { return p.sigmaSpace }
func (p FilterParameters) Radius() int              { return p.radius }
func (p FilterParameters) Eps() float64             { return p.eps }
func (p FilterParameters) BilateralIterations() int { return p.bilateralIterations }
func (p FilterParameters) GuidedIterations() int    { return p.guidedIterations }

// Valid is false only for the zero value.
func (p FilterParameters) Valid() bool { return p.valid }

// Fields flattens the parameters for structured logging.
func (p FilterParameters) Fields() map[string]interface{} {
	return map[string]interface{}{
		"diameter":             p.diameter,
		"sigma_color":          p.sigmaColor,
		"sigma_space":          p.sigmaSpace,
		"radius":               p.radius,
		"eps":                  p.eps,
		"bilateral_iterations": p.bilateralIterations,
		"guided_iterations":    p.guidedIterations,
	}
}

func (p FilterParameters) String() string {
	return fmt.Sprintf("d=%d sc=%.3f ss=%.3f r=%d eps=%.3f bi=%d gi=%d",
		p.diameter, p.sigmaColor, p.sigmaSpace, p.radius, p.eps, p.bilateralIterations, p.guidedIterations)
}

// ValidationError represents a parameter validation error
type ValidationError struct {
	Parameter string
	Value     interface{}
	Message   string
}

// NewValidationError creates a new validation error
func NewValidationError(parameter string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Value:     value,
		Message:   message,
	}
}

// Error returns the error message
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter '%s' with value '%v': %s",
		ve.Parameter, ve.Value, ve.Message)
}
