package tracking

import (
	"errors"
	"fmt"
)

// Driver is a roster entry. Assignment copies the value into the order
// (snapshot semantics), so roster edits never alter historical orders.
type Driver struct {
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	VehicleModel string `json:"vehicleModel,omitempty"`
	VehicleColor string `json:"vehicleColor,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	ETA          string `json:"eta,omitempty"`
}

// Config is the administrator-editable pair of ordered steps and driver
// roster. Persisted as a single JSON blob.
type Config struct {
	Steps   []Step   `json:"steps"`
	Drivers []Driver `json:"activeDrivers"`
}

var (
	ErrIndexOutOfRange = errors.New("tracking: index out of range")
	ErrNameRequired    = errors.New("tracking: driver name required")
)

// DefaultConfig returns the seeded five-step pipeline with an empty roster.
func DefaultConfig() *Config {
	return &Config{
		Steps: []Step{
			{Key: StepPending, Label: "Order Placed", Description: "We've received your order and are preparing your delivery.", Order: 1},
			{Key: StepConfirmed, Label: "Driver Assigned", Description: "Your driver is getting ready to head your way.", Order: 2},
			{Key: StepEnRoute, Label: "Driver En Route", Description: "Your driver is on the way with your fuel.", Order: 3},
			{Key: StepArriving, Label: "Arriving Soon", Description: "Your driver is just a few minutes away.", Order: 4},
			{Key: StepDelivered, Label: "Delivered", Description: "Your fuel has been delivered. Thanks for choosing FuelNinja!", Order: 5},
		},
		Drivers: []Driver{},
	}
}

// Validate checks the step invariants: at least one step, unique keys,
// and Order values forming a total order with no ties.
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return errors.New("tracking: at least one step required")
	}
	keys := make(map[string]struct{}, len(c.Steps))
	orders := make(map[int]struct{}, len(c.Steps))
	for _, s := range c.Steps {
		if s.Key == "" {
			return errors.New("tracking: step key required")
		}
		if _, dup := keys[s.Key]; dup {
			return fmt.Errorf("tracking: duplicate step key %q", s.Key)
		}
		keys[s.Key] = struct{}{}
		if s.Order <= 0 {
			return fmt.Errorf("tracking: step %q has non-positive order", s.Key)
		}
		if _, dup := orders[s.Order]; dup {
			return fmt.Errorf("tracking: duplicate order %d", s.Order)
		}
		orders[s.Order] = struct{}{}
	}
	return nil
}

// ReorderSteps moves a step and renumbers the sequence.
func (c *Config) ReorderSteps(from, to int) error {
	if from < 0 || from >= len(c.Steps) || to < 0 || to >= len(c.Steps) {
		return ErrIndexOutOfRange
	}
	c.Steps = Reorder(c.Steps, from, to)
	return nil
}

// SetStepLabel updates the display label of the step at index (sorted order).
func (c *Config) SetStepLabel(index int, label string) error {
	return c.setStep(index, func(s *Step) { s.Label = label })
}

// SetStepDescription updates the customer-facing message of the step at index.
func (c *Config) SetStepDescription(index int, description string) error {
	return c.setStep(index, func(s *Step) { s.Description = description })
}

func (c *Config) setStep(index int, mutate func(*Step)) error {
	sorted := Sorted(c.Steps)
	if index < 0 || index >= len(sorted) {
		return ErrIndexOutOfRange
	}
	mutate(&sorted[index])
	c.Steps = sorted
	return nil
}

// DriverField selects which driver attribute UpdateDriver mutates.
type DriverField int

const (
	DriverName DriverField = iota
	DriverPhone
	DriverVehicleModel
	DriverVehicleColor
	DriverLicensePlate
	DriverETA
)

// ParseDriverField maps a wire field name to a DriverField.
func ParseDriverField(name string) (DriverField, bool) {
	switch name {
	case "name":
		return DriverName, true
	case "phone":
		return DriverPhone, true
	case "vehicleModel":
		return DriverVehicleModel, true
	case "vehicleColor":
		return DriverVehicleColor, true
	case "licensePlate":
		return DriverLicensePlate, true
	case "eta":
		return DriverETA, true
	}
	return 0, false
}

// AddDriver appends a driver to the roster. Name is required.
func (c *Config) AddDriver(d Driver) error {
	if d.Name == "" {
		return ErrNameRequired
	}
	c.Drivers = append(c.Drivers, d)
	return nil
}

// RemoveDriver removes the roster entry at index. Orders that already
// copied this driver's snapshot are unaffected.
func (c *Config) RemoveDriver(index int) error {
	if index < 0 || index >= len(c.Drivers) {
		return ErrIndexOutOfRange
	}
	c.Drivers = append(c.Drivers[:index], c.Drivers[index+1:]...)
	return nil
}

// UpdateDriver mutates one field of the roster entry at index.
func (c *Config) UpdateDriver(index int, field DriverField, value string) error {
	if index < 0 || index >= len(c.Drivers) {
		return ErrIndexOutOfRange
	}
	if field == DriverName && value == "" {
		return ErrNameRequired
	}
	d := &c.Drivers[index]
	switch field {
	case DriverName:
		d.Name = value
	case DriverPhone:
		d.Phone = value
	case DriverVehicleModel:
		d.VehicleModel = value
	case DriverVehicleColor:
		d.VehicleColor = value
	case DriverLicensePlate:
		d.LicensePlate = value
	case DriverETA:
		d.ETA = value
	}
	return nil
}
