package domain

import (
	"time"
)

// FuelType is the customer's preferred fuel, shown to the attendant on scan.
type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelE10      FuelType = "E10"
)

// VehicleType describes the customer's car.
type VehicleType string

const (
	VehicleSedan     VehicleType = "Sedan"
	VehicleSUV       VehicleType = "SUV"
	VehicleHatchback VehicleType = "Hatchback"
	VehicleVan       VehicleType = "Van"
	VehicleTruck     VehicleType = "Truck"
	VehicleSports    VehicleType = "Sports"
)

var fuelTypes = []FuelType{FuelPetrol, FuelDiesel, FuelElectric, FuelE10}

var vehicleTypes = []VehicleType{VehicleSedan, VehicleSUV, VehicleHatchback, VehicleVan, VehicleTruck, VehicleSports}

// ParseFuelType validates s against the known fuel types.
func ParseFuelType(s string) (FuelType, bool) {
	for _, f := range fuelTypes {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// ParseVehicleType validates s against the known vehicle types.
func ParseVehicleType(s string) (VehicleType, bool) {
	for _, v := range vehicleTypes {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Account is a customer's wallet: profile, balance and history (newest first).
type Account struct {
	ID             string        `json:"id"`
	DisplayName    string        `json:"display_name"`
	FuelPreference FuelType      `json:"fuel_preference"`
	Vehicle        VehicleType   `json:"vehicle"`
	Balance        Amount        `json:"balance"`
	Transactions   []Transaction `json:"transactions"`
	NextSeq        int64         `json:"next_seq"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Clone returns a deep copy safe to hand outside the owning ledger store.
func (a *Account) Clone() *Account {
	c := *a
	c.Transactions = make([]Transaction, len(a.Transactions))
	copy(c.Transactions, a.Transactions)
	return &c
}

// ProfileUpdate carries optional profile changes; nil fields are left as is.
type ProfileUpdate struct {
	DisplayName    *string
	FuelPreference *string
	Vehicle        *string
}
