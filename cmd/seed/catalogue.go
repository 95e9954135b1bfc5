package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/location"
)

//go:embed offices.toml
var defaultOffices []byte

type office struct {
	Name                   string             `toml:"name"`
	Address                string             `toml:"address"`
	Phone                  string             `toml:"phone"`
	Email                  string             `toml:"email"`
	OpensAt                *calendar.TimeOfDay `toml:"opens_at"`
	ClosesAt               *calendar.TimeOfDay `toml:"closes_at"`
	OperatingDays          []int              `toml:"operating_days"`
	Timezone               string             `toml:"timezone"`
	SlotDurationMinutes    int                `toml:"slot_duration_minutes"`
	MaxAppointmentsPerSlot int                `toml:"max_appointments_per_slot"`
	AdvanceBookingDays     int                `toml:"advance_booking_days"`
}

type catalogue struct {
	Offices []office `toml:"office"`
}

// loadCatalogue reads path, or the embedded catalogue when path is empty.
func loadCatalogue(path string) ([]location.CreateInput, error) {
	data := defaultOffices
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		data = b
	}
	return parseCatalogue(data)
}

func parseCatalogue(data []byte) ([]location.CreateInput, error) {
	var c catalogue
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("decode office catalogue: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in office catalogue: %v", undecoded)
	}

	inputs := make([]location.CreateInput, 0, len(c.Offices))
	for _, o := range c.Offices {
		inputs = append(inputs, o.toInput())
	}
	return inputs, nil
}

func (o office) toInput() location.CreateInput {
	in := location.CreateInput{
		Name:                   o.Name,
		Address:                o.Address,
		Timezone:               o.Timezone,
		SlotDurationMinutes:    o.SlotDurationMinutes,
		MaxAppointmentsPerSlot: o.MaxAppointmentsPerSlot,
		AdvanceBookingDays:     o.AdvanceBookingDays,
		OpensAt:                o.OpensAt,
		ClosesAt:               o.ClosesAt,
	}
	if o.Phone != "" {
		in.Phone = &o.Phone
	}
	if o.Email != "" {
		in.Email = &o.Email
	}
	for _, d := range o.OperatingDays {
		in.OperatingDays = append(in.OperatingDays, calendar.Weekday(d))
	}
	return in
}
