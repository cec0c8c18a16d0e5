package roster

import (
	"encoding/json"
	"fmt"
)

type wireFlight struct {
	Duty        string `json:"duty"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepTime     string `json:"depTime"`
	ArrivalTime string `json:"arrivalTime"`
	CheckIn     string `json:"checkIn,omitempty"`
	CheckOut    string `json:"checkOut,omitempty"`
	Aircraft    string `json:"aircraft,omitempty"`
	CockpitCrew string `json:"cockpitCrew,omitempty"`
	CabinCrew   string `json:"cabinCrew,omitempty"`
}

type wireDay struct {
	Day      string       `json:"day"`
	Date     string       `json:"date,omitempty"`
	DutyType string       `json:"dutyType,omitempty"`
	Flights  []wireFlight `json:"flights,omitempty"`
}

// Encode renders the snapshot in the bare array shape, the same layout the
// cache file uses.
func Encode(s Snapshot) ([]byte, error) {
	out, err := json.MarshalIndent(toWire(s.Days), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}
	return out, nil
}

// EncodeWrapped renders the snapshot as an object holding the day array
// under WrapperField.
func EncodeWrapped(s Snapshot) ([]byte, error) {
	payload := map[string][]wireDay{WrapperField: toWire(s.Days)}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}
	return out, nil
}

func toWire(days []Day) []wireDay {
	out := make([]wireDay, 0, len(days))
	for _, d := range days {
		wd := wireDay{Day: d.Key, Date: d.Date, DutyType: d.DutyType}
		for _, f := range d.Flights {
			wd.Flights = append(wd.Flights, wireFlight(f))
		}
		out = append(out, wd)
	}
	return out
}
