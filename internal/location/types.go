package location

import (
	"encoding/json"
	"math"
)

// Fix is one position report.
type Fix struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Altitude    float32 `json:"altitude"`
	Timestamp   uint32  `json:"timestamp"`
	Uncertainty float32 `json:"uncertainty"`
}

// Velocity is a velocity vector. Optional fields hold NaN when absent.
type Velocity struct {
	Heading      int     `json:"heading"`
	SpeedH       float32 `json:"speed_h"`
	SpeedV       float32 `json:"speed_v"`
	UncertaintyH float32 `json:"uncertainty_h"`
	UncertaintyV float32 `json:"uncertainty_v"`
}

// Absent is the value to pass for an optional velocity field that is not
// known.
var Absent = float32(math.NaN())

// velocitySize is the storage reserved for the encoded velocity vector:
// a 2 byte heading and four 4 byte floats.
const velocitySize = 2 + 4*4

// wireVelocity is the JSON form of Velocity. Absent fields encode as null.
type wireVelocity struct {
	Heading      int      `json:"heading"`
	SpeedH       float32  `json:"speed_h"`
	SpeedV       *float32 `json:"speed_v"`
	UncertaintyH *float32 `json:"uncertainty_h"`
	UncertaintyV *float32 `json:"uncertainty_v"`
}

// MarshalJSON implements json.Marshaler.
func (v Velocity) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireVelocity{
		Heading:      v.Heading,
		SpeedH:       v.SpeedH,
		SpeedV:       optional(v.SpeedV),
		UncertaintyH: optional(v.UncertaintyH),
		UncertaintyV: optional(v.UncertaintyV),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Missing or null optional
// fields decode as Absent.
func (v *Velocity) UnmarshalJSON(data []byte) error {
	var w wireVelocity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Velocity{
		Heading:      w.Heading,
		SpeedH:       w.SpeedH,
		SpeedV:       orAbsent(w.SpeedV),
		UncertaintyH: orAbsent(w.UncertaintyH),
		UncertaintyV: orAbsent(w.UncertaintyV),
	}
	return nil
}

func optional(f float32) *float32 {
	if math.IsNaN(float64(f)) {
		return nil
	}
	return &f
}

func orAbsent(f *float32) float32 {
	if f == nil {
		return Absent
	}
	return *f
}
