package models

// TransportMode enumerates the modes the feasibility checker rules on.
type TransportMode string

const (
	ModePlane TransportMode = "plane"
	ModeTrain TransportMode = "train"
	ModeBus   TransportMode = "bus"
	ModeCar   TransportMode = "car"
	ModeFerry TransportMode = "ferry"
)

// AllTransportModes in stable output order.
var AllTransportModes = []TransportMode{ModePlane, ModeTrain, ModeBus, ModeCar, ModeFerry}

// FeasibilityResult is the verdict for one transport mode on a route.
type FeasibilityResult struct {
	Mode     TransportMode `json:"mode"`
	Feasible bool          `json:"feasible"`
	Warning  bool          `json:"warning,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}
