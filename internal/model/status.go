package model

// ChargerStatus is the operational state of a charger.
type ChargerStatus string

const (
	ChargerStatusAvailable    ChargerStatus = "AVAILABLE"
	ChargerStatusCharging     ChargerStatus = "CHARGING"
	ChargerStatusOutOfService ChargerStatus = "OUT_OF_SERVICE"
)

// chargerTransitions lists the legal targets for each status. Anything absent,
// self-loops included, is rejected.
var chargerTransitions = map[ChargerStatus][]ChargerStatus{
	ChargerStatusAvailable:    {ChargerStatusCharging, ChargerStatusOutOfService},
	ChargerStatusCharging:     {ChargerStatusAvailable, ChargerStatusOutOfService},
	ChargerStatusOutOfService: {ChargerStatusAvailable},
}

// ChargerStatuses returns every known status.
func ChargerStatuses() []ChargerStatus {
	return []ChargerStatus{ChargerStatusAvailable, ChargerStatusCharging, ChargerStatusOutOfService}
}

// Valid reports whether s is a known status.
func (s ChargerStatus) Valid() bool {
	_, ok := chargerTransitions[s]
	return ok
}

// CanTransition reports whether a charger may move from one status to another.
func CanTransition(from, to ChargerStatus) bool {
	for _, allowed := range chargerTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
