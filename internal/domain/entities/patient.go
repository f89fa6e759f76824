package entities

// Medication is one entry in a patient's current medication list.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// PatientContext is optional background supplied with a voice note. It is
// folded into the risk-assessment prompt, never persisted.
type PatientContext struct {
	Name               string       `json:"name,omitempty"`
	Age                int          `json:"age,omitempty" validate:"omitempty,gte=0,lte=130"`
	Sex                string       `json:"sex,omitempty"`
	KnownConditions    []string     `json:"knownConditions,omitempty"`
	CurrentMedications []Medication `json:"currentMedications,omitempty"`
}
