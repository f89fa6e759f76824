package entities

// AcuityLevel classifies clinical urgency of a symptom report.
type AcuityLevel string

const (
	AcuityRoutine  AcuityLevel = "routine"
	AcuityUrgent   AcuityLevel = "urgent"
	AcuityEmergent AcuityLevel = "emergent"
)

// Valid reports whether the acuity is one of the enumerated levels.
func (a AcuityLevel) Valid() bool {
	switch a {
	case AcuityRoutine, AcuityUrgent, AcuityEmergent:
		return true
	}
	return false
}

// RiskSeverity classifies a single risk flag.
type RiskSeverity string

const (
	SeverityLow      RiskSeverity = "low"
	SeverityModerate RiskSeverity = "moderate"
	SeverityHigh     RiskSeverity = "high"
	SeverityCritical RiskSeverity = "critical"
)

// Valid reports whether the severity is one of the enumerated levels.
func (s RiskSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RiskFlag is a single identified health concern.
type RiskFlag struct {
	Flag              string       `json:"flag"`
	Severity          RiskSeverity `json:"severity"`
	Description       string       `json:"description"`
	ClinicalRationale string       `json:"clinicalRationale"`
}

// ExtractedSymptom is one symptom pulled out of the transcript.
type ExtractedSymptom struct {
	Symptom            string   `json:"symptom"`
	Duration           string   `json:"duration,omitempty"`
	Severity           string   `json:"severity,omitempty"`
	Location           string   `json:"location,omitempty"`
	Frequency          string   `json:"frequency,omitempty"`
	AggravatingFactors []string `json:"aggravatingFactors,omitempty"`
	RelievingFactors   []string `json:"relievingFactors,omitempty"`
}

// VitalsMentioned captures any vital signs the patient reported.
type VitalsMentioned struct {
	BloodPressure    string            `json:"bloodPressure,omitempty"`
	HeartRate        string            `json:"heartRate,omitempty"`
	Temperature      string            `json:"temperature,omitempty"`
	RespiratoryRate  string            `json:"respiratoryRate,omitempty"`
	OxygenSaturation string            `json:"oxygenSaturation,omitempty"`
	BloodSugar       string            `json:"bloodSugar,omitempty"`
	Weight           string            `json:"weight,omitempty"`
	Other            map[string]string `json:"other,omitempty"`
}

// RiskAssessmentResult is the structured output of the risk-assessment stage.
type RiskAssessmentResult struct {
	RiskFlags         []RiskFlag         `json:"riskFlags"`
	SymptomsExtracted []ExtractedSymptom `json:"symptomsExtracted"`
	VitalsMentioned   *VitalsMentioned   `json:"vitalsMentioned,omitempty"`
	OverallAcuity     AcuityLevel        `json:"overallAcuity"`
	RedFlags          []string           `json:"redFlags"`
	Confidence        float64            `json:"confidence"`
	Reasoning         string             `json:"reasoning"`
}

// ClinicalSummaryResult is the structured output of the clinical-summary stage.
type ClinicalSummaryResult struct {
	ChiefComplaint             string   `json:"chiefComplaint"`
	SummaryText                string   `json:"summaryText"`
	KeyFindings                []string `json:"keyFindings"`
	Timeline                   string   `json:"timeline"`
	PertinentNegatives         []string `json:"pertinentNegatives"`
	DifferentialConsiderations []string `json:"differentialConsiderations"`
	Confidence                 float64  `json:"confidence"`
}

// NextStepsResult is the structured output of the next-steps stage.
type NextStepsResult struct {
	RecommendedAction         string   `json:"recommendedAction"`
	UrgencyTimeframe          string   `json:"urgencyTimeframe"`
	Reasoning                 string   `json:"reasoning"`
	PatientInstructions       []string `json:"patientInstructions"`
	WarningSigns              []string `json:"warningSigns"`
	SelfCareRecommendations   []string `json:"selfCareRecommendations"`
	SpecialistTypeRecommended string   `json:"specialistTypeRecommended,omitempty"`
	FollowUpRecommendation    string   `json:"followUpRecommendation"`
	Confidence                float64  `json:"confidence"`
}

// DoctorMatch is one scored doctor recommendation.
type DoctorMatch struct {
	DoctorID           string   `json:"doctorId"`
	MatchScore         float64  `json:"matchScore"`
	MatchReasons       []string `json:"matchReasons"`
	SpecialtyRelevance string   `json:"specialtyRelevance"`
}

// DoctorMatchingResult is the ranked shortlist plus navigation guidance.
type DoctorMatchingResult struct {
	Matches              []DoctorMatch `json:"matches"`
	RecommendedSpecialty string        `json:"recommendedSpecialty"`
	UrgencyNote          string        `json:"urgencyNote"`
	Confidence           float64       `json:"confidence"`
}

// StageMetadata is the audit record for one analysis stage.
type StageMetadata struct {
	Stage      string `json:"stage"`
	TokensUsed int    `json:"tokensUsed"`
	DurationMs int64  `json:"durationMs"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// AnalysisMetadata summarizes one full orchestration run.
type AnalysisMetadata struct {
	AnalysisID       string          `json:"analysisId"`
	Timestamp        string          `json:"timestamp"`
	ModelUsed        string          `json:"modelUsed"`
	TotalTokensUsed  int             `json:"totalTokensUsed"`
	EstimatedCost    float64         `json:"estimatedCost"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
	Stages           []StageMetadata `json:"stages"`
}

// FullAnalysisResult bundles every stage output for one transcript.
type FullAnalysisResult struct {
	Success         bool                  `json:"success"`
	VoiceNoteID     string                `json:"voiceNoteId,omitempty"`
	RiskAssessment  RiskAssessmentResult  `json:"riskAssessment"`
	ClinicalSummary ClinicalSummaryResult `json:"clinicalSummary"`
	NextSteps       NextStepsResult       `json:"nextSteps"`
	DoctorMatching  *DoctorMatchingResult `json:"doctorMatching,omitempty"`
	Metadata        AnalysisMetadata      `json:"metadata"`
	Disclaimer      string                `json:"disclaimer"`
}
