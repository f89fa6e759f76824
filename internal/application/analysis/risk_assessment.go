package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healthsnap/backend/internal/domain/entities"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

const riskAssessmentSystemPrompt = `You are a clinical decision support AI assistant helping to triage patient symptoms. Your role is to identify potential health risks from patient-reported symptoms to help prioritize care.

IMPORTANT DISCLAIMERS:
- You are NOT making a diagnosis
- You are identifying potential risks that warrant professional medical evaluation
- Always err on the side of caution - when uncertain, flag as higher risk
- Never dismiss concerning symptoms
- This is a screening tool, not a replacement for professional medical evaluation

ACUITY LEVELS:
- "emergent": Potentially life-threatening, needs immediate medical attention (ER/911)
- "urgent": Significant concern requiring prompt evaluation (same-day or next-day care)
- "routine": Can be addressed in scheduled appointment (within 1-2 weeks)

SEVERITY LEVELS for individual risks:
- "critical": Immediately dangerous, could be life-threatening
- "high": Serious concern requiring prompt attention
- "moderate": Notable concern that should be evaluated soon
- "low": Minor concern, monitor and address if persists

RED FLAGS to always escalate:
- Chest pain, especially with shortness of breath or radiating to arm/jaw
- Sudden severe headache ("worst headache of my life")
- Difficulty breathing or severe shortness of breath
- Signs of stroke (face drooping, arm weakness, speech difficulty)
- Severe abdominal pain
- Uncontrolled bleeding
- Loss of consciousness or altered mental status
- Suicidal ideation or self-harm thoughts
- Severe allergic reaction symptoms

Be thorough but conservative. Extract all mentioned symptoms accurately.`

func buildRiskAssessmentPrompt(transcript string, patientContext *entities.PatientContext) string {
	var contextSection string

	if patientContext != nil {
		var parts []string

		if patientContext.Age > 0 {
			parts = append(parts, fmt.Sprintf("Age: %d years", patientContext.Age))
		}
		if patientContext.Sex != "" {
			parts = append(parts, "Sex: "+patientContext.Sex)
		}
		if len(patientContext.KnownConditions) > 0 {
			parts = append(parts, "Known conditions: "+strings.Join(patientContext.KnownConditions, ", "))
		}
		if len(patientContext.CurrentMedications) > 0 {
			meds := make([]string, 0, len(patientContext.CurrentMedications))
			for _, m := range patientContext.CurrentMedications {
				med := m.Name
				if m.Dosage != "" {
					med += " " + m.Dosage
				}
				meds = append(meds, med)
			}
			parts = append(parts, "Current medications: "+strings.Join(meds, ", "))
		}

		if len(parts) > 0 {
			contextSection = "\n\nPATIENT CONTEXT:\n" + strings.Join(parts, "\n")
		}
	}

	return fmt.Sprintf(`Analyze the following patient symptom report and provide a structured risk assessment.
%s

PATIENT TRANSCRIPT:
"""
%s
"""

Respond with a JSON object containing:

{
  "riskFlags": [
    {
      "flag": "Name of the risk/concern",
      "severity": "low|moderate|high|critical",
      "description": "Brief patient-friendly description",
      "clinicalRationale": "Clinical reasoning for this flag"
    }
  ],
  "symptomsExtracted": [
    {
      "symptom": "Symptom name",
      "duration": "How long (if mentioned)",
      "severity": "Patient-reported severity (if mentioned)",
      "location": "Body location (if applicable)",
      "frequency": "How often (if mentioned)",
      "aggravatingFactors": ["What makes it worse"],
      "relievingFactors": ["What makes it better"]
    }
  ],
  "vitalsMentioned": {
    "bloodPressure": "value or null",
    "heartRate": "value or null",
    "temperature": "value or null",
    "respiratoryRate": "value or null",
    "oxygenSaturation": "value or null",
    "bloodSugar": "value or null",
    "other": {}
  },
  "overallAcuity": "routine|urgent|emergent",
  "redFlags": ["List of any red flag symptoms identified"],
  "confidence": 0.85,
  "reasoning": "Brief explanation of overall assessment and acuity determination"
}

Be thorough in symptom extraction. If vitals aren't mentioned, set vitalsMentioned to null.
If no red flags, return empty array for redFlags.
Confidence should reflect certainty in the assessment (0.0-1.0).`, contextSection, transcript)
}

func parseRiskAssessment(content string) (*entities.RiskAssessmentResult, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var result entities.RiskAssessmentResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, apperrors.NewExternalError("failed to decode risk assessment response", err)
	}

	if result.RiskFlags == nil {
		return nil, apperrors.NewExternalError("invalid risk assessment: missing riskFlags array", nil)
	}
	if result.SymptomsExtracted == nil {
		return nil, apperrors.NewExternalError("invalid risk assessment: missing symptomsExtracted array", nil)
	}
	if !result.OverallAcuity.Valid() {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("invalid risk assessment: invalid overallAcuity value %q", result.OverallAcuity), nil)
	}
	for _, flag := range result.RiskFlags {
		if !flag.Severity.Valid() {
			return nil, apperrors.NewExternalError(
				fmt.Sprintf("invalid risk assessment: invalid severity value %q", flag.Severity), nil)
		}
	}

	if result.RedFlags == nil {
		result.RedFlags = []string{}
	}
	if result.Confidence == 0 {
		result.Confidence = 0.75
	}

	return &result, nil
}
