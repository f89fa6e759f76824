package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healthsnap/backend/internal/domain/entities"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

const clinicalSummarySystemPrompt = `You are a clinical documentation AI assistant helping to create concise, professional summaries of patient symptom reports for healthcare providers.

Your summaries should:
- Be written in professional clinical language
- Follow standard medical documentation conventions
- Be concise yet comprehensive
- Highlight clinically relevant information
- Include pertinent negatives when important
- Note timeline and progression of symptoms
- Be objective and factual

IMPORTANT:
- This is a preliminary summary based on patient self-report
- Should not be used as sole basis for clinical decisions
- Healthcare provider should conduct their own assessment`

func buildClinicalSummaryPrompt(riskAssessment *entities.RiskAssessmentResult, transcript string) string {
	symptoms := make([]string, 0, len(riskAssessment.SymptomsExtracted))
	for _, s := range riskAssessment.SymptomsExtracted {
		desc := s.Symptom
		if s.Duration != "" {
			desc += fmt.Sprintf(" (%s)", s.Duration)
		}
		if s.Severity != "" {
			desc += " - " + s.Severity
		}
		if s.Location != "" {
			desc += " in " + s.Location
		}
		symptoms = append(symptoms, "- "+desc)
	}

	risks := make([]string, 0, len(riskAssessment.RiskFlags))
	for _, r := range riskAssessment.RiskFlags {
		risks = append(risks, fmt.Sprintf("- %s (%s): %s", r.Flag, r.Severity, r.ClinicalRationale))
	}

	var redFlagLine string
	if len(riskAssessment.RedFlags) > 0 {
		redFlagLine = "RED FLAGS: " + strings.Join(riskAssessment.RedFlags, ", ")
	}

	return fmt.Sprintf(`Based on the patient symptom report and risk assessment, create a professional clinical summary.

ORIGINAL TRANSCRIPT:
"""
%s
"""

EXTRACTED SYMPTOMS:
%s

IDENTIFIED RISKS:
%s

OVERALL ACUITY: %s
%s

Generate a clinical summary in JSON format:

{
  "chiefComplaint": "Primary reason for visit in standard CC format (e.g., '3-day history of persistent headache')",
  "summaryText": "2-3 paragraph professional clinical summary suitable for a healthcare provider. Include HPI-style narrative.",
  "keyFindings": [
    "Important clinical finding 1",
    "Important clinical finding 2"
  ],
  "timeline": "Description of symptom onset and progression",
  "pertinentNegatives": [
    "Relevant symptoms patient denied or didn't mention that would be clinically significant"
  ],
  "differentialConsiderations": [
    "Condition that should be considered based on presentation"
  ],
  "confidence": 0.85
}

GUIDELINES:
- chiefComplaint should be concise (one line)
- summaryText should be professional but readable
- keyFindings should be specific and actionable
- pertinentNegatives are symptoms NOT reported that would change clinical thinking
- differentialConsiderations are NOT diagnoses, just conditions to consider
- confidence reflects completeness of available information`,
		transcript,
		strings.Join(symptoms, "\n"),
		strings.Join(risks, "\n"),
		riskAssessment.OverallAcuity,
		redFlagLine,
	)
}

func parseClinicalSummary(content string) (*entities.ClinicalSummaryResult, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var result entities.ClinicalSummaryResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, apperrors.NewExternalError("failed to decode clinical summary response", err)
	}

	if result.ChiefComplaint == "" || result.SummaryText == "" {
		return nil, apperrors.NewExternalError("invalid clinical summary: missing required fields", nil)
	}

	if result.KeyFindings == nil {
		result.KeyFindings = []string{}
	}
	if result.PertinentNegatives == nil {
		result.PertinentNegatives = []string{}
	}
	if result.DifferentialConsiderations == nil {
		result.DifferentialConsiderations = []string{}
	}
	if result.Confidence == 0 {
		result.Confidence = 0.75
	}

	return &result, nil
}
