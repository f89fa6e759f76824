package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healthsnap/backend/internal/domain/entities"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

const nextStepsSystemPrompt = `You are a patient care navigation AI assistant helping to provide appropriate next-step recommendations based on symptom analysis.

IMPORTANT PRINCIPLES:
1. SAFETY FIRST: When in doubt, recommend more urgent care rather than less
2. PATIENT EMPOWERMENT: Provide clear, actionable instructions patients can follow
3. APPROPRIATE ESCALATION: Always include warning signs that warrant immediate care
4. NO SELF-TREATMENT FOR SERIOUS CONDITIONS: Don't suggest managing concerning symptoms at home
5. CLEAR COMMUNICATION: Use plain language patients can understand

URGENCY TIMEFRAMES:
- "Immediately / Call 911": Life-threatening emergencies
- "Within hours": Urgent symptoms requiring same-day evaluation
- "Within 24 hours": Prompt care needed but not immediately dangerous
- "Within 2-3 days": Soon, but can wait for scheduled appointment
- "Within 1-2 weeks": Routine care, schedule at convenience
- "As needed": Monitor and seek care if worsens

SPECIALIST TYPES (use standard terms):
- primary-care
- cardiology
- pulmonology
- gastroenterology
- neurology
- orthopedics
- dermatology
- endocrinology
- infectious-disease
- psychiatry
- urgent-care
- emergency-medicine`

func buildNextStepsPrompt(riskAssessment *entities.RiskAssessmentResult, clinicalSummary *entities.ClinicalSummaryResult) string {
	findings := make([]string, 0, len(clinicalSummary.KeyFindings))
	for _, f := range clinicalSummary.KeyFindings {
		findings = append(findings, "- "+f)
	}

	risks := make([]string, 0, len(riskAssessment.RiskFlags))
	for _, r := range riskAssessment.RiskFlags {
		risks = append(risks, fmt.Sprintf("- %s (%s)", r.Flag, r.Severity))
	}

	redFlagSection := "No immediate red flags identified."
	if len(riskAssessment.RedFlags) > 0 {
		lines := make([]string, 0, len(riskAssessment.RedFlags))
		for _, r := range riskAssessment.RedFlags {
			lines = append(lines, "- "+r)
		}
		redFlagSection = "RED FLAGS PRESENT:\n" + strings.Join(lines, "\n")
	}

	differentials := make([]string, 0, len(clinicalSummary.DifferentialConsiderations))
	for _, d := range clinicalSummary.DifferentialConsiderations {
		differentials = append(differentials, "- "+d)
	}

	return fmt.Sprintf(`Based on the risk assessment and clinical summary, provide appropriate next-step recommendations for the patient.

CHIEF COMPLAINT: %s

OVERALL ACUITY: %s

KEY FINDINGS:
%s

RISK FLAGS:
%s

%s

DIFFERENTIAL CONSIDERATIONS:
%s

Generate next-step recommendations in JSON format:

{
  "recommendedAction": "Primary recommendation (e.g., 'Schedule appointment with primary care physician' or 'Seek emergency care immediately')",
  "urgencyTimeframe": "When to take action (use standard timeframes)",
  "reasoning": "Brief explanation of why this level of urgency is recommended",
  "patientInstructions": [
    "Specific action item 1 the patient should do",
    "Specific action item 2",
    "Keep these practical and actionable"
  ],
  "warningSigns": [
    "Symptom that should trigger immediate medical attention",
    "Include specific, recognizable symptoms"
  ],
  "selfCareRecommendations": [
    "Safe self-care measure (only if appropriate for acuity level)",
    "Should not replace medical evaluation for concerning symptoms"
  ],
  "specialistTypeRecommended": "specialty-type or null if primary care sufficient",
  "followUpRecommendation": "When and how to follow up after initial evaluation",
  "confidence": 0.85
}

CRITICAL RULES:
1. For "emergent" acuity: recommendedAction MUST include seeking emergency care
2. For red flags present: urgencyTimeframe MUST be "Immediately" or "Within hours"
3. warningSigns should always include at least 3 specific symptoms
4. selfCareRecommendations should be empty or minimal for high-acuity situations
5. Be specific in patientInstructions (what to bring to appointment, what to track, etc.)`,
		clinicalSummary.ChiefComplaint,
		riskAssessment.OverallAcuity,
		strings.Join(findings, "\n"),
		strings.Join(risks, "\n"),
		redFlagSection,
		strings.Join(differentials, "\n"),
	)
}

func parseNextSteps(content string) (*entities.NextStepsResult, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var result entities.NextStepsResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, apperrors.NewExternalError("failed to decode next steps response", err)
	}

	if result.RecommendedAction == "" || result.UrgencyTimeframe == "" {
		return nil, apperrors.NewExternalError("invalid next steps: missing required fields", nil)
	}

	if result.PatientInstructions == nil {
		result.PatientInstructions = []string{}
	}
	if result.WarningSigns == nil {
		result.WarningSigns = []string{}
	}
	if result.SelfCareRecommendations == nil {
		result.SelfCareRecommendations = []string{}
	}
	if result.Confidence == 0 {
		result.Confidence = 0.75
	}

	return &result, nil
}
