package utils

import (
	"admissions-crm/logger"
	"admissions-crm/models"
)

// DeduplicateLeads removes duplicate leads within the same list based on email+phone combination
func DeduplicateLeads(leads []models.Lead) []models.Lead {
	seen := make(map[string]bool)
	unique := []models.Lead{}

	for _, lead := range leads {
		key := lead.Email + "|" + lead.Phone
		if !seen[key] {
			seen[key] = true
			unique = append(unique, lead)
		}
	}

	if len(unique) < len(leads) {
		logger.Info("Removed %d duplicate leads from collection", len(leads)-len(unique))
	}

	return unique
}

// ConvertLeadsToResponse converts leads to API responses, filling counselor
// names from the given lookup.
func ConvertLeadsToResponse(leads []*models.Lead, counselorNames map[int64]string) []models.LeadResponse {
	responses := make([]models.LeadResponse, len(leads))
	for i, l := range leads {
		responses[i] = l.ToResponse()
		responses[i].CounselorName = CounselorName(l.AssignedCounselorID, counselorNames)
	}
	return responses
}

// CounselorName returns the display name for an optional counselor id.
func CounselorName(id *int64, names map[int64]string) string {
	if id == nil {
		return "Not Assigned"
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return "Unknown"
}
