package compliance

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

// DefaultDueSoonWindow flags certifications expiring within 30 days.
const DefaultDueSoonWindow = 30 * 24 * time.Hour

// CertificationStatus classifies a YYYY-MM-DD due date relative to now. The due date
// itself still counts as current.
func CertificationStatus(due string, now time.Time, window time.Duration) constants.CertStatus {
	d, err := time.Parse(constants.DateLayout, strings.TrimSpace(due))
	if err != nil {
		return constants.CertUnknown
	}
	if window <= 0 {
		window = DefaultDueSoonWindow
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case d.Before(today):
		return constants.CertOverdue
	case !d.After(today.Add(window)):
		return constants.CertDueSoon
	default:
		return constants.CertCurrent
	}
}

// PersonnelCertification is the tracking view for one worker.
type PersonnelCertification struct {
	Personnel        entity.Personnel     `json:"personnel"`
	FitTest          constants.CertStatus `json:"fit_test"`
	MedicalClearance constants.CertStatus `json:"medical_clearance"`
}

// Attention reports whether either certification needs action.
func (p PersonnelCertification) Attention() bool {
	return p.FitTest != constants.CertCurrent || p.MedicalClearance != constants.CertCurrent
}

func EvaluateCertifications(people []entity.Personnel, now time.Time, window time.Duration) []PersonnelCertification {
	out := make([]PersonnelCertification, 0, len(people))
	for _, p := range people {
		out = append(out, PersonnelCertification{
			Personnel:        p,
			FitTest:          CertificationStatus(p.FitTestDueDate, now, window),
			MedicalClearance: CertificationStatus(p.MedicalClearanceDueDate, now, window),
		})
	}
	return out
}
