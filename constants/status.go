package constants

import "strings"

// ResultStatus is the exposure classification stored on results.
// Stable values (store these exact strings in DB).
type ResultStatus string

const (
	StatusPending     ResultStatus = "Pending"
	StatusOK          ResultStatus = "OK"
	StatusAtOrAboveAL ResultStatus = "≥AL"
	StatusAbovePEL    ResultStatus = ">PEL"
	// StatusAboveEL is part of the stored vocabulary but no evaluation path produces it.
	StatusAboveEL ResultStatus = ">EL"
)

var allStatuses = []ResultStatus{StatusPending, StatusOK, StatusAtOrAboveAL, StatusAbovePEL, StatusAboveEL}

func ResultStatusesAsStrings() []string {
	out := make([]string, len(allStatuses))
	for i, st := range allStatuses {
		out[i] = string(st)
	}
	return out
}

// ParseResultStatus accepts the stored spelling or the ASCII forms ">=AL", "PEL", "EL".
func ParseResultStatus(input string) (ResultStatus, bool) {
	s := strings.ToUpper(strings.TrimSpace(input))
	switch s {
	case ">=AL", "AL":
		return StatusAtOrAboveAL, true
	case "PEL":
		return StatusAbovePEL, true
	case "EL":
		return StatusAboveEL, true
	}
	for _, st := range allStatuses {
		if s == strings.ToUpper(string(st)) {
			return st, true
		}
	}
	return "", false
}

// Severity orders statuses so the worst one in a set can be picked.
func (s ResultStatus) Severity() int {
	switch s {
	case StatusOK:
		return 1
	case StatusAtOrAboveAL:
		return 2
	case StatusAboveEL:
		return 3
	case StatusAbovePEL:
		return 4
	default:
		return 0
	}
}

// Exceeds reports whether the status is at or above the action level.
func (s ResultStatus) Exceeds() bool {
	return s == StatusAtOrAboveAL || s == StatusAbovePEL || s == StatusAboveEL
}

type CertStatus string

const (
	CertCurrent CertStatus = "Current"
	CertDueSoon CertStatus = "DueSoon"
	CertOverdue CertStatus = "Overdue"
	CertUnknown CertStatus = "Unknown"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

var allRoles = []Role{RoleAdmin, RoleTechnician, RoleViewer}

func RolesAsStrings() []string {
	out := make([]string, len(allRoles))
	for i, r := range allRoles {
		out[i] = string(r)
	}
	return out
}

func ParseRole(input string) (Role, bool) {
	n := strings.ToLower(strings.TrimSpace(input))
	for _, r := range allRoles {
		if n == string(r) {
			return r, true
		}
	}
	return "", false
}
