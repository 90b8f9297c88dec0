package models

// AssignmentStatus is the life-cycle stage of a Registration. An empty
// value is read as StatusRegistered: old records never had the field.
type AssignmentStatus string

const (
	StatusRegistered        AssignmentStatus = "registered"
	StatusPendingManager    AssignmentStatus = "pending_manager"
	StatusPendingEmployee   AssignmentStatus = "pending_employee"
	StatusPendingAcceptance AssignmentStatus = "pending_acceptance"
	StatusActive            AssignmentStatus = "active"
	StatusInactive          AssignmentStatus = "inactive"
	StatusRejected          AssignmentStatus = "rejected"
)

// Statuses lists every legal AssignmentStatus value.
var Statuses = []AssignmentStatus{
	StatusRegistered,
	StatusPendingManager,
	StatusPendingEmployee,
	StatusPendingAcceptance,
	StatusActive,
	StatusInactive,
	StatusRejected,
}

// Valid reports whether s is a member of the enumerated status set.
// The empty string is valid because it reads as registered.
func (s AssignmentStatus) Valid() bool {
	if s == "" {
		return true
	}
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Normalize maps the absent status to the initial state.
func (s AssignmentStatus) Normalize() AssignmentStatus {
	if s == "" {
		return StatusRegistered
	}
	return s
}

// Client is a person enrolled with the agency. Registrations live in a
// subtree under the client record and are not embedded here.
type Client struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	Education  string `json:"education,omitempty"`
	Employment string `json:"employment,omitempty"`
	VisaStatus string `json:"visa_status,omitempty"`
}

// Registration is one enrollment of a client into one service,
// identified by the (ClientID, RegistrationID) pair.
type Registration struct {
	ClientID         string           `json:"client_id"`
	RegistrationID   string           `json:"registration_id"`
	ClientName       string           `json:"client_name,omitempty"`
	Service          string           `json:"service"`
	AssignmentStatus AssignmentStatus `json:"assignment_status,omitempty"`

	// Manager is the display name, AssignedManager the manager id.
	// AssignedTo is the employee (recruiter) id set in the
	// manager-facing flow.
	Manager         string `json:"manager,omitempty"`
	AssignedManager string `json:"assigned_manager,omitempty"`
	AssignedTo      string `json:"assigned_to,omitempty"`

	Priority     string `json:"priority,omitempty"`
	AppliedDate  string `json:"applied_date,omitempty"`
	AssignedDate string `json:"assigned_date,omitempty"`

	Education      string `json:"education,omitempty"`
	Employment     string `json:"employment,omitempty"`
	VisaStatus     string `json:"visa_status,omitempty"`
	ResumeRef      string `json:"resume_ref,omitempty"`
	CoverLetterRef string `json:"cover_letter_ref,omitempty"`
}

// Status returns the normalized assignment status.
func (r Registration) Status() AssignmentStatus {
	return r.AssignmentStatus.Normalize()
}

// Key returns the composite key used by the flat and reverse indices.
func (r Registration) Key() string {
	return r.ClientID + "_" + r.RegistrationID
}

// InterviewStatus is the Job-Application status value that marks an
// application as an interview. Interviews are not a separate entity;
// they are applications read at query time.
const InterviewStatus = "Interview"

// JobApplication belongs to exactly one Registration. Status is free
// text except for the InterviewStatus literal.
type JobApplication struct {
	ID          string   `json:"id"`
	Company     string   `json:"company"`
	Title       string   `json:"title"`
	JobID       string   `json:"job_id,omitempty"`
	Boards      []string `json:"boards,omitempty"`
	AppliedDate string   `json:"applied_date,omitempty"`
	AppliedAt   int64    `json:"applied_at,omitempty"`
	Status      string   `json:"status,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// IsInterview reports whether the application counts as an interview.
func (a JobApplication) IsInterview() bool {
	return a.Status == InterviewStatus
}

// IndexRecord is the flat, search-optimized projection of a
// Registration, keyed by "{clientID}_{registrationID}". Mirrored
// fields must stay byte-for-byte consistent with the primary record.
type IndexRecord struct {
	ClientID        string           `json:"client_id"`
	RegistrationID  string           `json:"registration_id"`
	ClientName      string           `json:"client_name,omitempty"`
	Service         string           `json:"service"`
	Status          AssignmentStatus `json:"status,omitempty"`
	Manager         string           `json:"manager,omitempty"`
	AssignedManager string           `json:"assigned_manager,omitempty"`
	AssignedTo      string           `json:"assigned_to,omitempty"`
	Priority        string           `json:"priority,omitempty"`
	AppliedDate     string           `json:"applied_date,omitempty"`
	AssignedDate    string           `json:"assigned_date,omitempty"`
}

// Key returns the flat-index key for the record.
func (ir IndexRecord) Key() string {
	return ir.ClientID + "_" + ir.RegistrationID
}

// IndexRecordFor projects a Registration into its flat index record.
func IndexRecordFor(r Registration) IndexRecord {
	return IndexRecord{
		ClientID:        r.ClientID,
		RegistrationID:  r.RegistrationID,
		ClientName:      r.ClientName,
		Service:         r.Service,
		Status:          r.AssignmentStatus,
		Manager:         r.Manager,
		AssignedManager: r.AssignedManager,
		AssignedTo:      r.AssignedTo,
		Priority:        r.Priority,
		AppliedDate:     r.AppliedDate,
		AssignedDate:    r.AssignedDate,
	}
}

// ReverseIndexEntry is the minimal projection stored under a manager
// or employee id so their dashboards load without scanning every
// registration.
type ReverseIndexEntry struct {
	ClientID       string           `json:"client_id"`
	RegistrationID string           `json:"registration_id"`
	ClientName     string           `json:"client_name,omitempty"`
	Status         AssignmentStatus `json:"status,omitempty"`
}

// ReverseEntryFor projects a Registration into a reverse-index entry.
func ReverseEntryFor(r Registration) ReverseIndexEntry {
	return ReverseIndexEntry{
		ClientID:       r.ClientID,
		RegistrationID: r.RegistrationID,
		ClientName:     r.ClientName,
		Status:         r.AssignmentStatus,
	}
}

// Staff is a back-office operator account used for API auth.
type Staff struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Role         string `json:"role,omitempty" db:"role"`
	Updated      int64  `json:"updated" db:"updated"`
	PasswordHash string `json:"password_hash,omitempty" db:"password_hash"`
}
