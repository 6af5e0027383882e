// Package webportal implements the academic web portal API client.
package webportal

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

// LoginRequestDTO is the credential payload for the login endpoint.
type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DetailRequestDTO identifies one subject component for the per-lecture
// detailed attendance endpoint. The portal requires the registration pair
// alongside the component id.
type DetailRequestDTO struct {
	SubjectComponentID string `json:"subjectcomponentid"`
	RegistrationID     string `json:"registrationid"`
	RegistrationCode   string `json:"registrationcode"`
	SubjectCode        string `json:"subjectcode,omitempty"`
}

// AttendanceRequestDTO keys an attendance query by header and registration.
type AttendanceRequestDTO struct {
	HeaderID         string `json:"headerid"`
	RegistrationID   string `json:"registrationid"`
	RegistrationCode string `json:"registrationcode"`
}

// GradeCardRequestDTO keys a grade-card or report download by registration.
type GradeCardRequestDTO struct {
	RegistrationID   string `json:"registrationid"`
	RegistrationCode string `json:"registrationcode"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// LoginResponseDTO is the session token issued on successful login.
type LoginResponseDTO struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds; 0 means the portal did not say
	Name      string `json:"name,omitempty"`
}

// PortalErrorDTO is the error body the portal attaches to 4xx/5xx responses.
type PortalErrorDTO struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *PortalErrorDTO) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// AttendanceHeaderDTO is one header row of the attendance registration list.
// The portal keys every attendance query by a header id.
type AttendanceHeaderDTO struct {
	HeaderID string `json:"headerid"`
	Label    string `json:"label,omitempty"`
}

// SemesterRefDTO is the portal's reference to one semester. The same shape is
// returned by the attendance meta, grade-card and marks semester lists.
type SemesterRefDTO struct {
	RegistrationID   string `json:"registrationid"`
	RegistrationCode string `json:"registrationcode"`
	Name             string `json:"semestername,omitempty"`
	StyNumber        string `json:"stynumber,omitempty"`
}

// AttendanceMetaDTO is the registration metadata needed before any attendance
// query: the available header list and the semester list, newest first.
type AttendanceMetaDTO struct {
	Headers   []AttendanceHeaderDTO `json:"headerlist"`
	Semesters []SemesterRefDTO      `json:"semlist"`
}

// LatestHeader returns the newest attendance header, if any.
func (m *AttendanceMetaDTO) LatestHeader() (AttendanceHeaderDTO, bool) {
	if m == nil || len(m.Headers) == 0 {
		return AttendanceHeaderDTO{}, false
	}
	return m.Headers[0], true
}

// LatestSemester returns the newest semester ref, if any.
func (m *AttendanceMetaDTO) LatestSemester() (SemesterRefDTO, bool) {
	if m == nil || len(m.Semesters) == 0 {
		return SemesterRefDTO{}, false
	}
	return m.Semesters[0], true
}

// RawRecord is one attendance or grade-card record as the portal returns it.
// Field names are not stable across endpoints or portal releases, so records
// are decoded into a map and canonicalized by the Mapper.
type RawRecord map[string]any

// AttendanceListDTO wraps the per-subject attendance records.
type AttendanceListDTO struct {
	Records []RawRecord `json:"studentattendancelist"`
}

// LectureEntryDTO is one lecture row of the detailed attendance response.
// AttendanceStatus carries the literal strings "Present" / "Absent".
type LectureEntryDTO struct {
	AttendanceStatus string `json:"present"`
	DateTime         string `json:"datetime,omitempty"`
	ClassType        string `json:"classtype,omitempty"`
}

// DetailedAttendanceDTO is the per-lecture attendance list for one subject
// component.
type DetailedAttendanceDTO struct {
	Status  string            `json:"status"`
	Entries []LectureEntryDTO `json:"studentattdlist"`
}

// GradePointRowDTO is one semester row of the SGPA/CGPA table. The newest
// semester comes first and carries the current cumulative figure.
type GradePointRowDTO struct {
	StyNumber string  `json:"stynumber"`
	SGPA      float64 `json:"sgpa"`
	CGPA      float64 `json:"cgpa"`
}

// SgpaCgpaDTO is the SGPA/CGPA response.
type SgpaCgpaDTO struct {
	Rows []GradePointRowDTO `json:"semesterlist"`
}

// SemesterListDTO wraps a semester list response.
type SemesterListDTO struct {
	Semesters []SemesterRefDTO `json:"registrations"`
}

// GradeCardDTO is the wrapped form of the grade-card response. Some portal
// releases return the bare record list instead; the client handles both.
type GradeCardDTO struct {
	Records []RawRecord `json:"gradecard"`
}

// NoticeDTO is one portal announcement. ID is frequently missing, in which
// case the mapper derives a deterministic one from the content.
type NoticeDTO struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	PostedAt string `json:"postedat,omitempty"`
}

// NoticeListDTO wraps the notice board response.
type NoticeListDTO struct {
	Notices []NoticeDTO `json:"notices"`
}
