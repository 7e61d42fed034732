package models

// StudentAccount is the billing view of a student: identity, course and the
// attributes the fee schedule depends on.
type StudentAccount struct {
	RollNo           string  `db:"roll_no" json:"roll_no"`
	Name             string  `db:"name" json:"name"`
	Email            string  `db:"email" json:"email"`
	CourseID         string  `db:"course_id" json:"course_id"`
	CourseName       string  `db:"course_name" json:"course_name"`
	CourseFeePerTerm *int64  `db:"fees_per_semester" json:"fees_per_semester,omitempty"`
	CurrentSemester  int     `db:"current_semester" json:"current_semester"`
	HostelID         *string `db:"hostel_id" json:"hostel_id,omitempty"`
	Active           bool    `db:"is_active" json:"is_active"`
}

// HasHostel reports whether the student holds a hostel allocation.
func (s *StudentAccount) HasHostel() bool {
	return s.HostelID != nil && *s.HostelID != ""
}
