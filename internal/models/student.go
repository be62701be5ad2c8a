package models

// Student as returned by GET /students.
type Student struct {
	ID   int64  `json:"student_id"`
	Name string `json:"student_name"`
}

type CreateStudentInput struct {
	StudentName    string `json:"student_name"`
	OrganizationID int64  `json:"organization_id"`
}

type CreateStudentResponse struct {
	StudentID int64 `json:"student_id"`
}

type StudentCount struct {
	StudentCount int `json:"student_count"`
}

// FaceEncoding is an enrollment record from GET /face_encodings. Only the
// student reference is rendered; everything else stays opaque.
type FaceEncoding struct {
	ID          int64  `json:"id,omitempty"`
	StudentID   int64  `json:"student_id,omitempty"`
	StudentName string `json:"student_name"`
}
