package models

// School is an organization as returned by GET /schools.
type School struct {
	ID      int64  `json:"school_id"`
	OrgName string `json:"org_name"`
}

type CreateSchoolInput struct {
	OrgName string `json:"org_name"`
}

type CreateSchoolResponse struct {
	SchoolID int64 `json:"school_id"`
}

type SchoolCount struct {
	SchoolCount int `json:"school_count"`
}
