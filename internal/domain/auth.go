package domain

// SubjectType differentiates token holders.
type SubjectType string

const (
	SubjectTypeAdmin SubjectType = "ADMIN"
)
