package reviewloanapplication

type Input struct {
	LoanID     int64  `json:"loanId"`
	LoanStatus string `json:"loanStatus"`
	Comments   string `json:"comments"`
}

type Output struct {
	LoanID     int64  `json:"loanId"`
	LoanStatus string `json:"loanStatus"`
	Comment    string `json:"comment,omitempty"`
	ReviewedAt string `json:"reviewedAt"` // RFC 3339
}
