package decision

import "github.com/Dan9191/loan-assessment/internal/models"

// Thresholds of the decision rules
const (
	PrimeCreditScore   = 750.0
	PrimeAnnualIncome  = 800_000.0
	PrimeMaxLoanRatio  = 0.5
	MinimumCreditScore = 650.0
)

// Outcome is the categorical result of the policy
type Outcome struct {
	Status models.LoanStatus
	Risk   models.RiskLevel
}

// Decide applies the lending rules, first match wins:
//
//	score >= 750 and income >= 800000 and loan <= income/2 -> Approved, Low
//	score >= 650                                           -> Approved, Medium
//	otherwise                                              -> Rejected, High
//
// All bounds are inclusive. The model probability is not an input.
func Decide(creditScore, annualIncome, loanAmount float64) Outcome {
	switch {
	case creditScore >= PrimeCreditScore &&
		annualIncome >= PrimeAnnualIncome &&
		loanAmount <= annualIncome*PrimeMaxLoanRatio:
		return Outcome{Status: models.StatusApproved, Risk: models.RiskLow}
	case creditScore >= MinimumCreditScore:
		return Outcome{Status: models.StatusApproved, Risk: models.RiskMedium}
	default:
		return Outcome{Status: models.StatusRejected, Risk: models.RiskHigh}
	}
}
