package models

import "time"

// LoanStatus is the categorical decision of an assessment
type LoanStatus string

const (
	StatusApproved LoanStatus = "Approved"
	StatusRejected LoanStatus = "Rejected"
)

// RiskLevel is the risk tier attached to a decision
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// FeatureCount is the length of the vector the scoring model consumes.
const FeatureCount = 11

// FeatureVector is the fixed-order numeric input of the scoring model.
type FeatureVector [FeatureCount]float64

// FeatureNames lists the model inputs in vector order. The names double as the
// raw form keys of a submission and as DataField names in model documents.
// The order is a contract with the trained model: never reorder, only append
// together with a retrained model.
var FeatureNames = [FeatureCount]string{
	"no_of_dependents",
	"education",
	"self_employed",
	"income_annum",
	"loan_amount",
	"loan_term",
	"cibil_score",
	"residential_assets_value",
	"commercial_assets_value",
	"luxury_assets_value",
	"bank_asset_value",
}

// FeatureIndex returns the vector position of a feature name, or -1.
func FeatureIndex(name string) int {
	for i, n := range FeatureNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ApplicantFeatures holds coerced applicant attributes
type ApplicantFeatures struct {
	Dependents             int
	Graduate               bool
	SelfEmployed           bool
	AnnualIncome           float64
	LoanAmount             float64
	LoanTerm               float64
	CreditScore            float64
	ResidentialAssetsValue float64
	CommercialAssetsValue  float64
	LuxuryAssetsValue      float64
	BankAssetsValue        float64
}

// Vector encodes the features in FeatureNames order.
func (f ApplicantFeatures) Vector() FeatureVector {
	return FeatureVector{
		float64(f.Dependents),
		boolToFloat(f.Graduate),
		boolToFloat(f.SelfEmployed),
		f.AnnualIncome,
		f.LoanAmount,
		f.LoanTerm,
		f.CreditScore,
		f.ResidentialAssetsValue,
		f.CommercialAssetsValue,
		f.LuxuryAssetsValue,
		f.BankAssetsValue,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Assessment represents one persisted evaluation of a loan applicant.
// Records are immutable once written.
type Assessment struct {
	ID                     int64      `json:"id"`
	UserID                 int64      `json:"user_id"`
	ApplicantName          string     `json:"applicant_name"`
	Dependents             int        `json:"no_of_dependents"`
	Education              string     `json:"education"`
	SelfEmployed           string     `json:"self_employed"`
	AnnualIncome           float64    `json:"income_annum"`
	LoanAmount             float64    `json:"loan_amount"`
	LoanTerm               float64    `json:"loan_term"`
	CreditScore            float64    `json:"cibil_score"`
	ResidentialAssetsValue float64    `json:"residential_assets_value"`
	CommercialAssetsValue  float64    `json:"commercial_assets_value"`
	LuxuryAssetsValue      float64    `json:"luxury_assets_value"`
	BankAssetsValue        float64    `json:"bank_asset_value"`
	LoanStatus             LoanStatus `json:"loan_status"`
	RiskLevel              RiskLevel  `json:"risk_level"`
	Probability            float64    `json:"probability"`
	CreatedAt              time.Time  `json:"created_at"`
}

// SearchResult pairs an assessment with its owner's username. Username is
// empty when the owner no longer resolves.
type SearchResult struct {
	Assessment Assessment `json:"assessment"`
	Username   string     `json:"username"`
}
