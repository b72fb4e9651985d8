package service

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// Limits in characters, matching the column widths.
const (
	maxApplicantNameLen = 100
	maxTextFieldLen     = 50
)

// BuildAssessment coerces raw submission fields into a typed assessment and
// its feature vector source. The decision, probability, id and creation time
// are left for the caller to fill in.
//
// Coercions: no_of_dependents is a non-negative integer; education is a
// graduate flag when it equals "graduate" ignoring case; self_employed is a
// flag when it equals "yes" ignoring case; every other field is a finite,
// non-negative real number.
func BuildAssessment(ownerID int64, applicantName string, raw map[string]string) (*models.Assessment, models.ApplicantFeatures, error) {
	var f models.ApplicantFeatures

	name := strings.TrimSpace(applicantName)
	if name == "" {
		return nil, f, &models.ValidationError{Field: "applicant_name", Reason: "is required"}
	}
	if err := checkText("applicant_name", name, maxApplicantNameLen); err != nil {
		return nil, f, err
	}

	p := fieldParser{raw: raw}
	f.Dependents = p.count("no_of_dependents")
	education := p.text("education")
	selfEmployed := p.text("self_employed")
	f.AnnualIncome = p.amount("income_annum")
	f.LoanAmount = p.amount("loan_amount")
	f.LoanTerm = p.amount("loan_term")
	f.CreditScore = p.amount("cibil_score")
	f.ResidentialAssetsValue = p.amount("residential_assets_value")
	f.CommercialAssetsValue = p.amount("commercial_assets_value")
	f.LuxuryAssetsValue = p.amount("luxury_assets_value")
	f.BankAssetsValue = p.amount("bank_asset_value")
	if p.err != nil {
		return nil, f, p.err
	}
	f.Graduate = strings.EqualFold(education, "graduate")
	f.SelfEmployed = strings.EqualFold(selfEmployed, "yes")

	a := &models.Assessment{
		UserID:                 ownerID,
		ApplicantName:          name,
		Dependents:             f.Dependents,
		Education:              education,
		SelfEmployed:           selfEmployed,
		AnnualIncome:           f.AnnualIncome,
		LoanAmount:             f.LoanAmount,
		LoanTerm:               f.LoanTerm,
		CreditScore:            f.CreditScore,
		ResidentialAssetsValue: f.ResidentialAssetsValue,
		CommercialAssetsValue:  f.CommercialAssetsValue,
		LuxuryAssetsValue:      f.LuxuryAssetsValue,
		BankAssetsValue:        f.BankAssetsValue,
	}
	return a, f, nil
}

// fieldParser keeps the first coercion error and turns later calls into no-ops.
type fieldParser struct {
	raw map[string]string
	err error
}

func (p *fieldParser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.raw[key]
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		p.err = &models.ValidationError{Field: key, Reason: "is required"}
		return "", false
	}
	return v, true
}

func (p *fieldParser) text(key string) string {
	v, ok := p.lookup(key)
	if !ok {
		return ""
	}
	if err := checkText(key, v, maxTextFieldLen); err != nil {
		p.err = err
		return ""
	}
	return v
}

// checkText rejects values a text column cannot store.
func checkText(key, v string, maxLen int) error {
	if !utf8.ValidString(v) || strings.ContainsRune(v, 0) {
		return &models.ValidationError{Field: key, Reason: "contains invalid characters"}
	}
	if utf8.RuneCountInString(v) > maxLen {
		return &models.ValidationError{Field: key, Reason: "is too long"}
	}
	return nil
}

func (p *fieldParser) count(key string) int {
	v, ok := p.lookup(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = &models.ValidationError{Field: key, Reason: "must be an integer"}
		return 0
	}
	if n < 0 {
		p.err = &models.ValidationError{Field: key, Reason: "must not be negative"}
		return 0
	}
	return n
}

func (p *fieldParser) amount(key string) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		p.err = &models.ValidationError{Field: key, Reason: "must be a number"}
		return 0
	}
	if n < 0 {
		p.err = &models.ValidationError{Field: key, Reason: "must not be negative"}
		return 0
	}
	return n
}
