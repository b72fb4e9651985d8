package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-assessment/internal/decision"
	"github.com/Dan9191/loan-assessment/internal/models"
)

// SubmitAssessment scores and decides one application and persists it.
// Nothing is written unless every step succeeds; a successful call writes
// exactly one record.
func (s *Service) SubmitAssessment(ctx context.Context, ownerID int64, applicantName string, raw map[string]string) (*models.Assessment, error) {
	a, features, err := BuildAssessment(ownerID, applicantName, raw)
	if err != nil {
		s.metrics.IncrementFailure("validation")
		s.log.Warnf("Assessment rejected for user %d: %v", ownerID, err)
		return nil, err
	}

	probability, err := s.score(ctx, features)
	if err != nil {
		s.metrics.IncrementFailure("scoring")
		s.log.Errorf("Scoring failed for user %d: %v", ownerID, err)
		return nil, &models.ScoringError{Err: err}
	}

	outcome := decision.Decide(features.CreditScore, features.AnnualIncome, features.LoanAmount)
	a.LoanStatus = outcome.Status
	a.RiskLevel = outcome.Risk
	a.Probability = roundProbability(probability)

	if err := s.repo.CreateAssessment(ctx, a); err != nil {
		s.metrics.IncrementFailure("store")
		return nil, err
	}

	s.metrics.IncrementOutcome(string(a.LoanStatus), string(a.RiskLevel))
	s.log.Infof("Assessment %d created for user %d: %s/%s (p=%.2f)",
		a.ID, ownerID, a.LoanStatus, a.RiskLevel, a.Probability)
	return a, nil
}

func (s *Service) score(ctx context.Context, features models.ApplicantFeatures) (float64, error) {
	start := time.Now()
	p, err := s.scorer.Score(ctx, features.Vector())
	s.metrics.ObserveScoringLatency(time.Since(start))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("probability %v outside [0,1]", p)
	}
	return p, nil
}

// roundProbability rounds to 2 decimal places, half away from zero.
func roundProbability(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}

// GetAssessment returns one assessment. Ownership is checked by the caller.
func (s *Service) GetAssessment(ctx context.Context, id int64) (*models.Assessment, error) {
	return s.repo.GetAssessment(ctx, id)
}

// ListHistory returns the owner's assessments in submission order
func (s *Service) ListHistory(ctx context.Context, ownerID int64) ([]models.Assessment, error) {
	return s.repo.ListAssessmentsByUser(ctx, ownerID)
}

// SearchAssessments returns assessments across owners matching filter
func (s *Service) SearchAssessments(ctx context.Context, filter string) ([]models.SearchResult, error) {
	return s.repo.SearchAssessments(ctx, filter)
}
