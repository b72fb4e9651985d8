package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/repository"
	"github.com/Dan9191/loan-assessment/internal/scoring"
)

type failingStore struct {
	*repository.MemoryStore
	createCalled bool
}

func (f *failingStore) CreateAssessment(context.Context, *models.Assessment) error {
	f.createCalled = true
	return errors.New("connection reset")
}

func newTestService(store repository.Store, scorer scoring.Scorer) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(store, scorer, log, &config.Config{JWTSecret: "test-secret"}, nil)
}

func validFields() map[string]string {
	return map[string]string{
		"no_of_dependents":         "0",
		"education":                "Graduate",
		"self_employed":            "No",
		"income_annum":             "1000000",
		"loan_amount":              "300000",
		"loan_term":                "12",
		"cibil_score":              "780",
		"residential_assets_value": "2000000",
		"commercial_assets_value":  "500000",
		"luxury_assets_value":      "100000",
		"bank_asset_value":         "250000",
	}
}

func TestSubmitAssessment_PrimeApplicant(t *testing.T) {
	store := repository.NewMemoryStore()
	var seen models.FeatureVector
	scorer := scoring.Func(func(_ context.Context, fv models.FeatureVector) (float64, error) {
		seen = fv
		return 0.8765, nil
	})
	svc := newTestService(store, scorer)

	a, err := svc.SubmitAssessment(context.Background(), 7, "Jane Doe", validFields())
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, a.LoanStatus)
	assert.Equal(t, models.RiskLow, a.RiskLevel)
	assert.Equal(t, 0.88, a.Probability)
	assert.Equal(t, int64(7), a.UserID)
	assert.Equal(t, "Graduate", a.Education)
	assert.NotZero(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, models.FeatureVector{0, 1, 0, 1_000_000, 300_000, 12, 780, 2_000_000, 500_000, 100_000, 250_000}, seen)

	stored, err := store.GetAssessment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, *a, *stored)
}

func TestSubmitAssessment_DecisionIgnoresProbability(t *testing.T) {
	tests := []struct {
		name   string
		score  string
		income string
		loan   string
		p      float64
		status models.LoanStatus
		risk   models.RiskLevel
	}{
		{"medium despite certain approval", "700", "500000", "450000", 1, models.StatusApproved, models.RiskMedium},
		{"rejected despite high probability", "600", "9000000", "1", 0.99, models.StatusRejected, models.RiskHigh},
		{"low risk despite zero probability", "750", "800000", "400000", 0, models.StatusApproved, models.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields()
			fields["cibil_score"] = tt.score
			fields["income_annum"] = tt.income
			fields["loan_amount"] = tt.loan

			svc := newTestService(repository.NewMemoryStore(), scoring.Constant(tt.p))
			a, err := svc.SubmitAssessment(context.Background(), 1, "Applicant", fields)
			require.NoError(t, err)
			assert.Equal(t, tt.status, a.LoanStatus)
			assert.Equal(t, tt.risk, a.RiskLevel)
		})
	}
}

func TestSubmitAssessment_TwiceYieldsTwoRecords(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, scoring.Constant(0.5))

	first, err := svc.SubmitAssessment(context.Background(), 1, "Same", validFields())
	require.NoError(t, err)
	second, err := svc.SubmitAssessment(context.Background(), 1, "Same", validFields())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))

	history, err := svc.ListHistory(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSubmitAssessment_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(map[string]string)
		field string
	}{
		{"missing dependents", func(m map[string]string) { delete(m, "no_of_dependents") }, "no_of_dependents"},
		{"fractional dependents", func(m map[string]string) { m["no_of_dependents"] = "1.5" }, "no_of_dependents"},
		{"negative dependents", func(m map[string]string) { m["no_of_dependents"] = "-1" }, "no_of_dependents"},
		{"blank education", func(m map[string]string) { m["education"] = "  " }, "education"},
		{"text income", func(m map[string]string) { m["income_annum"] = "a lot" }, "income_annum"},
		{"nan loan", func(m map[string]string) { m["loan_amount"] = "NaN" }, "loan_amount"},
		{"infinite term", func(m map[string]string) { m["loan_term"] = "+Inf" }, "loan_term"},
		{"negative assets", func(m map[string]string) { m["bank_asset_value"] = "-5" }, "bank_asset_value"},
		{"missing score", func(m map[string]string) { delete(m, "cibil_score") }, "cibil_score"},
		{"education too long", func(m map[string]string) { m["education"] = strings.Repeat("G", 51) }, "education"},
		{"nul in self employed", func(m map[string]string) { m["self_employed"] = "No\x00" }, "self_employed"},
		{"invalid utf8 education", func(m map[string]string) { m["education"] = "Gradu\xffate" }, "education"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			called := false
			svc := newTestService(store, scoring.Func(func(context.Context, models.FeatureVector) (float64, error) {
				called = true
				return 0.5, nil
			}))

			fields := validFields()
			tt.mut(fields)
			_, err := svc.SubmitAssessment(context.Background(), 1, "Applicant", fields)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.False(t, called, "scorer must not run on invalid input")

			all, err := store.SearchAssessments(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestSubmitAssessment_ApplicantName(t *testing.T) {
	for _, name := range []string{" ", strings.Repeat("x", 101), "Jane\x00", "\xc3\x28"} {
		svc := newTestService(repository.NewMemoryStore(), scoring.Constant(0.5))
		_, err := svc.SubmitAssessment(context.Background(), 1, name, validFields())
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "name %q", name)
		assert.Equal(t, "applicant_name", verr.Field)
	}
}

func TestBuildAssessment_LengthsCountCharacters(t *testing.T) {
	fields := validFields()
	fields["education"] = strings.Repeat("О", 50)
	name := strings.Repeat("Ж", 100)

	a, _, err := BuildAssessment(1, name, fields)
	require.NoError(t, err)
	assert.Equal(t, name, a.ApplicantName)
	assert.Equal(t, fields["education"], a.Education)
}

func TestSubmitAssessment_ScoringErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	tests := []struct {
		name   string
		scorer scoring.Scorer
	}{
		{"scorer error", failingScorer(boom)},
		{"above one", scoring.Constant(1.2)},
		{"negative", scoring.Constant(-0.1)},
		{"nan", scoring.Constant(math.NaN())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			svc := newTestService(store, tt.scorer)

			_, err := svc.SubmitAssessment(context.Background(), 1, "Applicant", validFields())
			var serr *models.ScoringError
			require.ErrorAs(t, err, &serr)

			all, err := store.SearchAssessments(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}

	svc := newTestService(repository.NewMemoryStore(), failingScorer(boom))
	_, err := svc.SubmitAssessment(context.Background(), 1, "Applicant", validFields())
	assert.ErrorIs(t, err, boom)
}

func failingScorer(err error) scoring.Scorer {
	return scoring.Func(func(context.Context, models.FeatureVector) (float64, error) { return 0, err })
}

func TestSubmitAssessment_StoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: repository.NewMemoryStore()}
	svc := newTestService(store, scoring.Constant(0.5))

	a, err := svc.SubmitAssessment(context.Background(), 1, "Applicant", validFields())
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, store.createCalled)
}

func TestRoundProbability(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{0.125, 0.13},
		{0.124999, 0.12},
		{0.995, 1},
		{0.005, 0.01},
		{0.81234, 0.81},
	}
	for _, tt := range tests {
		got := roundProbability(tt.in)
		assert.Equal(t, tt.want, got, "round(%v)", tt.in)
		assert.True(t, got >= 0 && got <= 1)
	}
}

func TestGetAssessment_NotFound(t *testing.T) {
	svc := newTestService(repository.NewMemoryStore(), scoring.Constant(0.5))
	_, err := svc.GetAssessment(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegisterAndLogin(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, scoring.Constant(0.5))
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.Equal(t, models.RoleUser, user.Role)

	token, err := svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "1", claims.Subject)

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "", "x@example.com", "pw")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}
