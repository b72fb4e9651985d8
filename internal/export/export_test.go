package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-assessment/internal/metrics"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/repository"
)

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	alice := &models.User{Username: "alice", Email: "a@example.com"}
	require.NoError(t, store.CreateUser(ctx, alice))

	for _, a := range []models.Assessment{
		{UserID: alice.ID, LoanAmount: 300000, LoanStatus: models.StatusApproved, RiskLevel: models.RiskLow, Probability: 0.81},
		{UserID: alice.ID, LoanAmount: 1234.5, LoanStatus: models.StatusRejected, RiskLevel: models.RiskHigh, Probability: 0.07},
		{UserID: 99, LoanAmount: 5000, LoanStatus: models.StatusApproved, RiskLevel: models.RiskMedium, Probability: 0},
	} {
		require.NoError(t, store.CreateAssessment(ctx, &a))
	}
	return store
}

func TestRow_Fallbacks(t *testing.T) {
	assert.Equal(t,
		[]string{"N/A", "0", "N/A", "N/A", "0%", "N/A"},
		Row(models.SearchResult{}))

	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("IST", 19800))
	row := Row(models.SearchResult{
		Username: "bob",
		Assessment: models.Assessment{
			LoanAmount:  300000,
			LoanStatus:  models.StatusApproved,
			RiskLevel:   models.RiskMedium,
			Probability: 0.57,
			CreatedAt:   created,
		},
	})
	assert.Equal(t, []string{"bob", "300000", "Approved", "Medium", "57%", "2026-03-03 23:36:07"}, row)
}

func TestFormatPercent(t *testing.T) {
	tests := map[float64]string{
		0:    "0%",
		0.01: "1%",
		0.29: "29%",
		0.57: "57%",
		0.5:  "50%",
		1:    "100%",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatPercent(in), "percent(%v)", in)
	}
}

func TestWriteCSV_RowCountMatchesSearch(t *testing.T) {
	store := seededStore(t)
	p := NewProjector(store, nil)

	for _, filter := range []string{"", "Approved", "alice", "High", "nothing-matches"} {
		t.Run("filter="+filter, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := p.WriteCSV(context.Background(), &buf, filter)
			require.NoError(t, err)

			records, err := csv.NewReader(&buf).ReadAll()
			require.NoError(t, err)
			require.NotEmpty(t, records)
			assert.Equal(t, Header, records[0])

			found, err := store.SearchAssessments(context.Background(), filter)
			require.NoError(t, err)
			assert.Len(t, records[1:], len(found))
			assert.Equal(t, len(found), n)
		})
	}
}

func TestWriteCSV_Content(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewProjector(seededStore(t), nil).WriteCSV(context.Background(), &buf, "")
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"alice", "300000", "Approved", "Low", "81%"}, records[1][:5])
	assert.Equal(t, []string{"alice", "1234.5", "Rejected", "High", "7%"}, records[2][:5])
	assert.Equal(t, []string{"N/A", "5000", "Approved", "Medium", "0%"}, records[3][:5])
	_, err = time.Parse(dateLayout, records[1][5])
	assert.NoError(t, err)
}

func TestWriteCSV_EmptyStoreStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewProjector(repository.NewMemoryStore(), nil).WriteCSV(context.Background(), &buf, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "Username,LoanAmount,Status,Risk,Probability,Date\n", buf.String())
}

func TestProject_StreamsAndStopsOnEmitError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := NewProjector(seededStore(t), m)
	stop := errors.New("client went away")

	var rows [][]string
	n, err := p.Project(context.Background(), "", func(row []string) error {
		rows = append(rows, row)
		if len(rows) == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Zero(t, n)
	assert.Len(t, rows, 2)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ExportedRows))

	n, err = p.Project(context.Background(), "", func([]string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ExportedRows))
}
