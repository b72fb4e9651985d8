// Package export renders filtered assessment scans as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-assessment/internal/metrics"
	"github.com/Dan9191/loan-assessment/internal/models"
)

// Header is the first row of every export
var Header = []string{"Username", "LoanAmount", "Status", "Risk", "Probability", "Date"}

const (
	notAvailable = "N/A"
	dateLayout   = "2006-01-02 15:04:05"
)

// Scanner streams assessments matching a filter
type Scanner interface {
	ScanAssessments(ctx context.Context, filter string, fn func(models.SearchResult) error) error
}

// Projector turns a filtered scan into flat rows
type Projector struct {
	store   Scanner
	metrics *metrics.Metrics
}

// NewProjector initializes a new projector
func NewProjector(store Scanner, m *metrics.Metrics) *Projector {
	return &Projector{store: store, metrics: m}
}

// Project emits the header and then one row per matching assessment, in scan
// order, as the scan produces them. It returns the number of data rows.
func (p *Projector) Project(ctx context.Context, filter string, emit func([]string) error) (int, error) {
	if err := emit(Header); err != nil {
		return 0, err
	}
	n := 0
	err := p.store.ScanAssessments(ctx, filter, func(res models.SearchResult) error {
		if err := emit(Row(res)); err != nil {
			return err
		}
		n++
		return nil
	})
	p.metrics.AddExportedRows(n)
	return n, err
}

// WriteCSV writes the projection to w
func (p *Projector) WriteCSV(ctx context.Context, w io.Writer, filter string) (int, error) {
	cw := csv.NewWriter(w)
	n, err := p.Project(ctx, filter, cw.Write)
	if err != nil {
		return n, fmt.Errorf("failed to export assessments: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("failed to write export: %w", err)
	}
	return n, nil
}

// Row projects one search result. Absent values fall back to "N/A", "0" and
// "0%"; dates are rendered in UTC.
func Row(res models.SearchResult) []string {
	a := res.Assessment
	return []string{
		orNA(res.Username),
		formatAmount(a.LoanAmount),
		orNA(string(a.LoanStatus)),
		orNA(string(a.RiskLevel)),
		formatPercent(a.Probability),
		formatDate(a),
	}
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func formatAmount(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return decimal.NewFromFloat(v).String()
}

func formatPercent(p float64) string {
	if p == 0 || math.IsNaN(p) {
		return "0%"
	}
	return strconv.Itoa(int(math.Round(p*100))) + "%"
}

func formatDate(a models.Assessment) string {
	if a.CreatedAt.IsZero() {
		return notAvailable
	}
	return a.CreatedAt.UTC().Format(dateLayout)
}
