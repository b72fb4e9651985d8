// Package digest mails administrators a periodic summary of assessments
// with the full export attached.
package digest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-assessment/internal/export"
	"github.com/Dan9191/loan-assessment/internal/models"
)

// AttachmentName is the filename of the CSV attached to each digest
const AttachmentName = "predictions.csv"

const (
	statusColumn = 2
	riskColumn   = 3
)

// Mailer delivers a digest
type Mailer interface {
	SendDigest(to, subject, body string, attachment []byte, filename string) error
}

// Summary counts assessments by outcome
type Summary struct {
	Total    int
	ByStatus map[models.LoanStatus]int
	ByRisk   map[models.RiskLevel]int
}

// Digest builds and sends the assessment digest
type Digest struct {
	projector *export.Projector
	mailer    Mailer
	to        string
	log       *logrus.Logger
	now       func() time.Time
}

// New creates a digest addressed to to
func New(projector *export.Projector, mailer Mailer, to string, log *logrus.Logger) *Digest {
	return &Digest{projector: projector, mailer: mailer, to: to, log: log, now: time.Now}
}

// Run exports every assessment, summarizes it and mails both
func (d *Digest) Run(ctx context.Context) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	summary := Summary{
		ByStatus: make(map[models.LoanStatus]int),
		ByRisk:   make(map[models.RiskLevel]int),
	}

	header := true
	_, err := d.projector.Project(ctx, "", func(row []string) error {
		if header {
			header = false
			return w.Write(row)
		}
		summary.Total++
		summary.ByStatus[models.LoanStatus(row[statusColumn])]++
		summary.ByRisk[models.RiskLevel(row[riskColumn])]++
		return w.Write(row)
	})
	if err != nil {
		return fmt.Errorf("failed to export assessments: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	date := d.now().UTC().Format("2006-01-02")
	subject := fmt.Sprintf("Loan assessment digest %s", date)
	if err := d.mailer.SendDigest(d.to, subject, summary.Text(), buf.Bytes(), AttachmentName); err != nil {
		return err
	}
	d.log.Infof("Digest sent to %s: %d assessments", d.to, summary.Total)
	return nil
}

// Text renders the summary as the plain-text mail body
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assessments: %d\n\n", s.Total)
	for _, status := range []models.LoanStatus{models.StatusApproved, models.StatusRejected} {
		fmt.Fprintf(&b, "%s: %d\n", status, s.ByStatus[status])
	}
	b.WriteString("\n")
	for _, risk := range []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh} {
		fmt.Fprintf(&b, "%s risk: %d\n", risk, s.ByRisk[risk])
	}
	return b.String()
}

// Schedule registers the digest on c. Failures are logged and the next run
// proceeds as scheduled.
func (d *Digest) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if err := d.Run(context.Background()); err != nil {
			d.log.Errorf("Digest failed: %v", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid DIGEST_SCHEDULE %q: %w", spec, err)
	}
	return id, nil
}
