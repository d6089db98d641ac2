package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
	"github.com/noah-isme/gema-points-api/pkg/export"
)

type statementStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type statementLedgerRepository interface {
	ListEvents(ctx context.Context, filter models.PointEventFilter) ([]models.PointEvent, int, error)
	Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error)
}

type statementStoreRepository interface {
	ListRedemptions(ctx context.Context, filter models.RedemptionFilter) ([]models.Redemption, int, error)
}

// StatementFormat selects the rendered output of a statement.
type StatementFormat string

const (
	StatementFormatCSV StatementFormat = "csv"
	StatementFormatPDF StatementFormat = "pdf"
)

// Statement is a rendered point statement ready to be served as a download.
type Statement struct {
	FileName    string
	ContentType string
	Content     []byte
}

// statementPageSize bounds the number of ledger rows pulled per query.
const statementPageSize = 200

// StatementService renders a student's full point history as CSV or PDF.
type StatementService struct {
	students statementStudentRepository
	ledger   statementLedgerRepository
	store    statementStoreRepository
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewStatementService constructs a StatementService.
func NewStatementService(students statementStudentRepository, ledger statementLedgerRepository, store statementStoreRepository, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementService{
		students: students,
		ledger:   ledger,
		store:    store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Render builds the statement for a student over an optional date range.
func (s *StatementService) Render(ctx context.Context, studentID string, from, to *time.Time, format StatementFormat) (*Statement, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	events, err := s.collectEvents(ctx, studentID, from, to)
	if err != nil {
		return nil, err
	}
	redemptions, err := s.collectRedemptions(ctx, studentID)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Balance(ctx, nil, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute balance")
	}

	now := time.Now().UTC()
	rows := buildStatementRows(events, redemptions, from, to)
	data := export.Dataset{
		Title:       fmt.Sprintf("Point Statement for %s", student.FullName),
		GeneratedAt: now,
		Headers:     []string{"Date", "Type", "Points", "Description"},
		Rows:        rows,
		RightAlign:  []string{"Points"},
	}
	data.Rows = append(data.Rows, map[string]string{
		"Date":        "",
		"Type":        "BALANCE",
		"Points":      strconv.Itoa(balance),
		"Description": "current balance",
	})

	generatedAt := now.Format("20060102")
	switch format {
	case StatementFormatPDF:
		content, err := s.pdf.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf statement")
		}
		return &Statement{
			FileName:    fmt.Sprintf("statement_%s_%s.pdf", student.ID, generatedAt),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	case StatementFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv statement")
		}
		return &Statement{
			FileName:    fmt.Sprintf("statement_%s_%s.csv", student.ID, generatedAt),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported statement format")
	}
}

func (s *StatementService) collectEvents(ctx context.Context, studentID string, from, to *time.Time) ([]models.PointEvent, error) {
	var all []models.PointEvent
	for page := 1; ; page++ {
		events, total, err := s.ledger.ListEvents(ctx, models.PointEventFilter{
			StudentID: studentID,
			DateFrom:  from,
			DateTo:    to,
			Page:      page,
			PageSize:  statementPageSize,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list point events")
		}
		all = append(all, events...)
		if len(all) >= total || len(events) == 0 {
			break
		}
	}
	return all, nil
}

func (s *StatementService) collectRedemptions(ctx context.Context, studentID string) ([]models.Redemption, error) {
	var all []models.Redemption
	for page := 1; ; page++ {
		redemptions, total, err := s.store.ListRedemptions(ctx, models.RedemptionFilter{
			StudentID: studentID,
			Page:      page,
			PageSize:  statementPageSize,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list redemptions")
		}
		all = append(all, redemptions...)
		if len(all) >= total || len(redemptions) == 0 {
			break
		}
	}
	return all, nil
}

type statementLine struct {
	at          time.Time
	kind        string
	points      int
	description string
}

func buildStatementRows(events []models.PointEvent, redemptions []models.Redemption, from, to *time.Time) []map[string]string {
	lines := make([]statementLine, 0, len(events)+len(redemptions))
	for _, e := range events {
		kind := "AWARD"
		if e.Delta < 0 {
			kind = "DEDUCTION"
		}
		lines = append(lines, statementLine{at: e.EventTime, kind: kind, points: e.Delta, description: e.Note})
	}
	for _, r := range redemptions {
		if from != nil && r.RedeemedAt.Before(*from) {
			continue
		}
		if to != nil && r.RedeemedAt.After(*to) {
			continue
		}
		lines = append(lines, statementLine{
			at:          r.RedeemedAt,
			kind:        "REDEMPTION",
			points:      -r.CostAtTx,
			description: fmt.Sprintf("store item %s", r.ItemID),
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].at.Before(lines[j].at) })

	rows := make([]map[string]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, map[string]string{
			"Date":        line.at.UTC().Format(time.RFC3339),
			"Type":        line.kind,
			"Points":      strconv.Itoa(line.points),
			"Description": line.description,
		})
	}
	return rows
}
