package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/report"
	"github.com/rxforecaster/backend-go/internal/repository"
	"github.com/rxforecaster/backend-go/internal/storage"
)

// archivePrefix namespaces every archived report in the bucket.
const archivePrefix = "reorder_reports/"

// ErrArchiveDisabled is returned by the archive operations when no
// object storage is configured.
var ErrArchiveDisabled = errors.New("report archive is not configured")

// ErrInvalidArchiveName is returned when an archive name contains path
// separators or traversal sequences.
var ErrInvalidArchiveName = errors.New("invalid archive name")

// ReportService builds reorder reports from bulk forecasts and the drug
// catalog, optionally archiving the CSV rendering to object storage.
type ReportService struct {
	forecasts *ForecastService
	store     repository.Store
	archive   storage.ObjectStorage
}

func NewReportService(forecasts *ForecastService, store repository.Store, archive storage.ObjectStorage) *ReportService {
	return &ReportService{
		forecasts: forecasts,
		store:     store,
		archive:   archive,
	}
}

// ReorderReport forecasts the selected departments (all when empty) and
// assembles the reorder report. Items whose forecast failed are listed
// in the report's failures map instead of a reorder line.
func (s *ReportService) ReorderReport(ctx context.Context, departments []string, riskFilter []domain.RiskLevel, periods int) (*report.Report, error) {
	drugs, err := s.selectDrugs(ctx, departments)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]domain.Drug, len(drugs))
	names := make([]string, 0, len(drugs))
	for _, d := range drugs {
		byName[d.Name] = d
		names = append(names, d.Name)
	}

	results, err := s.forecasts.BulkForecast(ctx, names, periods)
	if err != nil {
		return nil, err
	}

	var entries []report.Entry
	failures := make(map[string]string)
	for name, item := range results {
		if item.Err != nil {
			failures[name] = item.Err.Error()
			continue
		}
		entries = append(entries, report.BuildEntry(byName[name], item.Result))
	}

	out := report.Assemble(entries, periods, riskFilter)
	if len(failures) > 0 {
		out.Failures = failures
	}
	return out, nil
}

// ArchiveCSV uploads the report's CSV rendering under a dated key and
// returns that key.
func (s *ReportService) ArchiveCSV(ctx context.Context, r *report.Report) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}

	payload, err := r.EncodeCSV()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%sreorder_report_%s.csv", archivePrefix, r.GeneratedAt.Format("20060102T150405Z"))
	if err := s.archive.UploadObject(ctx, key, payload); err != nil {
		return "", err
	}
	log.Info().Str("key", key).Int("entries", len(r.Entries)).Msg("reorder report archived")
	return key, nil
}

// ListArchives returns the archived reports stored under the report
// prefix.
func (s *ReportService) ListArchives(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.ListObjects(ctx, archivePrefix)
}

// FetchArchive downloads one archived report to destPath. name is the
// bare object name under the report prefix, never a path.
func (s *ReportService) FetchArchive(ctx context.Context, name, destPath string) error {
	if s.archive == nil {
		return ErrArchiveDisabled
	}
	if !validArchiveName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidArchiveName, name)
	}
	return s.archive.DownloadObject(ctx, archivePrefix+name, destPath)
}

// validArchiveName rejects anything that could escape the archive
// prefix when joined into an object key or a local path.
func validArchiveName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}

func (s *ReportService) selectDrugs(ctx context.Context, departments []string) ([]domain.Drug, error) {
	if len(departments) == 0 {
		return s.store.ListDrugs(ctx, "")
	}
	var drugs []domain.Drug
	for _, dept := range departments {
		batch, err := s.store.ListDrugs(ctx, dept)
		if err != nil {
			return nil, err
		}
		drugs = append(drugs, batch...)
	}
	return drugs, nil
}
