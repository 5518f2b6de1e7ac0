package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxforecaster/backend-go/internal/report"
	"github.com/rxforecaster/backend-go/internal/storage"
)

// fakeArchive is an in-memory ObjectStorage for archive tests.
type fakeArchive struct {
	objects map[string][]byte

	listPrefix   string
	downloadKeys []string
}

var _ storage.ObjectStorage = (*fakeArchive)(nil)

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string][]byte{}}
}

func (a *fakeArchive) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	a.listPrefix = prefix
	var infos []storage.ObjectInfo
	for key, data := range a.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return infos, nil
}

func (a *fakeArchive) DownloadObject(_ context.Context, key string, destPath string) error {
	a.downloadKeys = append(a.downloadKeys, key)
	data, ok := a.objects[key]
	if !ok {
		return os.ErrNotExist
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (a *fakeArchive) UploadObject(_ context.Context, key string, data []byte) error {
	a.objects[key] = data
	return nil
}

func emptyReport() *report.Report {
	return &report.Report{
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Periods:     14,
	}
}

func TestArchiveCSVUploadsUnderReportPrefix(t *testing.T) {
	archive := newFakeArchive()
	svc := NewReportService(nil, nil, archive)

	key, err := svc.ArchiveCSV(context.Background(), emptyReport())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "reorder_reports/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, ".csv"), "key %q", key)
	assert.Contains(t, key, "20250601T120000Z")

	payload, ok := archive.objects[key]
	require.True(t, ok)
	assert.Contains(t, string(payload), "drug_name")
}

func TestListArchivesUsesReportPrefix(t *testing.T) {
	archive := newFakeArchive()
	archive.objects["reorder_reports/reorder_report_20250601T120000Z.csv"] = []byte("a")
	archive.objects["unrelated/other.csv"] = []byte("b")
	svc := NewReportService(nil, nil, archive)

	infos, err := svc.ListArchives(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "reorder_reports/", archive.listPrefix)
	require.Len(t, infos, 1)
	assert.Equal(t, "reorder_reports/reorder_report_20250601T120000Z.csv", infos[0].Key)
}

func TestFetchArchiveDownloadsNamedObject(t *testing.T) {
	archive := newFakeArchive()
	archive.objects["reorder_reports/report.csv"] = []byte("drug_name\n")
	svc := NewReportService(nil, nil, archive)

	dest := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, svc.FetchArchive(context.Background(), "report.csv", dest))

	assert.Equal(t, []string{"reorder_reports/report.csv"}, archive.downloadKeys)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "drug_name\n", string(data))
}

func TestFetchArchiveRejectsPathTraversal(t *testing.T) {
	archive := newFakeArchive()
	svc := NewReportService(nil, nil, archive)

	for _, name := range []string{"", "a/b.csv", `a\b.csv`, "..report.csv", "../../etc/passwd"} {
		err := svc.FetchArchive(context.Background(), name, filepath.Join(t.TempDir(), "out"))
		assert.ErrorIs(t, err, ErrInvalidArchiveName, "name %q", name)
	}
	assert.Empty(t, archive.downloadKeys)
}

func TestArchiveOperationsWithoutStorage(t *testing.T) {
	svc := NewReportService(nil, nil, nil)

	_, err := svc.ArchiveCSV(context.Background(), emptyReport())
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	_, err = svc.ListArchives(context.Background())
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	err = svc.FetchArchive(context.Background(), "report.csv", filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
