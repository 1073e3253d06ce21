package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/events"
)

const (
	backupPrefix      = "stockledger-backup-"
	backupSuffix      = ".tar.gz"
	backupTimeLayout  = "2006-01-02-150405"
	metadataFile      = "backup-metadata.json"
	minBackupsToKeep  = 3
	backupFormatMajor = "1"
)

// RemoteStore is an off-site location for backup archives
type RemoteStore interface {
	Upload(ctx context.Context, name string, body io.Reader) error
	List(ctx context.Context) ([]BackupInfo, error)
	Delete(ctx context.Context, name string) error
}

// BackupMetadata is written into every archive next to the database copy
type BackupMetadata struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Format    string    `json:"format"`
	Database  string    `json:"database"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// BackupInfo describes one archive, local or remote
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
	Location  string    `json:"location"`
}

// BackupResult is returned by CreateBackup
type BackupResult struct {
	Metadata BackupMetadata `json:"metadata"`
	Archive  string         `json:"archive"`
	Uploaded bool           `json:"uploaded"`
	Duration string         `json:"duration"`
}

// BackupService snapshots the ledger into compressed archives
type BackupService struct {
	db            *database.DB
	dir           string
	retentionDays int
	remote        RemoteStore
	events        EventEmitter
	now           func() time.Time
	log           zerolog.Logger
}

// NewBackupService creates a backup service writing archives to dir.
// remote may be nil to keep backups local only.
func NewBackupService(db *database.DB, dir string, retentionDays int, remote RemoteStore, emitter EventEmitter, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:            db,
		dir:           dir,
		retentionDays: retentionDays,
		remote:        remote,
		events:        emitter,
		now:           time.Now,
		log:           log.With().Str("service", "backup").Logger(),
	}
}

// CreateBackup copies the database with VACUUM INTO, archives it with a
// checksum manifest, uploads it when a remote store is configured and then
// rotates old archives.
func (s *BackupService) CreateBackup(ctx context.Context) (*BackupResult, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	stagingDir, err := os.MkdirTemp(s.dir, "staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	dbFile := s.db.Name() + ".db"
	dbPath := filepath.Join(stagingDir, dbFile)
	if err := s.db.BackupTo(ctx, dbPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat database copy: %w", err)
	}
	checksum, err := fileChecksum(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	stamp := s.now().UTC()
	metadata := BackupMetadata{
		ID:        uuid.NewString(),
		Timestamp: stamp,
		Format:    backupFormatMajor,
		Database:  s.db.Name(),
		Filename:  dbFile,
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}
	if err := writeMetadata(filepath.Join(stagingDir, metadataFile), metadata); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := backupPrefix + stamp.Format(backupTimeLayout) + backupSuffix
	archivePath := filepath.Join(s.dir, archiveName)
	if err := createArchive(archivePath, stagingDir, []string{dbFile, metadataFile}); err != nil {
		_ = os.Remove(archivePath)
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	result := &BackupResult{Metadata: metadata, Archive: archiveName}

	if s.remote != nil {
		if err := s.upload(ctx, archivePath, archiveName); err != nil {
			// The local archive is still good; report the upload failure.
			return nil, err
		}
		result.Uploaded = true
	}

	if err := s.Rotate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	duration := time.Since(startTime)
	result.Duration = duration.String()
	s.log.Info().
		Dur("duration_ms", duration).
		Str("archive", archiveName).
		Int64("size_bytes", metadata.SizeBytes).
		Bool("uploaded", result.Uploaded).
		Msg("Backup completed successfully")

	if s.events != nil {
		s.events.Emit(events.BackupCompleted, "reliability", map[string]interface{}{
			"archive":  archiveName,
			"checksum": checksum,
			"uploaded": result.Uploaded,
		})
	}
	return result, nil
}

func (s *BackupService) upload(ctx context.Context, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if err := s.remote.Upload(ctx, name, f); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	return nil
}

// ListBackups returns local archives and, when configured, remote ones,
// newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	backups, err := s.listLocal()
	if err != nil {
		return nil, err
	}
	if s.remote != nil {
		remote, err := s.remote.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list remote backups: %w", err)
		}
		backups = append(backups, remote...)
	}
	sortNewestFirst(backups)
	return backups, nil
}

func (s *BackupService) listLocal() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stamp, ok := ParseBackupName(entry.Name())
		if !ok {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Timestamp: stamp,
			SizeBytes: size,
			AgeHours:  int64(now.Sub(stamp).Hours()),
			Location:  "local",
		})
	}
	sortNewestFirst(backups)
	return backups, nil
}

// Rotate deletes archives older than the retention period, always keeping
// the newest three. Retention 0 keeps everything.
func (s *BackupService) Rotate(ctx context.Context) error {
	local, err := s.listLocal()
	if err != nil {
		return err
	}
	deleted := 0
	for _, b := range Expired(local, s.retentionDays, s.now()) {
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.log.Error().Err(err).Str("filename", b.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	if s.remote != nil {
		remote, err := s.remote.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list remote backups: %w", err)
		}
		for _, b := range Expired(remote, s.retentionDays, s.now()) {
			if err := s.remote.Delete(ctx, b.Filename); err != nil {
				s.log.Error().Err(err).Str("filename", b.Filename).Msg("Failed to delete old remote backup")
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("Backup rotation completed")
	}
	return nil
}

// Expired picks the backups that rotation should delete
func Expired(backups []BackupInfo, retentionDays int, now time.Time) []BackupInfo {
	if retentionDays <= 0 || len(backups) <= minBackupsToKeep {
		return nil
	}
	sorted := append([]BackupInfo(nil), backups...)
	sortNewestFirst(sorted)

	cutoff := now.AddDate(0, 0, -retentionDays)
	var out []BackupInfo
	for _, b := range sorted[minBackupsToKeep:] {
		if b.Timestamp.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

// ParseBackupName extracts the timestamp from an archive name such as
// stockledger-backup-2024-06-01-020000.tar.gz
func ParseBackupName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sortNewestFirst(backups []BackupInfo) {
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, names []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, name := range names {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}
	return archiveFile.Sync()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}

// BackupJob runs CreateBackup on the maintenance schedule
type BackupJob struct {
	service *BackupService
	timeout time.Duration
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service, timeout: 30 * time.Minute}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.service.CreateBackup(ctx)
	return err
}
