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
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/stockledger/internal/database"
)

// Disk thresholds in GB
const (
	criticalFreeGB = 0.5
	lowFreeGB      = 5.0
)

// DailyMaintenanceJob checks database integrity, truncates the WAL, watches
// free disk space and verifies the newest backup archive.
type DailyMaintenanceJob struct {
	db        *database.DB
	backupDir string
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(db *database.DB, backupDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:        db,
		backupDir: backupDir,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return err
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Not critical; the next checkpoint will catch up.
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if err := j.verifyLatestBackup(); err != nil {
		j.log.Error().Err(err).Msg("Backup verification failed")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")
	return nil
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(filepath.Dir(j.db.Path()))
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < criticalFreeGB {
		j.log.Error().
			Float64("available_gb", availableGB).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: only %.2f GB free", availableGB)
	}
	if availableGB < lowFreeGB {
		j.log.Warn().
			Float64("available_gb", availableGB).
			Msg("Disk space running low")
	}
	return nil
}

func (j *DailyMaintenanceJob) verifyLatestBackup() error {
	entries, err := os.ReadDir(j.backupDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var latest string
	var latestAt time.Time
	for _, e := range entries {
		if at, ok := ParseBackupName(e.Name()); ok && at.After(latestAt) {
			latest, latestAt = e.Name(), at
		}
	}
	if latest == "" {
		j.log.Debug().Msg("No backups to verify")
		return nil
	}

	metadata, err := VerifyArchive(filepath.Join(j.backupDir, latest))
	if err != nil {
		return err
	}
	j.log.Debug().Str("archive", latest).Str("id", metadata.ID).Msg("Backup verified")
	return nil
}

// VerifyArchive reads a backup archive and checks the database copy against
// the checksum recorded in its metadata.
func VerifyArchive(path string) (*BackupMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", filepath.Base(path), err)
	}
	defer gz.Close()

	var metadata *BackupMetadata
	sums := make(map[string]string)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive %s: %w", filepath.Base(path), err)
		}

		if header.Name == metadataFile {
			metadata = &BackupMetadata{}
			if err := json.NewDecoder(tr).Decode(metadata); err != nil {
				return nil, fmt.Errorf("failed to decode backup metadata: %w", err)
			}
			continue
		}
		hash := sha256.New()
		if _, err := io.Copy(hash, tr); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		sums[header.Name] = fmt.Sprintf("sha256:%x", hash.Sum(nil))
	}

	if metadata == nil {
		return nil, fmt.Errorf("archive %s has no metadata", filepath.Base(path))
	}
	got, ok := sums[metadata.Filename]
	if !ok {
		return nil, fmt.Errorf("archive %s is missing %s", filepath.Base(path), metadata.Filename)
	}
	if got != metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch for %s: expected %s, got %s", metadata.Filename, metadata.Checksum, got)
	}
	return metadata, nil
}
