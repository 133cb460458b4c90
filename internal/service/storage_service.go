package service

import (
	"bytes"
	"context"
	"fmt"

	"edu_assess_backend/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportArchiver writes scored report blobs to long-term storage. The
// database row stays the source of truth; the archive is a cold copy.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, assessmentID string, studentID uint, blob []byte) (string, error)
}

type MinioReportArchiver struct {
	Config *config.Config
	Client *minio.Client
}

func NewMinioReportArchiver(cfg *config.Config) (*MinioReportArchiver, error) {
	client, err := minio.New(cfg.Storage.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.MinioAccessID, cfg.Storage.MinioSecret, ""),
		Secure: cfg.Storage.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioReportArchiver{
		Config: cfg,
		Client: client,
	}, nil
}

// ArchiveReport uploads the report JSON under a deterministic key so a
// re-archive of the same assessment overwrites rather than duplicates.
func (a *MinioReportArchiver) ArchiveReport(ctx context.Context, assessmentID string, studentID uint, blob []byte) (string, error) {
	objectName := fmt.Sprintf("reports/%d/%s.json", studentID, assessmentID)

	_, err := a.Client.PutObject(ctx, a.Config.Storage.MinioBucket, objectName,
		bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to MinIO: %w", err)
	}

	return fmt.Sprintf("/%s/%s", a.Config.Storage.MinioBucket, objectName), nil
}
