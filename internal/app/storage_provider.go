package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/platform/gcp"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

const (
	ArtifactStoreDB     = "db"
	ArtifactStoreFile   = "file"
	ArtifactStoreGCS    = "gcs"
	ArtifactStoreMemory = "memory"
)

var newStorageClient = gcp.NewStorageClient

type ArtifactStoreBootstrapErrorCode string

const (
	ArtifactStoreBootstrapErrorInvalidMode   ArtifactStoreBootstrapErrorCode = "invalid_mode"
	ArtifactStoreBootstrapErrorMissingBucket ArtifactStoreBootstrapErrorCode = "missing_bucket"
	ArtifactStoreBootstrapErrorMissingDir    ArtifactStoreBootstrapErrorCode = "missing_dir"
	ArtifactStoreBootstrapErrorConnectFailed ArtifactStoreBootstrapErrorCode = "connect_failed"
)

type ArtifactStoreBootstrapError struct {
	Code  ArtifactStoreBootstrapErrorCode
	Mode  string
	Cause error
}

func (e *ArtifactStoreBootstrapError) Error() string {
	if e == nil {
		return "artifact store bootstrap failed"
	}
	return fmt.Sprintf("artifact store bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *ArtifactStoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveArtifactStore picks the model artifact backend from ARTIFACT_STORE.
// The returned closer releases the GCS client; it is a no-op for other modes.
func resolveArtifactStore(ctx context.Context, log *logger.Logger, cfg Config, theDB *gorm.DB) (artifacts.Store, func() error, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.ArtifactStore))
	noop := func() error { return nil }
	log.Info("Selecting artifact store", "mode", mode)

	switch mode {
	case ArtifactStoreDB, "":
		if theDB == nil {
			return nil, noop, &ArtifactStoreBootstrapError{Code: ArtifactStoreBootstrapErrorConnectFailed, Mode: mode, Cause: errors.New("database not initialized")}
		}
		return artifacts.NewDBStore(theDB, log), noop, nil

	case ArtifactStoreMemory:
		return artifacts.NewMemoryStore(), noop, nil

	case ArtifactStoreFile:
		if strings.TrimSpace(cfg.ArtifactDir) == "" {
			return nil, noop, &ArtifactStoreBootstrapError{Code: ArtifactStoreBootstrapErrorMissingDir, Mode: mode, Cause: errors.New("ARTIFACT_DIR is empty")}
		}
		store, err := artifacts.NewFileStore(cfg.ArtifactDir, log)
		if err != nil {
			return nil, noop, &ArtifactStoreBootstrapError{Code: ArtifactStoreBootstrapErrorConnectFailed, Mode: mode, Cause: err}
		}
		return store, noop, nil

	case ArtifactStoreGCS:
		if strings.TrimSpace(cfg.GCSBucket) == "" {
			return nil, noop, &ArtifactStoreBootstrapError{Code: ArtifactStoreBootstrapErrorMissingBucket, Mode: mode, Cause: errors.New("GCS_BUCKET is empty")}
		}
		client, err := newStorageClient(ctx, gcp.StorageConfig{
			Credentials:  cfg.GCSCredentials,
			EmulatorHost: cfg.GCSEmulatorHost,
		})
		if err != nil {
			log.Error("Artifact store bootstrap failed", "mode", mode, "bucket", cfg.GCSBucket, "error", err)
			return nil, noop, &ArtifactStoreBootstrapError{Code: ArtifactStoreBootstrapErrorConnectFailed, Mode: mode, Cause: err}
		}
		store, err := artifacts.NewGCSStore(client, cfg.GCSBucket, cfg.GCSPrefix, log)
		if err != nil {
			_ = client.Close()
			return nil, noop, &ArtifactStoreBootstrapError{Code: ArtifactStoreBootstrapErrorConnectFailed, Mode: mode, Cause: err}
		}
		return store, closeStorageClient(client), nil
	}

	err := &ArtifactStoreBootstrapError{
		Code:  ArtifactStoreBootstrapErrorInvalidMode,
		Mode:  mode,
		Cause: fmt.Errorf("unsupported artifact store %q", mode),
	}
	log.Error("Artifact store selection failed", "mode", mode, "error_code", err.Code)
	return nil, noop, err
}

func closeStorageClient(c *storage.Client) func() error {
	return func() error { return c.Close() }
}

func artifactStoreBootstrapErrorCode(err error) ArtifactStoreBootstrapErrorCode {
	var bootstrapErr *ArtifactStoreBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return ArtifactStoreBootstrapErrorConnectFailed
}
