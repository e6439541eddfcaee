package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// GCSStore keeps artifacts as objects under a bucket prefix. An object only
// becomes visible when its writer closes cleanly, so an aborted upload leaves
// the previous generation live.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	log    *logger.Logger
}

func NewGCSStore(client *storage.Client, bucket, prefix string, baseLog *logger.Logger) (*GCSStore, error) {
	if client == nil || strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs artifact store needs a client and bucket: %w", errs.ErrInvalidArgument)
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    baseLog.With("store", "GCSArtifactStore", "bucket", bucket),
	}, nil
}

func (s *GCSStore) key(plantID uuid.UUID) string {
	if s.prefix == "" {
		return objectName(plantID)
	}
	return path.Join(s.prefix, objectName(plantID))
}

func (s *GCSStore) Get(ctx context.Context, plantID uuid.UUID) (*Artifact, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.key(plantID)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errs.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact object: %w", err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact object: %w", err)
	}
	return Decode(raw)
}

func (s *GCSStore) Put(ctx context.Context, a *Artifact) error {
	raw, err := Encode(a)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.key(a.PlantID)).NewWriter(wctx)
	w.ContentType = "application/json"
	if _, err := w.Write(raw); err != nil {
		// cancelling before Close aborts the upload instead of committing a partial object
		cancel()
		_ = w.Close()
		return fmt.Errorf("upload artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, plantID uuid.UUID) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(s.key(plantID)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GCSStore) List(ctx context.Context) ([]Summary, error) {
	q := &storage.Query{}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	var out []Summary
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list artifact objects: %w", err)
		}
		id, ok := plantIDFromName(path.Base(attrs.Name))
		if !ok {
			continue
		}
		a, err := s.Get(ctx, id)
		if err != nil {
			s.log.Warn("Skipping unreadable artifact", "object", attrs.Name, "error", err)
			continue
		}
		out = append(out, a.Summary())
	}
	return out, nil
}
