package app

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/storage"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/data/repos/testutil"
	"github.com/xwerkax/BloomlyApp/internal/platform/gcp"
)

func TestResolveArtifactStoreModes(t *testing.T) {
	log := testutil.Logger(t)
	ctx := context.Background()
	theDB := testutil.DB(t)

	store, closer, err := resolveArtifactStore(ctx, log, Config{ArtifactStore: ArtifactStoreDB}, theDB)
	if err != nil {
		t.Fatalf("db mode: %v", err)
	}
	if _, ok := store.(*artifacts.DBStore); !ok {
		t.Fatalf("db mode: got %T", store)
	}
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}

	store, _, err = resolveArtifactStore(ctx, log, Config{ArtifactStore: ArtifactStoreFile, ArtifactDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("file mode: %v", err)
	}
	if _, ok := store.(*artifacts.FileStore); !ok {
		t.Fatalf("file mode: got %T", store)
	}

	store, _, err = resolveArtifactStore(ctx, log, Config{ArtifactStore: " Memory "}, nil)
	if err != nil {
		t.Fatalf("memory mode: %v", err)
	}
	if _, ok := store.(*artifacts.MemoryStore); !ok {
		t.Fatalf("memory mode: got %T", store)
	}
}

func TestResolveArtifactStoreBootstrapErrors(t *testing.T) {
	log := testutil.Logger(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  Config
		want ArtifactStoreBootstrapErrorCode
	}{
		{"unknown mode", Config{ArtifactStore: "s3"}, ArtifactStoreBootstrapErrorInvalidMode},
		{"gcs without bucket", Config{ArtifactStore: ArtifactStoreGCS}, ArtifactStoreBootstrapErrorMissingBucket},
		{"file without dir", Config{ArtifactStore: ArtifactStoreFile}, ArtifactStoreBootstrapErrorMissingDir},
		{"db without connection", Config{ArtifactStore: ArtifactStoreDB}, ArtifactStoreBootstrapErrorConnectFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := resolveArtifactStore(ctx, log, c.cfg, nil)
			var got *ArtifactStoreBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected ArtifactStoreBootstrapError, got=%T (%v)", err, err)
			}
			if got.Code != c.want {
				t.Fatalf("code: want=%q got=%q", c.want, got.Code)
			}
		})
	}
}

func TestResolveArtifactStoreGCSConnectFailure(t *testing.T) {
	orig := newStorageClient
	t.Cleanup(func() { newStorageClient = orig })

	srcErr := errors.New("dial refused")
	var gotCfg gcp.StorageConfig
	newStorageClient = func(ctx context.Context, cfg gcp.StorageConfig) (*storage.Client, error) {
		gotCfg = cfg
		return nil, srcErr
	}

	_, _, err := resolveArtifactStore(context.Background(), testutil.Logger(t), Config{
		ArtifactStore:   ArtifactStoreGCS,
		GCSBucket:       "bloomly-models",
		GCSEmulatorHost: "http://fake-gcs:4443",
	}, nil)
	if !errors.Is(err, srcErr) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
	if code := artifactStoreBootstrapErrorCode(err); code != ArtifactStoreBootstrapErrorConnectFailed {
		t.Fatalf("code: %q", code)
	}
	if gotCfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host not passed through: %+v", gotCfg)
	}
}
