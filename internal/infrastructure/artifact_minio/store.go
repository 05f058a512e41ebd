package artifact_minio

import (
	"context"
	"fmt"
	"os"

	"github.com/dchurbanov/dag-reporter/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store mirrors captured screenshots into an object-storage bucket so
// reports survive the local artifacts directory.
type Store struct {
	client *minio.Client
	bucket string
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

func NewWithClient(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Upload puts the artifact under <dagID>/<name> and returns the key.
func (s *Store) Upload(ctx context.Context, dagID string, a domain.Artifact) (string, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := ObjectKey(dagID, a)
	_, err = s.client.PutObject(ctx, s.bucket, key, f, st.Size(),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func ObjectKey(dagID string, a domain.Artifact) string {
	return dagID + "/" + a.Name
}
