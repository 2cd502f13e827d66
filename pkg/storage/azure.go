package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureSink uploads artifacts to an Azure blob container as PNG blobs
// named <sheetID>_<name>.png.
type AzureSink struct {
	client    *azblob.Client
	account   string
	container string
}

// NewAzureSink creates a blob-backed artifact sink using shared key
// credentials.
func NewAzureSink(accountName, accountKey, container string) (*AzureSink, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureSink{client: client, account: accountName, container: container}, nil
}

// Store uploads the artifact and returns its blob URL.
func (s *AzureSink) Store(ctx context.Context, sheetID, name string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}

	blobName := fmt.Sprintf("%s_%s.png", sheetID, name)
	if _, err := s.client.UploadStream(ctx, s.container, blobName, &buf, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", s.account, s.container, blobName), nil
}
