package secret

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"slack-translate-bot/project/domain"
)

// accessor は Secret Manager API のうち本パッケージが使う部分です
type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Manager は Secret Manager を通じてシークレットを取得するクライアントです
type Manager struct {
	client    accessor
	closer    func() error
	projectID string
}

// NewManager は Secret Manager のマネージャーを初期化します
func NewManager(ctx context.Context, projectID string) (*Manager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret manager: クライアント初期化失敗: %w", err)
	}

	return &Manager{
		client:    &gapicAccessor{client: client},
		closer:    client.Close,
		projectID: projectID,
	}, nil
}

// GetSecret は指定されたシークレット名から最新版のシークレット値を取得します
// シークレットが存在しない場合は domain.ErrNotFound をラップして返します
func (m *Manager) GetSecret(ctx context.Context, secretName string) (string, error) {
	// リソース名形式: projects/{project_id}/secrets/{secret_name}/versions/latest
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", m.projectID, secretName)

	result, err := m.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("secret manager: %w (name=%s)", domain.ErrNotFound, secretName)
		}
		return "", fmt.Errorf("secret manager: シークレット取得失敗 (name=%s): %w", secretName, err)
	}

	// ペイロードからシークレット値を抽出
	secret := string(result.GetPayload().GetData())
	if secret == "" {
		return "", fmt.Errorf("secret manager: シークレット値が空です (name=%s): %w", secretName, domain.ErrNotFound)
	}

	return secret, nil
}

// Close は Secret Manager クライアントを閉じます
func (m *Manager) Close() error {
	if m.closer != nil {
		return m.closer()
	}
	return nil
}

// isNotFound は gRPC の NotFound かどうかを判定します
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// gapicAccessor は secretmanager.Client を accessor に適合させます
type gapicAccessor struct {
	client *secretmanager.Client
}

func (a *gapicAccessor) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}
