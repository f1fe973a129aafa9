package firestore

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreClient Firestore接続のラッパー。プロセスで一度だけ生成して使い回す
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient 新しいFirestoreクライアントを作成
// GOOGLE_APPLICATION_CREDENTIALSのファイルがあればそれを使い、
// 無ければ実行環境のデフォルト認証に任せる
func NewFirestoreClient(ctx context.Context, projectID string) (*FirestoreClient, error) {
	credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err == nil {
			log.Printf("📄 Using credentials file: %s", credentialsFile)
			client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
			if err != nil {
				return nil, fmt.Errorf("Firestoreクライアントの初期化に失敗: %w", err)
			}
			return &FirestoreClient{client: client}, nil
		}
		log.Printf("⚠️ Credentials file not found: %s, falling back to default authentication", credentialsFile)
	}

	log.Printf("☁️ Using default authentication for project: %s", projectID)
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの初期化に失敗: %w", err)
	}
	return &FirestoreClient{client: client}, nil
}

// Close 接続を閉じる
func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

// GetClient 内部のFirestoreクライアントを取得
func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
