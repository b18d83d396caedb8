// Package config はアプリケーション設定を管理します。
package config

import (
	"os"
	"path/filepath"
)

// Config はアプリケーション全体の設定を保持します。
type Config struct {
	// データディレクトリのパス（鍵ファイルとデータベースの保存先）
	DataDir string
}

// NewConfig は環境変数から設定を読み込み、Configインスタンスを生成します。
func NewConfig() *Config {
	// データディレクトリの設定
	dataDir := os.Getenv("TUDU_DATA_DIR")
	if dataDir == "" {
		// OSごとのユーザーデータディレクトリを使用
		base, err := os.UserConfigDir()
		if err != nil {
			// ホームも取得できない環境ではカレントディレクトリ配下に置く
			base = "."
		}
		dataDir = filepath.Join(base, "tudu")
	}

	return &Config{
		DataDir: dataDir,
	}
}
