// Package crypt は、保存データの暗号化機能を提供します。
package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

// 鍵ファイルのパラメータ
const (
	keyFileName  = ".tudu_key"
	saltFileName = ".tudu_salt"

	masterKeyLen = 32 // マスター鍵の長さ（バイト）
	saltLen      = 16 // ソルトの長さ（バイト）

	// PBKDF2の反復回数。導出結果はインストールごとに固定されるため、
	// 起動時に一度だけ計算される。
	pbkdf2Iterations = 480000

	keyFileMode = 0600 // 所有者のみ読み書き可能
	dataDirMode = 0700
)

// KeyLoadError は鍵ファイルの読み込み失敗を表すエラーです。
// 鍵は再構築できないため、このエラーからの自動回復はありません。
type KeyLoadError struct {
	File string // 問題のあったファイルのパス
	Err  error  // 原因
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("failed to load encryption key from %s: %v", e.File, e.Err)
}

func (e *KeyLoadError) Unwrap() error {
	return e.Err
}

// LoadOrCreateKey はデータディレクトリから暗号鍵を読み込みます。
// 初回起動時はマスター鍵とソルトを生成してファイルに保存します。
// 返される鍵は、マスター鍵とソルトからPBKDF2で導出したFernet鍵です。
func LoadOrCreateKey(dataDir string) (*fernet.Key, error) {
	// データディレクトリの作成（存在しない場合）
	if err := os.MkdirAll(dataDir, dataDirMode); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// マスター鍵の読み込みまたは生成
	masterKey, err := loadOrCreateSecret(filepath.Join(dataDir, keyFileName), masterKeyLen)
	if err != nil {
		return nil, err
	}

	// ソルトの読み込みまたは生成
	salt, err := loadOrCreateSecret(filepath.Join(dataDir, saltFileName), saltLen)
	if err != nil {
		return nil, err
	}

	// PBKDF2でFernet鍵を導出
	derived := pbkdf2.Key(masterKey, salt, pbkdf2Iterations, 32, sha256.New)
	var key fernet.Key
	copy(key[:], derived)
	return &key, nil
}

// loadOrCreateSecret は指定されたパスから秘密情報を読み込みます。
// ファイルが存在しない場合は暗号論的乱数で生成し、0600で保存します。
func loadOrCreateSecret(path string, length int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		// 構造の検証：期待する長さと一致しなければ破損とみなす
		if len(data) != length {
			return nil, &KeyLoadError{File: path, Err: fmt.Errorf("unexpected length %d, want %d", len(data), length)}
		}
		if err := ensureOwnerOnly(path); err != nil {
			return nil, &KeyLoadError{File: path, Err: err}
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, &KeyLoadError{File: path, Err: err}
	}

	// 初回起動：新しい秘密情報を生成
	data = make([]byte, length)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	if err := os.WriteFile(path, data, keyFileMode); err != nil {
		return nil, &KeyLoadError{File: path, Err: err}
	}
	if err := ensureOwnerOnly(path); err != nil {
		return nil, &KeyLoadError{File: path, Err: err}
	}
	return data, nil
}

// ensureOwnerOnly はファイルの権限を所有者のみに制限します。
// Windowsではパーミッションの概念が異なるため検証をスキップします。
func ensureOwnerOnly(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 == 0 {
		return nil
	}
	return os.Chmod(path, keyFileMode)
}
