// Package crypt は、保存データの暗号化機能を提供します。
package crypt

import (
	"errors"

	"github.com/fernet/fernet-go"
)

// ErrDecryption は復号の失敗を表すセンチネルエラーです。
// 暗号文が改ざんされたか、鍵が一致しない場合に返されます。
var ErrDecryption = errors.New("decryption failed: ciphertext tampered or wrong key")

// Codec はFernetトークンによる暗号化・復号を行います。
// Fernetは AES-128-CBC と HMAC-SHA256 を組み合わせた認証付き暗号で、
// 復号時に改ざんを検出できます。
type Codec struct {
	key *fernet.Key
}

// NewCodec は指定された鍵でCodecを作成します。
func NewCodec(key *fernet.Key) *Codec {
	return &Codec{key: key}
}

// Encrypt は平文をFernetトークンに暗号化します。
// 呼び出しごとにランダムなIVが使用されるため、同じ平文でも
// 異なる暗号文が生成されます。
func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	token, err := fernet.EncryptAndSign(plaintext, c.key)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Decrypt はFernetトークンを検証して復号します。
// HMAC検証に失敗した場合はErrDecryptionを返します。
// TTLは使用しません（ローカル保存データに有効期限はないため）。
func (c *Codec) Decrypt(token []byte) ([]byte, error) {
	plaintext := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{c.key})
	if plaintext == nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
