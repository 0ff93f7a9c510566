package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ==================== 报文加密编解码器 ====================

// 部分平台（migros-yemek）要求请求/响应体整体加密后装入
// {"value": "<密文>"} 信封。算法约定：AES-256-CBC + PKCS#7，
// 密钥 = SHA256(平台下发的共享密钥)，IV 随机生成并拼在密文前，
// 最终做一次标准 Base64。
// 本包只做字节变换，对订单/菜单语义一无所知。

// DecodeError 解密失败（密钥错误、密文损坏、填充非法）
// 解不开的报文重试毫无意义，调用方必须按不可重试错误处理
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("报文解密失败: %s", e.Reason)
}

// deriveKey 由共享密钥派生 AES-256 密钥
// 平台下发的密钥是任意长度的不透明字符串，统一过一遍 SHA256
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Encode 加密明文并编码为信封载荷
func Encode(plaintext []byte, secret string) (string, error) {
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("初始化加密器失败: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)

	// IV 随机，拼在密文前；同一明文每次加密结果不同
	buf := make([]byte, aes.BlockSize+len(padded))
	iv := buf[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("生成 IV 失败: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decode 解码信封载荷并解密出明文
func Decode(envelope string, secret string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, &DecodeError{Reason: "base64 解码失败"}
	}
	if len(raw) < aes.BlockSize*2 || len(raw)%aes.BlockSize != 0 {
		return nil, &DecodeError{Reason: "密文长度非法"}
	}

	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}

	iv := raw[:aes.BlockSize]
	body := raw[aes.BlockSize:]

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}
	return unpadded, nil
}

// ==================== PKCS#7 填充 ====================

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("填充长度非法")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("填充字节非法")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("填充内容非法")
		}
	}
	return data[:len(data)-n], nil
}
