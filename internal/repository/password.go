package repository

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// 旧系统的 scrypt 哈希格式：<hex(key)>.<hex salt>，salt 字符串本身作为盐
const legacyKeyLen = 64

// HashPassword 生成 bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 校验密码，兼容旧的 scrypt 哈希
func VerifyPassword(stored, password string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return verifyLegacy(stored, password)
}

// IsLegacyHash 是否旧格式哈希
func IsLegacyHash(stored string) bool {
	return !strings.HasPrefix(stored, "$2") && strings.Contains(stored, ".")
}

func verifyLegacy(stored, password string) bool {
	keyHex, salt, ok := strings.Cut(stored, ".")
	if !ok || salt == "" {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != legacyKeyLen {
		return false
	}
	// Node 默认参数 N=16384, r=8, p=1
	got, err := scrypt.Key([]byte(password), []byte(salt), 16384, 8, 1, legacyKeyLen)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, got) == 1
}
