package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const (
	rsaPublicPEMType = "RSA PUBLIC KEY"
	pemBegin         = "-----BEGIN " + rsaPublicPEMType + "-----"
	pemEnd           = "-----END " + rsaPublicPEMType + "-----"
)

var ErrInvalidKey = errors.New("invalid device public key")

// WrapPublicKey turns the bare key body reported in eureka_info into a PEM block.
// Input that already carries PEM markers is returned unchanged.
func WrapPublicKey(raw string) []byte {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-----BEGIN ") {
		return []byte(raw)
	}
	return []byte(pemBegin + "\n" + raw + "\n" + pemEnd)
}

// ParsePublicKey parses a device key, PKCS#1 first and PKIX as a fallback.
func ParsePublicKey(raw string) (*rsa.PublicKey, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	block, _ := pem.Decode(WrapPublicKey(raw))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}

	publicKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err == nil {
		return publicKey, nil
	}
	parsed, pkixErr := x509.ParsePKIXPublicKey(block.Bytes)
	if pkixErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	publicKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", ErrInvalidKey, parsed)
	}
	return publicKey, nil
}

// EncryptPassword encrypts password under the device key with RSA PKCS#1 v1.5
// and returns the base64 ciphertext used as enc_passwd.
func EncryptPassword(password, rawKey string) (string, error) {
	publicKey, err := ParsePublicKey(rawKey)
	if err != nil {
		return "", err
	}
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, []byte(password))
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// EncodePublicKey renders key the way devices report it: a PKCS#1 body with
// no PEM markers, wrapped at 64 columns.
func EncodePublicKey(key *rsa.PublicKey) string {
	block := pem.EncodeToMemory(&pem.Block{Type: rsaPublicPEMType, Bytes: x509.MarshalPKCS1PublicKey(key)})
	body := strings.TrimSpace(string(block))
	body = strings.TrimPrefix(body, pemBegin)
	body = strings.TrimSuffix(body, pemEnd)
	return strings.TrimSpace(body)
}

// DecryptPassword reverses EncryptPassword with the device's private key.
func DecryptPassword(encPasswd string, key *rsa.PrivateKey) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encPasswd)
	if err != nil {
		return "", fmt.Errorf("decode enc_passwd: %w", err)
	}
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt enc_passwd: %w", err)
	}
	return string(plaintext), nil
}
