package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/ports"
)

// EnvelopeKey is the mutation key holding the ciphertext of an encrypted record.
const EnvelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are old keys tried when decryption with ActiveKey fails.
	// This enables key rotation without rewriting logs.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.LogStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the mutations of every
// record using AES-GCM. Record metadata (ids, revision, hash, flags) stays readable
// so stores can index it and replay can verify continuity.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.LogStore) ports.LogStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Append(ctx context.Context, entityID int, rec domain.Record) error {
	plainText, err := json.Marshal(rec.Mutations)
	if err != nil {
		return fmt.Errorf("failed to marshal mutations: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	rec.Mutations = []map[string]any{{
		EnvelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}}
	return m.next.Append(ctx, entityID, rec)
}

func (m *encryptionMiddleware) Load(ctx context.Context, entityID int) ([]domain.Record, error) {
	recs, err := m.next.Load(ctx, entityID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Record, len(recs))
	for i, rec := range recs {
		muts, err := m.open(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d of entity %d: %v", domain.ErrCorruptLog, i, entityID, err)
		}
		rec.Mutations = muts
		out[i] = rec
	}
	return out, nil
}

// open extracts the mutations of an encrypted record. Plain records are rejected.
func (m *encryptionMiddleware) open(rec domain.Record) ([]map[string]any, error) {
	if len(rec.Mutations) != 1 {
		return nil, errors.New("record is missing encrypted data envelope")
	}
	encryptedStr, ok := rec.Mutations[0][EnvelopeKey].(string)
	if !ok {
		return nil, errors.New("record is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, err
	}

	var muts []map[string]any
	if err := json.Unmarshal(plainText, &muts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted mutations: %w", err)
	}
	return muts, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, entityID int) error {
	return m.next.Delete(ctx, entityID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]int, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
