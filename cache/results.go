package cache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iamkelllly/fidesops/graph"
)

// StoreAccessResult writes one collection's retrieved rows under the
// request's result key. When the request carries an encryption key the rows
// are sealed at this boundary; the engine core never sees ciphertext.
func StoreAccessResult(ctx context.Context, c Cache, requestID string, addr graph.CollectionAddress, rows []graph.Row, encryptionKey []byte) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding rows for %s: %w", addr, err)
	}
	value := string(payload)
	if len(encryptionKey) > 0 {
		value, err = seal(payload, encryptionKey)
		if err != nil {
			return fmt.Errorf("encrypting rows for %s: %w", addr, err)
		}
	}
	key := ResultKey(requestID, AccessRequestAction, addr.String())
	return c.Set(ctx, key, value, DefaultTTL)
}

// AccessResult reads one collection's rows back, or nil when the node never
// produced output.
func AccessResult(ctx context.Context, c Cache, requestID string, addr graph.CollectionAddress, encryptionKey []byte) ([]graph.Row, error) {
	key := ResultKey(requestID, AccessRequestAction, addr.String())
	value, err := c.Get(ctx, key)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRows(value, encryptionKey)
}

// AllAccessResults assembles every per-collection entry of a request for
// upload, keyed by the full result-store key.
func AllAccessResults(ctx context.Context, c Cache, requestID string, encryptionKey []byte) (map[string][]graph.Row, error) {
	prefix := resultKeyPrefix(requestID, AccessRequestAction)
	keys, err := c.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]graph.Row, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		value, err := c.Get(ctx, key)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows, err := decodeRows(value, encryptionKey)
		if err != nil {
			return nil, err
		}
		out[key] = rows
	}
	return out, nil
}

func decodeRows(value string, encryptionKey []byte) ([]graph.Row, error) {
	payload := []byte(value)
	if len(encryptionKey) > 0 {
		plain, err := open(value, encryptionKey)
		if err != nil {
			return nil, err
		}
		payload = plain
	}
	var rows []graph.Row
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// seal encrypts with AES-GCM and encodes nonce||ciphertext as base64.
func seal(plaintext, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func open(value string, key []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("encrypted value too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
