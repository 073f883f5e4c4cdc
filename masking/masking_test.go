package masking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSecrets serves canned secrets keyed by type, standing in for the
// request cache.
type fixedSecrets map[SecretType]string

func (s fixedSecrets) MaskingSecret(ctx context.Context, requestID, strategy string, typ SecretType) (string, error) {
	v, ok := s[typ]
	if !ok {
		return "", ErrSecretMissing
	}
	return v, nil
}

func TestHashMaskSHA256(t *testing.T) {
	s, err := Get(HashStrategy, nil, fixedSecrets{SecretSalt: "adobo"})
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "monkey", "123")
	require.NoError(t, err)
	assert.Equal(t, "1c015e801323afa54bde5e4d510809e6b5f14ad9b9961c48cbd7143106b6e596", out)
}

func TestHashMaskSHA512(t *testing.T) {
	cfg := map[string]interface{}{"algorithm": "SHA-512"}
	s, err := Get(HashStrategy, cfg, fixedSecrets{SecretSalt: "adobo"})
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "monkey", "123")
	require.NoError(t, err)
	assert.Equal(t, "527ca44f5c95400d161c503e6ddad7be01941ec9e7a03c2201338a16ba8a36bb765a430bd6b276a590661154f3f743a3a91efecd056645b4ea13b4b8cf39e8e3", out)
}

func TestHashMaskRejectsUnknownAlgorithm(t *testing.T) {
	_, err := Get(HashStrategy, map[string]interface{}{"algorithm": "MD5"}, nil)
	require.Error(t, err)
}

func TestHashMaskNilPassesThrough(t *testing.T) {
	s, err := Get(HashStrategy, nil, fixedSecrets{SecretSalt: "adobo"})
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), nil, "123")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestHashMaskMissingSecretFails(t *testing.T) {
	s, err := Get(HashStrategy, nil, fixedSecrets{})
	require.NoError(t, err)

	_, err = s.Mask(context.TODO(), "monkey", "123")
	require.ErrorIs(t, err, ErrSecretMissing)
}

func TestHashMaskEphemeralWithoutRequest(t *testing.T) {
	// no request id means standalone masking with a generated salt
	s, err := Get(HashStrategy, nil, nil)
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "monkey", "")
	require.NoError(t, err)
	assert.Len(t, out, 64)
}

func TestHMACMask(t *testing.T) {
	s, err := Get(HMACStrategy, nil, fixedSecrets{SecretKey: "test_key", SecretSalt: "test_salt"})
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "monkey", "123")
	require.NoError(t, err)
	assert.Equal(t, "2fd170f8e8ed3b92be238121dbe2e7098d1ccb025a98d14f58a4fe5525f86895", out)
}

func TestNullRewrite(t *testing.T) {
	s, err := Get(NullRewriteStrategy, nil, nil)
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "anything", "123")
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.True(t, s.DataTypeSupported("integer"))
	assert.Empty(t, s.SecretMetas())
}

func TestStringRewrite(t *testing.T) {
	cfg := map[string]interface{}{"rewrite_value": "MASKED"}
	s, err := Get(StringRewriteStrategy, cfg, nil)
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "original", "123")
	require.NoError(t, err)
	assert.Equal(t, "MASKED", out)

	_, err = Get(StringRewriteStrategy, nil, nil)
	require.Error(t, err)
}

func TestRandomStringRewriteLength(t *testing.T) {
	cfg := map[string]interface{}{"length": 10}
	s, err := Get(RandomStringRewriteStrategy, cfg, nil)
	require.NoError(t, err)

	out, err := s.Mask(context.TODO(), "original", "123")
	require.NoError(t, err)
	assert.Len(t, out, 10)

	again, err := s.Mask(context.TODO(), "original", "123")
	require.NoError(t, err)
	assert.NotEqual(t, out, again)
}

func TestGetUnregistered(t *testing.T) {
	_, err := Get("no_such_strategy", nil, nil)
	require.ErrorIs(t, err, ErrStrategyNotRegistered)
}

func TestBuildSecrets(t *testing.T) {
	hashS, err := Get(HashStrategy, nil, nil)
	require.NoError(t, err)
	hmacS, err := Get(HMACStrategy, nil, nil)
	require.NoError(t, err)

	secrets, err := BuildSecrets([]Strategy{hashS, hmacS})
	require.NoError(t, err)
	require.Len(t, secrets, 3)

	kinds := make(map[string][]SecretType)
	for _, s := range secrets {
		assert.NotEmpty(t, s.Secret)
		kinds[s.Strategy] = append(kinds[s.Strategy], s.Type)
	}
	assert.Equal(t, []SecretType{SecretSalt}, kinds[HashStrategy])
	assert.ElementsMatch(t, []SecretType{SecretKey, SecretSalt}, kinds[HMACStrategy])
}

func TestStrategiesRegistered(t *testing.T) {
	for _, name := range []string{HashStrategy, HMACStrategy, NullRewriteStrategy, StringRewriteStrategy, RandomStringRewriteStrategy} {
		assert.True(t, IsRegistered(name), name)
	}
}
