package fingerprint_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource() *fingerprint.StaticSource {
	memory := 8.0
	return &fingerprint.StaticSource{
		Signals: models.DeviceSignals{
			ScreenResolution:    "1920x1080",
			Timezone:            "America/Chicago",
			Language:            "en-US",
			Platform:            "MacIntel",
			UserAgent:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
			ColorDepth:          24,
			HardwareConcurrency: 8,
			DeviceMemory:        &memory,
			TouchSupport:        false,
		},
		Canvas:   "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAMgAAAAyCAYAAAAZUZThAAA",
		Vendor:   "Apple Inc.",
		Renderer: "Apple M1",
	}
}

func TestHash_KnownValues(t *testing.T) {
	assert.Equal(t, "0", fingerprint.Hash(""))
	assert.Equal(t, "2p", fingerprint.Hash("a"))
	assert.Equal(t, "2e9", fingerprint.Hash("ab"))
}

func TestHash_WrapsAt32Bits(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)

	h := fingerprint.Hash(long)

	assert.Equal(t, h, fingerprint.Hash(long))
	assert.LessOrEqual(t, len(h), 7, "a 32-bit magnitude never needs more than 7 base-36 digits")
}

func TestValidHash(t *testing.T) {
	assert.True(t, fingerprint.ValidHash("1x9k2c-zz01"))
	assert.False(t, fingerprint.ValidHash(""))
	assert.False(t, fingerprint.ValidHash("ABC-def"))
	assert.False(t, fingerprint.ValidHash("abc"))
	assert.False(t, fingerprint.ValidHash("abc-def-ghi"))
}

func TestGenerate_DeterministicForIdenticalSignals(t *testing.T) {
	ctx := context.Background()

	first, err := fingerprint.NewGenerator(newTestSource()).Generate(ctx)
	require.NoError(t, err)
	second, err := fingerprint.NewGenerator(newTestSource()).Generate(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.True(t, fingerprint.ValidHash(first.Hash))
	assert.True(t, strings.HasSuffix(first.Hash, "-"+fingerprint.Hash(first.UserAgent)))
}

func TestGenerate_DifferentDevicesDiverge(t *testing.T) {
	ctx := context.Background()
	other := newTestSource()
	other.Signals.ScreenResolution = "2560x1440"

	a, err := fingerprint.NewGenerator(newTestSource()).Generate(ctx)
	require.NoError(t, err)
	b, err := fingerprint.NewGenerator(other).Generate(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestGenerate_CanvasFailureUsesSentinel(t *testing.T) {
	source := newTestSource()
	source.CanvasErr = errors.New("canvas blocked")

	fp, err := fingerprint.NewGenerator(source).Generate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fingerprint.CanvasUnavailable, fp.CanvasHash)
}

func TestGenerate_GPUFailureUsesUnknown(t *testing.T) {
	source := newTestSource()
	source.GPUErr = errors.New("no webgl")

	fp, err := fingerprint.NewGenerator(source).Generate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fingerprint.GPUUnknown, fp.GPUVendor)
	assert.Equal(t, fingerprint.GPUUnknown, fp.GPURenderer)
}

func TestGenerate_CollectFailureIsError(t *testing.T) {
	source := newTestSource()
	source.CollectErr = errors.New("navigator missing")

	fp, err := fingerprint.NewGenerator(source).Generate(context.Background())

	assert.Error(t, err)
	assert.Nil(t, fp)
}

func TestDerive_MatchesGenerate(t *testing.T) {
	fp, err := fingerprint.NewGenerator(newTestSource()).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fp.Hash, fingerprint.Derive(fp.DeviceSignals).Hash)
}

func TestCache_SecondCallIsCacheHit(t *testing.T) {
	ctx := context.Background()
	source := newTestSource()
	cache := fingerprint.NewCache(fingerprint.NewMemoryStorage(), fingerprint.NewGenerator(source))

	first, err := cache.Get(ctx)
	require.NoError(t, err)

	// Signals change, but the session keeps its original fingerprint.
	source.Signals.ScreenResolution = "800x600"
	second, err := cache.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, 1, source.CollectHits)
}

func TestCache_CorruptEntryIsRegenerated(t *testing.T) {
	ctx := context.Background()
	storage := fingerprint.NewMemoryStorage()
	storage.SetItem(fingerprint.CacheKey, "{not json")
	source := newTestSource()
	cache := fingerprint.NewCache(storage, fingerprint.NewGenerator(source))

	fp, err := cache.Get(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, source.CollectHits)
	raw, ok := storage.GetItem(fingerprint.CacheKey)
	require.True(t, ok)
	assert.Contains(t, raw, fp.Hash)
}

func TestRequestSource_IdenticalHeadersIdenticalFingerprint(t *testing.T) {
	build := func() *fingerprint.Generator {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set(fingerprint.HeaderPlatform, `"Linux"`)
		req.Header.Set(fingerprint.HeaderScreenResolution, "1366x768")
		req.Header.Set(fingerprint.HeaderDeviceMemory, "4")
		return fingerprint.NewGenerator(fingerprint.NewRequestSource(req))
	}

	a, err := build().Generate(context.Background())
	require.NoError(t, err)
	b, err := build().Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, "en-US", a.Language)
	assert.Equal(t, "Linux", a.Platform)
	assert.Equal(t, fingerprint.CanvasUnavailable, a.CanvasHash)
	require.NotNil(t, a.DeviceMemory)
	assert.Equal(t, 4.0, *a.DeviceMemory)
}

func TestSessionStore_SweepDropsIdleSessions(t *testing.T) {
	store := fingerprint.NewSessionStore()
	store.Storage("a").SetItem("k", "v")

	assert.Equal(t, 0, store.Sweep(time.Hour))
	assert.Equal(t, 1, store.Len())

	assert.Equal(t, 1, store.Sweep(-time.Second))
	assert.Equal(t, 0, store.Len())
}

func TestContext_RoundTrip(t *testing.T) {
	ctx := fingerprint.NewContext(context.Background(), "abc-def")
	assert.Equal(t, "abc-def", fingerprint.FromContext(ctx))
	assert.Empty(t, fingerprint.FromContext(context.Background()))
}
