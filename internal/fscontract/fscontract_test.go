package fscontract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

func TestNormalizeManifestHashStripsPrefixAndIsIdempotent(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc123", NormalizeManifestHash("sha256:abc123"))
	require.Equal(t, "abc123", NormalizeManifestHash("abc123"))
	require.Equal(t, "abc123", NormalizeManifestHash(NormalizeManifestHash("sha256:abc123")))
}

func TestPathDerivationIsPureFunction(t *testing.T) {
	t.Parallel()

	l := NewLayout("/base")
	p1 := l.ManifestPath("prod", "orders", "abc1234", "abc1234fullhash")
	p2 := l.ManifestPath("prod", "orders", "abc1234", "abc1234fullhash")
	require.Equal(t, p1, p2)
	require.Equal(t, "/base/build/pipelines/prod/orders/abc1234-abc1234fullhash/manifest.yaml", p1)
}

func TestRunIndexWriterRejectsColonInHash(t *testing.T) {
	t.Parallel()

	layout := NewLayout(t.TempDir())
	w := NewRunIndexWriter(layout)

	err := w.Append(model.RunRecord{ManifestHash: "sha256:abc", PipelineSlug: "orders"})
	var idxErr *streamyerrors.IndexError
	require.ErrorAs(t, err, &idxErr)
	require.Equal(t, "InvalidHashFormat", idxErr.Code)
}

func TestRunIndexAppendAndFindPrevious(t *testing.T) {
	t.Parallel()

	layout := NewLayout(t.TempDir())
	w := NewRunIndexWriter(layout)
	r := NewRunIndexReader(layout)

	hash := "abc123def456"
	first := model.RunRecord{
		RunID: "run-1", PipelineSlug: "orders", ManifestHash: hash,
		Status: model.RunCompleted, EndedAt: time.Now().Add(-time.Hour),
	}
	second := model.RunRecord{
		RunID: "run-2", PipelineSlug: "orders", ManifestHash: hash,
		Status: model.RunCompleted, EndedAt: time.Now(),
	}

	require.NoError(t, w.Append(first))
	require.NoError(t, w.Append(second))

	prev, err := r.FindPrevious(hash, "run-2")
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, "run-1", prev.RunID)

	prev, err = r.FindPrevious(hash, "run-1")
	require.NoError(t, err)
	require.Equal(t, "run-2", prev.RunID)
}

func TestFindPreviousReturnsNilWhenNoPriorRun(t *testing.T) {
	t.Parallel()

	layout := NewLayout(t.TempDir())
	r := NewRunIndexReader(layout)

	prev, err := r.FindPrevious("abc123", "run-1")
	require.NoError(t, err)
	require.Nil(t, prev)
}

func TestLatestPointerRoundTrip(t *testing.T) {
	t.Parallel()

	layout := NewLayout(t.TempDir())
	require.NoError(t, WriteLatestPointer(layout, "orders", "abc1234", "abc1234fullhash"))

	short, hash, ok := ReadLatestPointer(layout, "orders")
	require.True(t, ok)
	require.Equal(t, "abc1234", short)
	require.Equal(t, "abc1234fullhash", hash)
}
