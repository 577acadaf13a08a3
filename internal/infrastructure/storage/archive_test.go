package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalArchive_RoundTrip(t *testing.T) {
	archive := NewLocalArchive(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	content := []byte("workbook bytes")
	require.NoError(t, archive.Save(ctx, "reports/rep1/q1.xlsx", content))

	assert.True(t, archive.Exists(ctx, "reports/rep1/q1.xlsx"))

	got, err := archive.Read(ctx, "reports/rep1/q1.xlsx")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, archive.Delete(ctx, "reports/rep1/q1.xlsx"))
	assert.False(t, archive.Exists(ctx, "reports/rep1/q1.xlsx"))

	// Deleting again is a no-op.
	assert.NoError(t, archive.Delete(ctx, "reports/rep1/q1.xlsx"))
}

func TestLocalArchive_RejectsEscapingPaths(t *testing.T) {
	archive := NewLocalArchive(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	err := archive.Save(ctx, "../outside.xlsx", []byte("x"))
	assert.Error(t, err)

	_, err = archive.Read(ctx, "../../etc/passwd")
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"Q1 travel", "Q1_travel"},
		{"../../evil", "evil"},
		{"trip/to\\berlin", "triptoberlin"},
		{"report-2024_final.xlsx", "report-2024_final.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, SafeName(tt.in), tt.in)
	}
}
