package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, provider, publicDomain string) *Store {
	t.Helper()
	// No network traffic happens at construction time.
	s, err := New(context.Background(),
		"localhost:9000", "eu-central-1", "access", "secret", false,
		provider, publicDomain,
	)
	require.NoError(t, err)
	return s
}

func TestPublicURLDomainOverrideWins(t *testing.T) {
	s := newStore(t, ProviderS3, "reports.example.com")

	url := s.PublicURL("repo-analyzer", "eu-central-1", "reports/a.json")
	assert.Equal(t, "https://reports.example.com/reports/a.json", url)
}

func TestPublicURLProviderPatterns(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{ProviderS3, "https://repo-analyzer.s3.eu-central-1.amazonaws.com/reports/a.json"},
		{ProviderR2, "https://repo-analyzer.eu-central-1.r2.cloudflarestorage.com/reports/a.json"},
		{ProviderMinio, "http://localhost:9000/repo-analyzer/reports/a.json"},
	}

	for _, tc := range tests {
		t.Run(tc.provider, func(t *testing.T) {
			s := newStore(t, tc.provider, "")
			assert.Equal(t, tc.want, s.PublicURL("repo-analyzer", "eu-central-1", "reports/a.json"))
		})
	}
}

func TestPublicURLIsDeterministic(t *testing.T) {
	s := newStore(t, ProviderS3, "")

	first := s.PublicURL("b", "r", "k")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.PublicURL("b", "r", "k"))
	}
}
