package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

func TestRegistryDetectPicksBundle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewBundleAdapter()))
	require.NoError(t, r.Register(NewRegistrarAdapter()))

	data, err := NewBundleAdapter().FormatExport(sampleGraph(), ExportOptions{InstitutionShortName: "nvcc", GeneratedAt: time.Now()})
	require.NoError(t, err)

	a, err := r.Detect(File{Name: "nvcc.zip", Content: data})
	require.NoError(t, err)
	require.Equal(t, BundleAdapterID, a.Metadata().ID)
}

func TestRegistryDetectNoMatchCarriesReasons(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewBundleAdapter()))
	require.NoError(t, r.Register(NewRegistrarAdapter()))

	_, err := r.Detect(File{Name: "notes.txt", Content: []byte("plain text")})
	require.Error(t, err)
	var noMatch *NoMatchError
	require.ErrorAs(t, err, &noMatch)
	require.Len(t, noMatch.Attempts, 2)
	for _, attempt := range noMatch.Attempts {
		require.NotEmpty(t, attempt.AdapterID)
		require.NotEmpty(t, attempt.Reason)
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewBundleAdapter()))
	require.Error(t, r.Register(NewBundleAdapter()))
}

func TestRegistryListAvailable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewBundleAdapter()))
	require.NoError(t, r.Register(NewRegistrarAdapter()))

	list := r.ListAvailable()
	require.Len(t, list, 2)
	require.True(t, list[0].Bidirectional)
	require.False(t, list[1].Bidirectional)
	require.Contains(t, list[1].Kinds, models.KindCourseOutcome)
}
