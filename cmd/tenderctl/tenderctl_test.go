package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/michraz/internal/models"
)

const testLocations = `[
  {"id": "5000", "name": "תל אביב - יפו", "nameEn": "Tel Aviv - Yafo", "lat": 32.0853, "lon": 34.7818},
  {"id": "2200", "name": "דימונה", "nameEn": "Dimona", "lat": 31.0684, "lon": 35.0333},
  {"id": "9999", "name": "", "nameEn": "Nowhere", "lat": null, "lon": null}
]`

const upcomingTender = `[
  {"michraz_id": 1, "michraz_name": "תל אביב בקרוב", "kod_yeshuv": 5000, "shchuna": null, "plots": []}
]`

const completeTenders = `[
  {
    "michraz_id": 2,
    "michraz_name": "דימונה מגרשים",
    "kod_yeshuv": 2200,
    "shchuna": "נווה חורש",
    "plots": [
      {"lot_number": "1", "lot_size": "500", "full_value": "450,000"},
      {"lot_number": "2", "lot_size": "620", "full_value": "520,000"}
    ]
  },
  {"michraz_id": 3, "michraz_name": "ללא מיקום", "kod_yeshuv": 9999, "plots": [{"lot_size": "300", "full_value": "100,000"}]}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--locations", writeFile(t, "locations.json", testLocations)}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestProcess_CompleteTendersFirst(t *testing.T) {
	upcoming := writeFile(t, "upcoming.json", upcomingTender)
	complete := writeFile(t, "complete.json", completeTenders)

	out, _, err := run(t, "process", upcoming, complete)
	require.NoError(t, err)

	var got []models.ProcessedTender
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)

	// Complete tenders move ahead; each group keeps argument order.
	assert.Equal(t, 2, got[0].MichrazID)
	assert.Equal(t, 3, got[1].MichrazID)
	assert.Equal(t, 1, got[2].MichrazID)

	assert.Equal(t, "דימונה", got[0].CityName)
	assert.Equal(t, models.Range{Min: 450000, Max: 520000}, got[0].PriceRange)
	assert.Equal(t, models.Range{Min: 500, Max: 620}, got[0].SizeRange)
	require.NotNil(t, got[0].Coordinates)
	assert.InDelta(t, 31.0684, got[0].Coordinates.Lat, 1e-9)

	assert.Equal(t, "Nowhere", got[1].CityName)
	assert.Nil(t, got[1].Coordinates)
	assert.False(t, got[2].HasLots)
}

func TestProcess_Filters(t *testing.T) {
	upcoming := writeFile(t, "upcoming.json", upcomingTender)
	complete := writeFile(t, "complete.json", completeTenders)

	tests := []struct {
		name string
		args []string
		want []int
	}{
		{
			name: "city",
			args: []string{"--city", "2200"},
			want: []int{2},
		},
		{
			name: "price ceiling keeps tenders without lots",
			args: []string{"--price-max", "200000"},
			want: []int{3, 1},
		},
		{
			name: "size overlap",
			args: []string{"--size-min", "600", "--size-max", "700"},
			want: []int{2, 1},
		},
		{
			name: "zero bound is applied",
			args: []string{"--price-max", "0"},
			want: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"process"}, tt.args...)
			out, _, err := run(t, append(args, upcoming, complete)...)
			require.NoError(t, err)

			var got []models.ProcessedTender
			require.NoError(t, json.Unmarshal([]byte(out), &got))

			ids := make([]int, 0, len(got))
			for _, tender := range got {
				ids = append(ids, tender.MichrazID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProcess_YAML(t *testing.T) {
	complete := writeFile(t, "complete.json", completeTenders)

	out, _, err := run(t, "--format", "yaml", "process", "--city", "2200", complete)

	require.NoError(t, err)
	assert.Contains(t, out, "  michraz_id: 2\n")
	assert.Contains(t, out, "  price_range:\n    min: 450000\n    max: 520000\n")
}

func TestCities(t *testing.T) {
	upcoming := writeFile(t, "upcoming.json", upcomingTender)
	complete := writeFile(t, "complete.json", completeTenders)

	out, _, err := run(t, "cities", upcoming, complete)
	require.NoError(t, err)

	var got []models.CityAggregate
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, 2200, got[0].CityCode)
	assert.Equal(t, 1, got[0].TenderCount)
	assert.Equal(t, 2, got[0].TotalLots)
	assert.Len(t, got[0].Geohash, 6)

	assert.Equal(t, 5000, got[1].CityCode)
	assert.Equal(t, 0, got[1].TotalLots)
}

func TestCities_GeoJSONIgnoresYAMLFormat(t *testing.T) {
	complete := writeFile(t, "complete.json", completeTenders)

	out, _, err := run(t, "-f", "yaml", "cities", "--geojson", complete)
	require.NoError(t, err)

	var got struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "FeatureCollection", got.Type)
	require.Len(t, got.Features, 1)
	assert.Equal(t, "Point", got.Features[0].Geometry.Type)
	assert.InDeltaSlice(t, []float64{35.0333, 31.0684}, got.Features[0].Geometry.Coordinates, 1e-9)
	assert.Equal(t, float64(2200), got.Features[0].Properties["city_code"])
}

func TestValidate(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		complete := writeFile(t, "complete.json", completeTenders)

		out, _, err := run(t, "validate", complete)
		require.NoError(t, err)

		var reports []sourceReport
		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 1)
		assert.True(t, reports[0].Valid)
		assert.Equal(t, 2, reports[0].Tenders)
		assert.Empty(t, reports[0].Error)
	})

	t.Run("reports every source in order", func(t *testing.T) {
		complete := writeFile(t, "complete.json", completeTenders)
		wrongShape := writeFile(t, "object.json", `{"michraz_id": 1}`)
		missing := filepath.Join(t.TempDir(), "missing.json")

		out, _, err := run(t, "validate", wrongShape, complete, missing)
		require.Error(t, err)
		assert.ErrorIs(t, err, errInvalidSources)

		var reports []sourceReport
		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 3)
		assert.Equal(t, wrongShape, reports[0].Source)
		assert.False(t, reports[0].Valid)
		assert.NotEmpty(t, reports[0].Error)
		assert.True(t, reports[1].Valid)
		assert.False(t, reports[2].Valid)
	})

	t.Run("requires a source", func(t *testing.T) {
		_, _, err := run(t, "validate")
		assert.Error(t, err)
	})
}

func TestRoot_Errors(t *testing.T) {
	complete := writeFile(t, "complete.json", completeTenders)

	t.Run("unsupported format", func(t *testing.T) {
		_, stderr, err := run(t, "--format", "xml", "process", complete)
		require.Error(t, err)
		assert.Contains(t, stderr, "unsupported format")
	})

	t.Run("invalid dataset fails process", func(t *testing.T) {
		bad := writeFile(t, "bad.json", `[{"michraz_name": "no id"}]`)
		_, _, err := run(t, "process", complete, bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), bad)
	})
}
