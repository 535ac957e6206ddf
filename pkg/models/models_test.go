package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckResult_Broken(t *testing.T) {
	tests := []struct {
		name   string
		result CheckResult
		want   bool
	}{
		{"OK", CheckResult{StatusCode: 200}, false},
		{"Redirect", CheckResult{StatusCode: 301}, false},
		{"NotFound", CheckResult{StatusCode: 404}, true},
		{"ServerError", CheckResult{StatusCode: 503}, true},
		{"BoundaryBelow", CheckResult{StatusCode: 399}, false},
		{"BoundaryAt", CheckResult{StatusCode: 400}, true},
		{"TransportFailure", CheckResult{Err: errors.New("connection refused")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Broken())
		})
	}
}

func TestCheckDBEntry_ToResult(t *testing.T) {
	ok := CheckDBEntry{StatusCode: 200, CheckedAt: time.Now().UTC()}
	res := ok.ToResult("https://example.com/a")
	assert.Equal(t, "https://example.com/a", res.URL)
	assert.NoError(t, res.Err)
	assert.False(t, res.Broken())

	failed := CheckDBEntry{Error: "dial tcp: connection refused", ErrorType: "Network_ConnectionRefused"}
	res = failed.ToResult("https://down.example.com")
	require.Error(t, res.Err)
	assert.Equal(t, "dial tcp: connection refused", res.Err.Error())
	assert.True(t, res.Broken())
}

func TestCheckDBEntry_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(CheckDBEntry{StatusCode: 301, CheckedAt: time.Now().UTC()})
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, `"status_code":301`)
	assert.NotContains(t, raw, "error")
}

func TestRunSummary_AddError(t *testing.T) {
	var s RunSummary
	s.AddError("HTTP_404")
	s.AddError("HTTP_404")
	s.AddError("Network_Timeout")

	assert.Equal(t, map[string]int{"HTTP_404": 2, "Network_Timeout": 1}, s.ErrorCategories)
}

func TestRunSummary_Duration(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s := RunSummary{StartTime: start}
	assert.Zero(t, s.Duration())

	s.EndTime = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, s.Duration())
}

func TestFlag(t *testing.T) {
	assert.Equal(t, "ON", Flag(true))
	assert.Equal(t, "OFF", Flag(false))
}

func TestLinkType(t *testing.T) {
	assert.True(t, LinkTypeInternal.IsValid())
	assert.True(t, LinkTypeExternal.IsValid())
	assert.False(t, LinkType("mixed").IsValid())
	assert.Equal(t, "unset", LinkType("").String())
	assert.Equal(t, "image", LinkKindImage.String())
}
