package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperationMetricsStats(t *testing.T) {
	var om OperationMetrics
	for i := 10; i >= 1; i-- {
		om.Record(time.Duration(i)*time.Millisecond, outcomeSuccess)
	}
	om.Record(100*time.Millisecond, outcomeConflict)
	om.Record(200*time.Millisecond, outcomeError)

	assert.EqualValues(t, 12, om.Total)
	assert.EqualValues(t, 10, om.Success)
	assert.EqualValues(t, 1, om.Conflict)
	assert.EqualValues(t, 1, om.Error)

	st := om.Stats()
	assert.Equal(t, time.Millisecond, st.Min)
	assert.Equal(t, 200*time.Millisecond, st.Max)
	assert.Equal(t, 7*time.Millisecond, st.P50)
	assert.Equal(t, 200*time.Millisecond, st.P95)
	assert.Equal(t, 355*time.Millisecond/12, st.Avg)
}

func TestOperationMetricsEmpty(t *testing.T) {
	var om OperationMetrics
	assert.Equal(t, latencyStats{}, om.Stats())

	var buf bytes.Buffer
	om.report(&buf, "Booking")
	assert.Empty(t, buf.String())
}

func TestReportSeparatesConflicts(t *testing.T) {
	var om OperationMetrics
	om.Record(time.Millisecond, outcomeSuccess)
	om.Record(time.Millisecond, outcomeConflict)

	var buf bytes.Buffer
	om.report(&buf, "Booking")
	assert.Contains(t, buf.String(), "Conflicts: 1 (50.0%)")
	assert.NotContains(t, buf.String(), "Errors:")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, outcomeSuccess, classify(201, 201))
	assert.Equal(t, outcomeConflict, classify(409, 201))
	assert.Equal(t, outcomeConflict, classify(422, 200))
	assert.Equal(t, outcomeError, classify(500, 200))
	assert.Equal(t, outcomeError, classify(404, 200))
}
