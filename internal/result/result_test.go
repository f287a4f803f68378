package result

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusBlocking(t *testing.T) {
	assert.True(t, StatusFailed.Blocking())
	assert.True(t, StatusError.Blocking())
	assert.False(t, StatusSuccess.Blocking())
	assert.False(t, StatusSkipped.Blocking())
}

func TestResultOk(t *testing.T) {
	assert.True(t, Result{Status: StatusSuccess}.Ok())
	assert.True(t, Result{Status: StatusSkipped}.Ok())
	assert.False(t, Result{Status: StatusFailed}.Ok())
	assert.False(t, Result{Status: StatusError}.Ok())
	assert.False(t, Result{Status: StatusRunning}.Ok())
}

func TestResultCompleted(t *testing.T) {
	assert.True(t, Result{Status: StatusFailed}.Completed())
	assert.True(t, Result{Status: StatusSkipped}.Completed())
	assert.False(t, Result{Status: StatusRunning}.Completed())
	assert.False(t, Result{Status: StatusPending}.Completed())
	assert.False(t, Result{}.Completed())
}

func TestAggregateWorstOf(t *testing.T) {
	sw := NewStopwatch()

	agg := Aggregate("composite", []Result{
		{Name: "a", Status: StatusSuccess},
		{Name: "b", Status: StatusSkipped},
	}, sw)
	assert.Equal(t, StatusSuccess, agg.Status)

	agg = Aggregate("composite", []Result{
		{Name: "a", Status: StatusSuccess},
		{Name: "b", Status: StatusFailed},
	}, sw)
	assert.Equal(t, StatusFailed, agg.Status)

	agg = Aggregate("composite", []Result{
		{Name: "a", Status: StatusFailed},
		{Name: "b", Status: StatusError},
		{Name: "c", Status: StatusSuccess},
	}, sw)
	assert.Equal(t, StatusError, agg.Status)
}

func TestInfoJoinedOnlyAtPresentation(t *testing.T) {
	var r Result
	r.AddInfo("first entry")
	r.AddInfo("")
	r.AddInfo("second entry")

	assert.Equal(t, []string{"first entry", "second entry"}, r.Info)
	assert.Equal(t, "first entry\nsecond entry", r.InfoText())
}

func TestFind(t *testing.T) {
	r := Result{Results: []Result{{Name: "a"}, {Name: "b", Status: StatusFailed}}}

	sub := r.Find("b")
	assert.NotNil(t, sub)
	assert.Equal(t, StatusFailed, sub.Status)
	assert.Nil(t, r.Find("missing"))
}

func TestStopwatch(t *testing.T) {
	sw := NewStopwatch()
	assert.WithinDuration(t, time.Now(), sw.StartTime(), time.Second)
	assert.GreaterOrEqual(t, sw.Elapsed(), time.Duration(0))
}
