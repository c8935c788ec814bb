package incident

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSubjectKeyDistinguishesHTTPAndMetricSubjects(t *testing.T) {
	httpID := uuid.New()
	metricID := uuid.New()

	httpSubject := Subject{ClientID: uuid.New(), HTTPTargetID: &httpID}
	metricSubject := Subject{ClientID: uuid.New(), MetricInstanceID: &metricID}

	assert.NotEqual(t, httpSubject.Key(), metricSubject.Key())
	assert.Equal(t, "http_target:"+httpID.String(), httpSubject.Key())
	assert.Equal(t, "metric_instance:"+metricID.String(), metricSubject.Key())
}

func TestSubjectKeyIsStableForSameID(t *testing.T) {
	id := uuid.New()
	s1 := Subject{HTTPTargetID: &id}
	s2 := Subject{HTTPTargetID: &id}
	assert.Equal(t, s1.Key(), s2.Key())
}

func TestSubjectKindLabel(t *testing.T) {
	httpID := uuid.New()
	metricID := uuid.New()
	assert.Equal(t, "http_target", Subject{HTTPTargetID: &httpID}.kindLabel())
	assert.Equal(t, "metric_instance", Subject{MetricInstanceID: &metricID}.kindLabel())
}
