package cluster

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bxcodec/faker"
	"github.com/jenkins-x-apps/jacoco-go/internal/analysis"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/report/xml"
	jenkinsv1 "github.com/jenkins-x/jx/pkg/apis/jenkins.io/v1"
	jenkinsclientv1 "github.com/jenkins-x/jx/pkg/client/clientset/versioned/typed/jenkins.io/v1"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
)

var dummyFact = &jenkinsv1.Fact{
	Spec: jenkinsv1.FactSpec{},
}

type mockFactInterface struct {
	createCount int
	createErr   func(count int) error
}

func (m *mockFactInterface) Facts(namespace string) jenkinsclientv1.FactInterface {
	return m
}

func (m *mockFactInterface) Create(*jenkinsv1.Fact) (*jenkinsv1.Fact, error) {
	m.createCount++
	if m.createErr != nil {
		return nil, m.createErr(m.createCount)
	}
	if m.createCount < 3 {
		return nil, errors.New("dummy error")
	}
	return nil, nil
}

func (m *mockFactInterface) Update(*jenkinsv1.Fact) (*jenkinsv1.Fact, error) {
	return nil, nil
}

func (m *mockFactInterface) Delete(name string, options *meta_v1.DeleteOptions) error {
	return nil
}

func (m *mockFactInterface) DeleteCollection(options *meta_v1.DeleteOptions, listOptions meta_v1.ListOptions) error {
	return nil
}

func (m *mockFactInterface) Get(name string, options meta_v1.GetOptions) (*jenkinsv1.Fact, error) {
	return nil, nil
}

func (m *mockFactInterface) List(opts meta_v1.ListOptions) (*jenkinsv1.FactList, error) {
	return nil, errors.New("not implemented")
}

func (m *mockFactInterface) Watch(opts meta_v1.ListOptions) (watch.Interface, error) {
	return nil, errors.New("not implemented")
}

func (m *mockFactInterface) Patch(name string, pt types.PatchType, data []byte, subresources ...string) (result *jenkinsv1.Fact, err error) {
	return nil, errors.New("not implemented")
}

type stubConfig struct{}

func (stubConfig) Namespace() string      { return "jx" }
func (stubConfig) DataFile() string       { return "jacoco.db" }
func (stubConfig) DefinitionsDir() string { return "does-not-exist" }
func (stubConfig) Includes() []string     { return nil }
func (stubConfig) Excludes() []string     { return []string{"org/generated/**"} }
func (stubConfig) Workers() int           { return 2 }
func (stubConfig) ReportName() string     { return "pipeline" }

func TestUpdatePipelineUpdateOperationIsRetried(t *testing.T) {
	mock := &mockFactInterface{}
	handler := defaultEventHandler{}
	err := handler.storeFact(dummyFact, mock)
	assert.NoError(t, err)
	assert.Equal(t, 3, mock.createCount, "Expected get to be called 3 times")
}

func TestStoreFactAcceptsExistingFact(t *testing.T) {
	mock := &mockFactInterface{createErr: func(int) error {
		return k8serrors.NewAlreadyExists(schema.GroupResource{Group: "jenkins.io", Resource: "facts"}, "jacoco-coverage-x")
	}}
	handler := defaultEventHandler{}
	assert.NoError(t, handler.storeFact(dummyFact, mock))
	assert.Equal(t, 1, mock.createCount)
}

func TestCreateFact(t *testing.T) {
	pipelineActivity := getFakePipelineActivity(t)
	report := xml.Report{
		Counters: []xml.Counter{
			{
				Type:    "INSTRUCTION",
				Missed:  10,
				Covered: 90,
			},
		},
	}

	url := "http://dummy"

	handler := defaultEventHandler{}
	fact := handler.createFact(report, pipelineActivity, url)

	expectedName := fmt.Sprintf("%s-%s-%s", appName, jenkinsv1.FactTypeCoverage, pipelineActivity.Name)
	assert.Equal(t, expectedName, fact.Spec.Name)
	assert.Equal(t, url, fact.Spec.Original.URL)
	assert.Equal(t, jenkinsv1.FactTypeCoverage, fact.Spec.FactType)
	assert.Equal(t, pipelineActivity.UID, fact.Spec.SubjectReference.UID)
	assert.Len(t, fact.Spec.Measurements, 3)
	assert.Contains(t, fact.Spec.Measurements, jenkinsv1.Measurement{Name: "Instructions-Covered", MeasurementType: jenkinsv1.MeasurementCount, MeasurementValue: 90})
	assert.Contains(t, fact.Spec.Measurements, jenkinsv1.Measurement{Name: "Instructions-Missed", MeasurementType: jenkinsv1.MeasurementCount, MeasurementValue: 10})
	assert.Contains(t, fact.Spec.Measurements, jenkinsv1.Measurement{Name: "Instructions-Total", MeasurementType: jenkinsv1.MeasurementCount, MeasurementValue: 100})
}

func TestSplitURLs(t *testing.T) {
	definitions, dumps := splitURLs([]string{
		"gs://bucket/classes.yaml",
		"http://host/jacoco.json",
		"http://host/more.YML",
		"s3://bucket/exec.json",
	})
	assert.Equal(t, []string{"gs://bucket/classes.yaml", "http://host/more.YML"}, definitions)
	assert.Equal(t, []string{"http://host/jacoco.json", "s3://bucket/exec.json"}, dumps)
}

func TestWithTimestamp(t *testing.T) {
	assert.True(t, strings.HasPrefix(withTimestamp("http://host/a.json"), "http://host/a.json?version="))
	assert.True(t, strings.HasPrefix(withTimestamp("http://host/a.json?x=1"), "http://host/a.json?x=1&version="))
}

func TestAnalyze(t *testing.T) {
	h, err := NewEventHandler(nil, stubConfig{})
	require.NoError(t, err)
	handler := h.(*defaultEventHandler)

	definitions := []analysis.ClassDefinition{
		{
			ID: 1, Name: "org/example/Covered", Package: "org/example", ProbeCount: 1,
			Methods: []analysis.MethodDefinition{{Name: "run", Desc: "()V", Instructions: []analysis.Instruction{{Line: 3, Probes: []int{0}}}}},
		},
		{
			ID: 2, Name: "org/generated/Skipped", Package: "org/generated", ProbeCount: 1,
			Methods: []analysis.MethodDefinition{{Name: "run", Desc: "()V", Instructions: []analysis.Instruction{{Line: 3, Probes: []int{0}}}}},
		},
	}
	store := data.NewStore()
	require.NoError(t, store.Put(data.ExecutionRecord{ID: definitions[0].Identity(), Probes: []bool{true}}))
	sessions := data.NewSessionInfoStore()
	sessions.Add(data.SessionInfo{ID: "s1", Start: time.Unix(1, 0), Dump: time.Unix(2, 0)})

	report, err := handler.analyze(context.Background(), definitions, store, sessions)
	require.NoError(t, err)

	assert.Equal(t, "pipeline", report.Name)
	require.Len(t, report.Packages, 1)
	assert.Equal(t, "org/example", report.Packages[0].Name)
	classes, ok := report.Counter("CLASS")
	require.True(t, ok)
	assert.Equal(t, xml.Counter{Type: "CLASS", Missed: 0, Covered: 1}, classes)
	assert.Len(t, report.SessionInfo, 1)
}

// GetFakePipelineActivity returns a PipelineActivity with fake data
func getFakePipelineActivity(t *testing.T) *jenkinsv1.PipelineActivity {
	activity := &jenkinsv1.PipelineActivity{}
	err := faker.FakeData(activity)
	if err != nil {
		t.Fatalf("Unable to mock CRDModel: %s", err)
	}
	return activity
}
