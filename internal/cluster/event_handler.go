package cluster

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jenkins-x-apps/jacoco-go/internal/analysis"
	"github.com/jenkins-x-apps/jacoco-go/internal/config"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/jenkins-x-apps/jacoco-go/internal/report/xml"
	"github.com/jenkins-x-apps/jacoco-go/internal/retrieval"
	"github.com/jenkins-x-apps/jacoco-go/internal/util"
	jenkinsv1 "github.com/jenkins-x/jx/pkg/apis/jenkins.io/v1"
	jenkinsv1client "github.com/jenkins-x/jx/pkg/client/clientset/versioned"
	jenkinsv1types "github.com/jenkins-x/jx/pkg/client/clientset/versioned/typed/jenkins.io/v1"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/tools/cache"
)

const (
	// SyncPeriod is the cache sync period.
	SyncPeriod = time.Minute * 10
	resource   = "pipelineactivities"
	appName    = "jacoco"
)

var (
	logger = logging.AppLogger().WithFields(log.Fields{"component": "event-handler"})
)

// HandlerConfig is the configuration the event handler needs.
type HandlerConfig interface {
	config.JXConfig
	config.DataConfig
	config.FilterConfig

	// ReportName returns the name of the analyzed bundle.
	ReportName() string
}

// EventHandler defines the callback functions for CRD changes
type EventHandler interface {
	// Add is called when a CRD is created.
	Add(new interface{})

	// Update is called when a CRD is updated.
	Update(old interface{}, new interface{})

	// Delete is called when a CRD is deleted.
	Delete(obj interface{})

	// Start starts the event handler passing it a done channel.
	Start(done chan struct{})
}

type defaultEventHandler struct {
	jxClient    jenkinsv1client.Interface
	config      HandlerConfig
	filter      *analysis.Filter
	definitions []analysis.ClassDefinition
}

// NewEventHandler creates a new event handler using the JX REST client.
// Class definitions found in the configured definitions directory are used for
// every pipeline activity in addition to definitions attached to the activity.
func NewEventHandler(jxClient jenkinsv1client.Interface, config HandlerConfig) (EventHandler, error) {
	filter, err := analysis.NewFilter(config.Includes(), config.Excludes())
	if err != nil {
		return nil, err
	}

	var definitions []analysis.ClassDefinition
	if _, err := os.Stat(config.DefinitionsDir()); err == nil {
		definitions, err = analysis.LoadDefinitionsDir(config.DefinitionsDir())
		if err != nil {
			return nil, err
		}
		logger.Infof("loaded %d class definitions from %s", len(definitions), config.DefinitionsDir())
	}
	return &defaultEventHandler{jxClient: jxClient, config: config, filter: filter, definitions: definitions}, nil
}

func (h *defaultEventHandler) Add(obj interface{}) {
	h.onPipelineActivity(obj)
}

func (h *defaultEventHandler) Update(oldObj interface{}, newObj interface{}) {
	h.onPipelineActivity(newObj)
}

func (h *defaultEventHandler) Delete(obj interface{}) {

}

func (h *defaultEventHandler) Start(done chan struct{}) {
	listWatch := cache.NewListWatchFromClient(h.jxClient.JenkinsV1().RESTClient(),
		resource,
		h.config.Namespace(),
		fields.Everything())

	handlerFuncs := cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			h.Add(obj)
		},
		UpdateFunc: func(old, new interface{}) {
			h.Update(old, new)
		},
		DeleteFunc: func(obj interface{}) {
		},
	}
	_, controller := cache.NewInformer(listWatch, &jenkinsv1.PipelineActivity{}, SyncPeriod, handlerFuncs)

	controller.Run(done)
}

func (h *defaultEventHandler) onPipelineActivity(obj interface{}) {
	pipelineActivity, ok := obj.(*jenkinsv1.PipelineActivity)
	if !ok {
		logger.Warnf("unexpected type %T", obj)
		return
	}

	logger.Debugf("processing pipeline activity '%s'", pipelineActivity.Name)
	var urls []string
	for _, attachment := range pipelineActivity.Spec.Attachments {
		if attachment.Name == appName {
			urls = append(urls, attachment.URLs...)
		}
	}
	definitionURLs, dumpURLs := splitURLs(urls)
	if len(dumpURLs) == 0 {
		return
	}

	definitions := append([]analysis.ClassDefinition(nil), h.definitions...)
	for _, url := range definitionURLs {
		defs, err := retrieval.RetrieveDefinitions(h.config.Namespace(), withTimestamp(url))
		if err != nil {
			logger.Errorf("unable to retrieve class definitions from %s: %s", url, err)
			continue
		}
		definitions = append(definitions, defs...)
	}

	store := data.NewStore()
	sessions := data.NewSessionInfoStore()
	timestamped := make([]string, len(dumpURLs))
	for i, url := range dumpURLs {
		//  append version string to dump URL to avoid any caching issues when retrieving the dump
		timestamped[i] = withTimestamp(url)
	}
	if retrieval.RetrieveAll(h.config.Namespace(), timestamped, store, sessions) == 0 {
		return
	}

	report, err := h.analyze(context.Background(), definitions, store, sessions)
	if err != nil {
		logger.Errorf("unable to analyze execution data of %s: %s", pipelineActivity.Name, err)
		return
	}

	factsInterface := h.jxClient.JenkinsV1().Facts(h.config.Namespace())
	fact := h.createFact(report, pipelineActivity, dumpURLs[0])
	err = h.storeFact(fact, factsInterface)
	if err != nil {
		logger.Errorf("error storing Fact %s: %s", fact.Spec.Name, err)
	} else {
		logger.Infof("successfully stored JaCoCo fact '%s' for execution data from %s", fact.Spec.Name, fact.Spec.Original.URL)
	}
}

// splitURLs separates YAML class definition documents from execution data dumps.
func splitURLs(urls []string) (definitions []string, dumps []string) {
	for _, url := range urls {
		if util.Contains(analysis.DefinitionExtensions, strings.ToLower(path.Ext(url))) {
			definitions = append(definitions, url)
		} else {
			dumps = append(dumps, url)
		}
	}
	return definitions, dumps
}

func withTimestamp(url string) string {
	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%sversion=%d", url, separator, time.Now().UnixNano()/int64(time.Millisecond))
}

// analyze builds the coverage report of the merged execution data.
func (h *defaultEventHandler) analyze(ctx context.Context, definitions []analysis.ClassDefinition, store *data.Store, sessions *data.SessionInfoStore) (xml.Report, error) {
	analyzer := analysis.NewAnalyzer(store, analysis.WithFilter(h.filter), analysis.WithWorkers(h.config.Workers()))
	builder := analysis.NewCoverageBuilder()
	failures, err := analyzer.AnalyzeAll(ctx, definitions, builder)
	if err != nil {
		return xml.Report{}, err
	}
	if len(failures) > 0 {
		logger.Warnf("%d classes could not be analyzed", len(failures))
	}
	return xml.Build(builder.Bundle(h.config.ReportName()), sessions.Infos())
}

func (h *defaultEventHandler) storeFact(fact *jenkinsv1.Fact, factsInterface jenkinsv1types.FactInterface) error {
	f := func() error {
		_, err := factsInterface.Create(fact)
		if err != nil {
			switch err.(type) {
			case *errors.StatusError:
				status := err.(*errors.StatusError)
				if status.ErrStatus.Reason == metav1.StatusReasonAlreadyExists {
					logger.Debugf("fact with name '%s' already existed", fact.Name)
					return nil
				}
				return err
			default:
				return err
			}
		}
		return nil
	}
	return pkgerrors.Wrapf(util.ApplyWithBackoff(f), "unable to create fact %s", fact.Name)
}

func (h *defaultEventHandler) createFact(report xml.Report, pipelineActivity *jenkinsv1.PipelineActivity, url string) *jenkinsv1.Fact {
	measurements := make([]jenkinsv1.Measurement, 0)
	for _, c := range report.Counters {
		t := ""
		switch c.Type {
		case "INSTRUCTION":
			t = jenkinsv1.CodeCoverageCountTypeInstructions
		case "LINE":
			t = jenkinsv1.CodeCoverageCountTypeLines
		case "METHOD":
			t = jenkinsv1.CodeCoverageCountTypeMethods
		case "COMPLEXITY":
			t = jenkinsv1.CodeCoverageCountTypeComplexity
		case "BRANCH":
			t = jenkinsv1.CodeCoverageCountTypeBranches
		case "CLASS":
			t = jenkinsv1.CodeCoverageCountTypeClasses
		}
		measurementCovered := h.createMeasurement(t, jenkinsv1.CodeCoverageMeasurementCoverage, c.Covered)
		measurementMissed := h.createMeasurement(t, jenkinsv1.CodeCoverageMeasurementMissed, c.Missed)
		measurementTotal := h.createMeasurement(t, jenkinsv1.CodeCoverageMeasurementTotal, c.Covered+c.Missed)
		measurements = append(measurements, measurementCovered, measurementMissed, measurementTotal)
	}

	name := fmt.Sprintf("%s-%s-%s", appName, jenkinsv1.FactTypeCoverage, pipelineActivity.Name)
	fact := jenkinsv1.Fact{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
		},
		Spec: jenkinsv1.FactSpec{
			Name:     name,
			FactType: jenkinsv1.FactTypeCoverage,
			Original: jenkinsv1.Original{
				URL:      url,
				MimeType: "application/json",
				Tags: []string{
					"jacoco.json",
				},
			},
			Tags: []string{
				appName,
			},
			Measurements: measurements,
			Statements:   []jenkinsv1.Statement{},
			SubjectReference: jenkinsv1.ResourceReference{
				APIVersion: pipelineActivity.APIVersion,
				Kind:       pipelineActivity.Kind,
				Name:       pipelineActivity.Name,
				UID:        pipelineActivity.UID,
			},
		},
	}
	logger.Tracef("created fact: %v", fact)
	return &fact
}

func (h *defaultEventHandler) createMeasurement(t string, measurement string, value int) jenkinsv1.Measurement {
	return jenkinsv1.Measurement{
		Name:             fmt.Sprintf("%s-%s", t, measurement),
		MeasurementType:  jenkinsv1.MeasurementCount,
		MeasurementValue: value,
	}
}
