package retrieval

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jenkins-x-apps/jacoco-go/internal/analysis"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/jenkins-x/jx/pkg/cloud/buckets"
	"github.com/jenkins-x/jx/pkg/jx/cmd"
	"github.com/jenkins-x/jx/pkg/jx/cmd/clients"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	timeout           = time.Second * 30
	retries           = 3
	r       retriever = &defaultRetriever{}
	logger            = logging.AppLogger().WithFields(log.Fields{"component": "retrieval"})
)

type retriever interface {
	getRaw(namespace string, url string) ([]byte, error)
}

type defaultRetriever struct {
}

// getRaw reads http(s) URLs with retries. Bucket URLs such as gs:// or
// s3:// are read with the git credentials of the namespace.
func (r *defaultRetriever) getRaw(namespace string, url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return readHTTP(url)
	}

	common := cmd.NewCommonOptions(namespace, clients.NewFactory())
	authSvc, err := common.CreateGitAuthConfigService()
	if err != nil {
		return nil, err
	}
	return buckets.ReadURL(url, timeout, cmd.CreateBucketHTTPFn(authSvc))
}

func readHTTP(url string) ([]byte, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	resp, err := client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s for %s", resp.Status, url)
	}
	return ioutil.ReadAll(resp.Body)
}

// RetrieveDump retrieves an execution data dump from the specified URL which
// can be served over HTTP or live in a cloud storage bucket.
func RetrieveDump(namespace string, url string) (data.Dump, error) {
	raw, err := r.getRaw(namespace, url)
	if err != nil {
		return data.Dump{}, err
	}
	logger.Debugf("retrieved %d bytes from %s", len(raw), url)
	return data.ReadDump(bytes.NewReader(raw))
}

// RetrieveAll retrieves the dumps of all URLs and merges them into store and
// sessions. Dumps which cannot be retrieved are logged and skipped; the
// number of merged dumps is returned.
func RetrieveAll(namespace string, urls []string, store *data.Store, sessions *data.SessionInfoStore) int {
	merged := 0
	for _, url := range urls {
		dump, err := RetrieveDump(namespace, url)
		if err != nil {
			logger.Errorf("unable to retrieve execution data from %s: %s", url, err)
			continue
		}
		for id, err := range dump.Merge(store, sessions) {
			logger.Warnf("execution data for %s from %s not merged: %s", id, url, err)
		}
		merged++
	}
	return merged
}

// RetrieveDefinitions retrieves a YAML document of class definitions from the specified URL.
func RetrieveDefinitions(namespace string, url string) ([]analysis.ClassDefinition, error) {
	raw, err := r.getRaw(namespace, url)
	if err != nil {
		return nil, err
	}
	return analysis.LoadDefinitions(bytes.NewReader(raw))
}
