package main

import (
	"os"
	"strings"

	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/retrieval"
	"github.com/pkg/errors"
)

// loadDump reads a dump from a local file or, for sources with a URL scheme,
// through the retrieval package.
func loadDump(namespace string, source string) (data.Dump, error) {
	if strings.Contains(source, "://") {
		return retrieval.RetrieveDump(namespace, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return data.Dump{}, err
	}
	defer f.Close()
	dump, err := data.ReadDump(f)
	if err != nil {
		return data.Dump{}, errors.Wrapf(err, "in %s", source)
	}
	return dump, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
