package analysis

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefinitionExtensions are the file extensions of class definition documents.
var DefinitionExtensions = []string{".yaml", ".yml"}

// ClassDefinition is the structural shape of one instrumented class as handed
// over by the instrumentation collaborator.
type ClassDefinition struct {
	ID         uint64             `yaml:"id"`
	Name       string             `yaml:"name"`
	Package    string             `yaml:"package"`
	SourceFile string             `yaml:"source"`
	ProbeCount int                `yaml:"probes"`
	Methods    []MethodDefinition `yaml:"methods"`
}

// MethodDefinition lists the instructions and decision points of a method.
type MethodDefinition struct {
	Name         string        `yaml:"name"`
	Desc         string        `yaml:"desc"`
	Signature    string        `yaml:"signature,omitempty"`
	Instructions []Instruction `yaml:"instructions"`
	Decisions    []Decision    `yaml:"decisions,omitempty"`
}

// Instruction is one executable instruction. Line 0 means no line information.
// Probes lists the probes proving that the instruction was executed.
type Instruction struct {
	Line   int   `yaml:"line,omitempty"`
	Probes []int `yaml:"probes,flow,omitempty"`
}

// Decision is a branch point owned by the instruction at index Instruction.
// Each outcome has its own probe.
type Decision struct {
	Instruction int   `yaml:"instruction"`
	Probes      []int `yaml:"probes,flow"`
}

// Identity returns the execution data identity of the class.
func (d ClassDefinition) Identity() data.ID {
	return data.ID{ClassID: d.ID, Name: d.Name}
}

type definitionDocument struct {
	Classes []ClassDefinition `yaml:"classes"`
}

// LoadDefinitions decodes all YAML documents from r. Each document holds a 'classes' list.
func LoadDefinitions(r io.Reader) ([]ClassDefinition, error) {
	var defs []ClassDefinition
	dec := yaml.NewDecoder(r)
	for {
		doc := definitionDocument{}
		err := dec.Decode(&doc)
		if err == io.EOF {
			return defs, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "unable to decode class definitions")
		}
		defs = append(defs, doc.Classes...)
	}
}

// LoadDefinitionsDir loads the definitions of all .yaml and .yml files below root.
func LoadDefinitionsDir(root string) ([]ClassDefinition, error) {
	var defs []ClassDefinition
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !util.Contains(DefinitionExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		loaded, err := LoadDefinitions(f)
		if err != nil {
			return errors.Wrapf(err, "in %s", path)
		}
		logger.Debugf("loaded %d class definitions from %s", len(loaded), path)
		defs = append(defs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}
