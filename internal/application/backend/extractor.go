package backend

import (
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/turtacn/liposome-ivr/internal/domain/molecule"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// DescriptorExtractor computes every registry descriptor for a molecule.
// Individual failures never abort the vector: they are logged and read back
// as the sentinel.
type DescriptorExtractor struct {
	registry  *molecule.Registry
	sentinel  interface{}
	logger    logging.Logger
	onFailure func(descriptor string)
}

// ExtractorOption customises a DescriptorExtractor.
type ExtractorOption func(*DescriptorExtractor)

// WithSentinel sets the value reported for failed descriptors.
func WithSentinel(v interface{}) ExtractorOption {
	return func(e *DescriptorExtractor) { e.sentinel = v }
}

// WithFailureHook registers a callback invoked once per failed descriptor.
func WithFailureHook(fn func(descriptor string)) ExtractorOption {
	return func(e *DescriptorExtractor) { e.onFailure = fn }
}

// NewDescriptorExtractor creates an extractor over registry.  A nil registry
// means molecule.DefaultRegistry().
func NewDescriptorExtractor(registry *molecule.Registry, logger logging.Logger, opts ...ExtractorOption) *DescriptorExtractor {
	if registry == nil {
		registry = molecule.DefaultRegistry()
	}
	e := &DescriptorExtractor{registry: registry, logger: logger.Named("descriptors")}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Names returns the descriptor names in output order.
func (e *DescriptorExtractor) Names() []string { return e.registry.Names() }

// Extract runs every descriptor against mol.  mol may be nil, in which case
// every entry fails and the vector still carries the full key set.
func (e *DescriptorExtractor) Extract(mol *molecule.Molecule) molecule.Vector {
	smiles := ""
	if mol != nil {
		smiles = mol.SMILES
	}
	return e.extract(mol, smiles)
}

// ExtractSMILES parses smiles and extracts its descriptors.  A parse failure
// is logged and returned alongside the all-sentinel vector.
func (e *DescriptorExtractor) ExtractSMILES(smiles string) (molecule.Vector, error) {
	mol, err := molecule.ParseSMILES(smiles)
	if err != nil {
		e.logger.Warn("Failed to parse SMILES", logging.String("smiles", smiles), logging.Err(err))
		mol = nil
	}
	return e.extract(mol, smiles), err
}

// extract logs failures against smiles, which is the input text even when
// parsing it failed.
func (e *DescriptorExtractor) extract(mol *molecule.Molecule, smiles string) molecule.Vector {
	descs := e.registry.Descriptors()
	outcomes := make([]molecule.Outcome, len(descs))
	for i, d := range descs {
		v, stack, err := safeCompute(d.Fn, mol)
		outcomes[i] = molecule.Outcome{Name: d.Name, Value: v, Err: err}
		if err != nil {
			e.reportFailure(d.Name, smiles, err, stack)
		}
	}
	return molecule.NewVector(outcomes, e.sentinel)
}

// FromValues rebuilds a vector from previously computed values, in registry
// order.  Names absent from values count as failed.
func (e *DescriptorExtractor) FromValues(values map[string]float64) molecule.Vector {
	names := e.registry.Names()
	outcomes := make([]molecule.Outcome, len(names))
	for i, n := range names {
		v, ok := values[n]
		outcomes[i] = molecule.Outcome{Name: n, Value: v}
		if !ok {
			outcomes[i].Err = errors.Newf(errors.ErrCodeDescriptorFailed, "%s missing from cached values", n)
		}
	}
	return molecule.NewVector(outcomes, e.sentinel)
}

// reportFailure logs one failed descriptor.  The trace travels in the stack
// field; the zap backend adds no automatic stacktrace of its own.
func (e *DescriptorExtractor) reportFailure(name, smiles string, err error, stack string) {
	if stack == "" {
		stack = errors.StackOf(err)
	}
	e.logger.Error("Descriptor computation failed",
		logging.String("descriptor", name),
		logging.String("smiles", smiles),
		logging.Err(err),
		logging.Stack(stack),
	)
	if e.onFailure != nil {
		e.onFailure(name)
	}
}

// safeCompute calls fn, converting a panic into an error plus the stack of
// the panicking goroutine.
func safeCompute(fn molecule.DescriptorFunc, mol *molecule.Molecule) (v float64, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = 0
			err = errors.Newf(errors.ErrCodeDescriptorFailed, "descriptor panicked: %v", r)
			stack = string(debug.Stack())
		}
	}()
	v, err = fn(mol)
	return v, "", err
}

// ParseSentinel converts the configured sentinel text into a cell value:
// "" and "null" give nil, numbers give float64, anything else stays a string.
func ParseSentinel(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
