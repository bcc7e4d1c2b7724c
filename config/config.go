/*
Package config holds the settings that drive forest growth and
packing. It offers two layers: a Store with the string-keyed typed
set/get contract the original tooling exposes, and a strongly-typed
Config built from a Store with defaults applied and every invariant
validated before any training work starts.
*/
package config

import (
	"fmt"
	"math"

	"github.com/MaiRajborirug/SPORF/split"
)

// MissingConfigError is returned by Store.Get when a setting has not
// been set and no default exists for it.
type MissingConfigError struct {
	Name string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("config setting %q has not been set", e.Name)
}

// InvalidConfigError is returned when a setting violates one of the
// parameter invariants. It is always detected before any tree growth
// begins.
type InvalidConfigError struct {
	Setting string
	Reason  string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config setting %s: %s", e.Setting, e.Reason)
}

// Kind identifies the type of a stored setting value.
type Kind uint8

const (
	String Kind = iota
	Int
	Float
)

// Value is a typed setting value: a string, an integer or a
// floating-point number.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
}

// StringValue wraps a string as a Value.
func StringValue(s string) Value { return Value{Kind: String, Str: s} }

// IntValue wraps an integer as a Value.
func IntValue(i int64) Value { return Value{Kind: Int, Int: i} }

// FloatValue wraps a floating-point number as a Value.
func FloatValue(f float64) Value { return Value{Kind: Float, Float: f} }

/*
Store is a pure string-keyed store of typed setting values. It
performs no validation: invariants over the settings are checked when
a Config is built from the store, before training starts.
*/
type Store struct {
	values map[string]Value
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string]Value)}
}

// Set stores a value under the given setting name, replacing any
// previous value.
func (s *Store) Set(name string, v Value) {
	s.values[name] = v
}

// Get returns the value stored under the given setting name or a
// MissingConfigError if the setting has not been set.
func (s *Store) Get(name string) (Value, error) {
	v, ok := s.values[name]
	if !ok {
		return Value{}, &MissingConfigError{Name: name}
	}
	return v, nil
}

// Has reports whether the given setting has been set.
func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

func (s *Store) intOr(name string, def int) (int, error) {
	v, ok := s.values[name]
	if !ok {
		return def, nil
	}
	switch v.Kind {
	case Int:
		return int(v.Int), nil
	case Float:
		if v.Float != math.Trunc(v.Float) {
			return 0, &InvalidConfigError{Setting: name, Reason: fmt.Sprintf("expected an integer, got %v", v.Float)}
		}
		return int(v.Float), nil
	}
	return 0, &InvalidConfigError{Setting: name, Reason: fmt.Sprintf("expected an integer, got %q", v.Str)}
}

func (s *Store) floatOr(name string, def float64) (float64, error) {
	v, ok := s.values[name]
	if !ok {
		return def, nil
	}
	switch v.Kind {
	case Float:
		return v.Float, nil
	case Int:
		return float64(v.Int), nil
	}
	return 0, &InvalidConfigError{Setting: name, Reason: fmt.Sprintf("expected a number, got %q", v.Str)}
}

/*
Config is the validated, strongly-typed configuration consumed by the
growing and packing engines. It is immutable once training starts:
engines receive it by value or behind a pointer they never write
through.
*/
type Config struct {
	// ForestType selects the candidate split sampler variant.
	ForestType split.ForestType
	// ForestTypeName is the name ForestType was parsed from, kept
	// for reporting. ForestTypeWarning is set when the name was not
	// recognized and the rfBase behavior was assumed.
	ForestTypeName    string
	ForestTypeWarning bool

	NumTrees  int
	MaxDepth  int // 0 means unlimited
	MinParent int
	NumCores  int
	// NumTreeBins is the number of bins trees are packed into.
	// It defaults to NumCores.
	NumTreeBins int

	// NodeSizeToBin and NodeSizeBin configure the stratified node
	// subsampler: nodes larger than NodeSizeToBin are evaluated on a
	// stratified draw of NodeSizeBin samples. Both are zero when the
	// subsampler is disabled.
	NodeSizeToBin int
	NodeSizeBin   int

	// Mtry is the number of candidate split functions per node.
	// Zero means the ceil(sqrt(d)) default resolved against the
	// dataset at growth time.
	Mtry int
	// MtryMult is the expected number of nonzero weights per sparse
	// RerF candidate.
	MtryMult float64

	Seed int64

	// Image geometry and patch bounds for the structured variant.
	ImageHeight    int
	ImageWidth     int
	PatchHeightMin int
	PatchHeightMax int
	PatchWidthMin  int
	PatchWidthMax  int
}

// Default seed used when none is configured, so runs are reproducible
// unless the caller asks otherwise.
const DefaultSeed = 42

/*
New takes a Store and returns the Config built from its recognized
settings with defaults applied, or an InvalidConfigError if any
setting violates its invariants. The recognized settings are:
forestType, numTreesInForest, maxDepth, minParent, numCores,
numTreeBins, nodeSizeToBin, nodeSizeBin, mtry, mtryMult, seed,
imageHeight, imageWidth, patchHeightMin, patchHeightMax,
patchWidthMin and patchWidthMax.
*/
func New(s *Store) (*Config, error) {
	c := &Config{}
	ftName := "rfBase"
	if v, ok := s.values["forestType"]; ok {
		if v.Kind != String {
			return nil, &InvalidConfigError{Setting: "forestType", Reason: "expected a string"}
		}
		ftName = v.Str
	}
	ft, known := split.ParseForestType(ftName)
	c.ForestType = ft
	c.ForestTypeName = ftName
	c.ForestTypeWarning = !known

	var err error
	if c.NumTrees, err = s.intOr("numTreesInForest", 1); err != nil {
		return nil, err
	}
	if c.MaxDepth, err = s.intOr("maxDepth", 0); err != nil {
		return nil, err
	}
	if c.MinParent, err = s.intOr("minParent", 1); err != nil {
		return nil, err
	}
	if c.NumCores, err = s.intOr("numCores", 1); err != nil {
		return nil, err
	}
	if c.NumTreeBins, err = s.intOr("numTreeBins", c.NumCores); err != nil {
		return nil, err
	}
	if c.NodeSizeToBin, err = s.intOr("nodeSizeToBin", 0); err != nil {
		return nil, err
	}
	if c.NodeSizeBin, err = s.intOr("nodeSizeBin", 0); err != nil {
		return nil, err
	}
	if c.Mtry, err = s.intOr("mtry", 0); err != nil {
		return nil, err
	}
	if c.MtryMult, err = s.floatOr("mtryMult", 1.5); err != nil {
		return nil, err
	}
	seed, err := s.intOr("seed", DefaultSeed)
	if err != nil {
		return nil, err
	}
	c.Seed = int64(seed)
	if c.ImageHeight, err = s.intOr("imageHeight", 0); err != nil {
		return nil, err
	}
	if c.ImageWidth, err = s.intOr("imageWidth", 0); err != nil {
		return nil, err
	}
	if c.PatchHeightMin, err = s.intOr("patchHeightMin", 1); err != nil {
		return nil, err
	}
	if c.PatchHeightMax, err = s.intOr("patchHeightMax", c.ImageHeight); err != nil {
		return nil, err
	}
	if c.PatchWidthMin, err = s.intOr("patchWidthMin", 1); err != nil {
		return nil, err
	}
	if c.PatchWidthMax, err = s.intOr("patchWidthMax", c.ImageWidth); err != nil {
		return nil, err
	}

	hasToBin := s.Has("nodeSizeToBin")
	hasBin := s.Has("nodeSizeBin")
	if hasToBin != hasBin {
		return nil, &InvalidConfigError{
			Setting: "nodeSizeToBin/nodeSizeBin",
			Reason:  "both must be set together or not at all",
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

/*
Validate checks every parameter invariant and returns an
InvalidConfigError describing the first violation found, or nil. It is
called by New, and again by the training entry points so configs built
by hand get the same eager checks.
*/
func (c *Config) Validate() error {
	if c.NumTrees < 1 {
		return &InvalidConfigError{Setting: "numTreesInForest", Reason: "must be at least 1"}
	}
	if c.MinParent < 1 {
		return &InvalidConfigError{Setting: "minParent", Reason: "must be at least 1"}
	}
	if c.NumCores < 1 {
		return &InvalidConfigError{Setting: "numCores", Reason: "must be at least 1"}
	}
	if c.MaxDepth < 0 {
		return &InvalidConfigError{Setting: "maxDepth", Reason: "must be a finite positive depth, or unset for unlimited"}
	}
	if c.NumTreeBins < 1 {
		return &InvalidConfigError{Setting: "numTreeBins", Reason: "must be at least 1"}
	}
	if c.Mtry < 0 {
		return &InvalidConfigError{Setting: "mtry", Reason: "cannot be negative"}
	}
	if c.MtryMult <= 0 {
		return &InvalidConfigError{Setting: "mtryMult", Reason: "must be positive"}
	}
	if (c.NodeSizeToBin == 0) != (c.NodeSizeBin == 0) {
		return &InvalidConfigError{
			Setting: "nodeSizeToBin/nodeSizeBin",
			Reason:  "both must be set together or not at all",
		}
	}
	if c.NodeSizeToBin < 0 || c.NodeSizeBin < 0 {
		return &InvalidConfigError{Setting: "nodeSizeToBin/nodeSizeBin", Reason: "cannot be negative"}
	}
	if c.NodeSizeBin > 0 && c.NodeSizeBin > c.NodeSizeToBin {
		return &InvalidConfigError{
			Setting: "nodeSizeBin",
			Reason: fmt.Sprintf("target bin size %d exceeds triggering threshold nodeSizeToBin %d",
				c.NodeSizeBin, c.NodeSizeToBin),
		}
	}
	if c.ForestType == split.SRerF {
		if c.ImageHeight < 1 || c.ImageWidth < 1 {
			return &InvalidConfigError{
				Setting: "imageHeight/imageWidth",
				Reason:  "the structured variant requires the image dimensions",
			}
		}
		if c.PatchHeightMin < 1 || c.PatchWidthMin < 1 {
			return &InvalidConfigError{Setting: "patchHeightMin/patchWidthMin", Reason: "must be at least 1"}
		}
		if c.PatchHeightMax < c.PatchHeightMin || c.PatchHeightMax > c.ImageHeight {
			return &InvalidConfigError{
				Setting: "patchHeightMax",
				Reason:  fmt.Sprintf("must be within [patchHeightMin, imageHeight], got %d", c.PatchHeightMax),
			}
		}
		if c.PatchWidthMax < c.PatchWidthMin || c.PatchWidthMax > c.ImageWidth {
			return &InvalidConfigError{
				Setting: "patchWidthMax",
				Reason:  fmt.Sprintf("must be within [patchWidthMin, imageWidth], got %d", c.PatchWidthMax),
			}
		}
	}
	return nil
}

/*
ResolveMtry returns the number of candidates per node for a dataset
with the given feature dimensionality: the configured mtry, or
ceil(sqrt(d)) when unset.
*/
func (c *Config) ResolveMtry(numFeatures int) int {
	if c.Mtry > 0 {
		return c.Mtry
	}
	m := int(math.Ceil(math.Sqrt(float64(numFeatures))))
	if m < 1 {
		m = 1
	}
	return m
}

/*
Sampler returns the candidate split sampler for the configured forest
type over a dataset with the given feature dimensionality. Structured
configurations whose geometry does not match the dataset fail with an
InvalidConfigError.
*/
func (c *Config) Sampler(numFeatures int) (split.Sampler, error) {
	mtry := c.ResolveMtry(numFeatures)
	switch c.ForestType {
	case split.RerF, split.RerFTernary:
		// Each of the mtry candidates draws a Poisson(mtryMult)
		// number of nonzero weights, so the candidate pool holds
		// mtryMult*mtry nonzeros in expectation.
		return split.NewSparseSampler(numFeatures, mtry, c.MtryMult, c.ForestType == split.RerFTernary), nil
	case split.SRerF:
		if c.ImageHeight*c.ImageWidth != numFeatures {
			return nil, &InvalidConfigError{
				Setting: "imageHeight/imageWidth",
				Reason: fmt.Sprintf("image %dx%d does not match %d features",
					c.ImageHeight, c.ImageWidth, numFeatures),
			}
		}
		ps, err := split.NewPatchSampler(c.ImageHeight, c.ImageWidth,
			c.PatchHeightMin, c.PatchHeightMax, c.PatchWidthMin, c.PatchWidthMax, mtry)
		if err != nil {
			return nil, &InvalidConfigError{Setting: "patchHeightMax/patchWidthMax", Reason: err.Error()}
		}
		return ps, nil
	}
	return split.NewAxisSampler(numFeatures, mtry), nil
}
