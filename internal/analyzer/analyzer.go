package analyzer

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/dynval/internal/config"
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/models"
	"github.com/mcncl/dynval/internal/typeinfo"
)

// DefaultRootName is the default name for the root if not specified.
const DefaultRootName = "Root"

// Kind names recorded for values without a scalar tag.
const (
	KindNull = "null"
	KindList = "list"
	KindMap  = "map"
)

// Hints recognised from string and number shapes
const (
	HintGUID       = "guid"
	HintDate       = "date"
	HintUnixSecond = "unix-seconds"
	HintUnixMilli  = "unix-millis"
)

// Regex patterns for special shapes
var (
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Time format patterns not already promoted by the parser
	iso8601Regex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d+)?)?([+-]\d{2}:?\d{2}|Z)?$`) // ISO8601 variants
	dateOnlyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)                                                 // 2006-01-02
	dateTimeRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`)                       // 2006-01-02 15:04:05

	unixTimestampRegex = regexp.MustCompile(`^1[0-9]{9}$`)  // Unix timestamp (seconds since 1970)
	unixMilliRegex     = regexp.MustCompile(`^1[0-9]{12}$`) // Unix timestamp in milliseconds
)

// Analyzer walks a value tree and summarises what it finds at every path
type Analyzer struct {
	// paths indexes the entries of analysisResult.Paths by path
	paths map[string]int
	// hinted marks paths that have seen a non-null value
	hinted map[string]bool
	// active holds the containers on the current walk, so cycles end
	active map[*dynamic.Value]bool
	// analysisResult collects the discovered paths
	analysisResult models.AnalysisResult
	// config holds configuration settings for analysis
	config *config.Config
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(config.NewConfig())
}

// NewAnalyzerWithConfig creates a new Analyzer instance with custom configuration.
func NewAnalyzerWithConfig(cfg *config.Config) *Analyzer {
	return &Analyzer{
		paths:  make(map[string]int),
		hinted: make(map[string]bool),
		active: make(map[*dynamic.Value]bool),
		analysisResult: models.AnalysisResult{
			Paths: make([]models.PathInfo, 0),
		},
		config: cfg,
	}
}

// Analyze walks v and returns one PathInfo per distinct path in first-seen
// order. The root path is "$"; map members append ".key" and list elements
// append "[]", so every element of a list shares one path.
func (a *Analyzer) Analyze(v *dynamic.Value, rootName string) (models.AnalysisResult, error) {
	if v == nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to analyze root node: value is nil")
	}
	if rootName == "" {
		rootName = a.config.Analyze.RootName
	}
	if rootName == "" {
		rootName = DefaultRootName
	}

	a.analysisResult.Root = strcase.ToCamel(rootName)
	a.analyzeNode(v, "$", a.analysisResult.Root, 0)

	return a.analysisResult, nil
}

// analyzeNode records v at path and descends into its children. depth is
// the number of containers above v.
func (a *Analyzer) analyzeNode(v *dynamic.Value, path, field string, depth int) {
	switch {
	case v.IsNull():
		a.record(path, field, KindNull, "")
	case v.Payload() != nil:
		a.record(path, field, v.Tag().String(), a.hintFor(v))
	case v.IsList():
		a.record(path, field, KindList, "")
		a.descend(v, depth, func() {
			for _, child := range v.Children() {
				a.analyzeNode(child, path+"[]", field, depth+1)
			}
		})
	case v.IsMap():
		a.record(path, field, KindMap, "")
		a.descend(v, depth, func() {
			v.Range(func(key string, child *dynamic.Value) bool {
				a.analyzeNode(child, path+"."+key, a.config.FieldName(key), depth+1)
				return true
			})
		})
	}
}

// descend walks one container level. A container already on the walk is
// skipped.
func (a *Analyzer) descend(v *dynamic.Value, depth int, walk func()) {
	if a.active[v] {
		return
	}
	a.active[v] = true
	defer delete(a.active, v)

	if depth+1 > a.analysisResult.MaxDepth {
		a.analysisResult.MaxDepth = depth + 1
	}
	walk()
}

// record adds one observation of kind at path. The hint of a path is kept
// only while every non-null value there agrees on it.
func (a *Analyzer) record(path, field, kind, hint string) {
	if configured, ok := a.config.FindHint(path); ok {
		hint = configured
	}

	i, seen := a.paths[path]
	if !seen {
		i = len(a.analysisResult.Paths)
		a.paths[path] = i
		a.analysisResult.Paths = append(a.analysisResult.Paths, models.PathInfo{
			Path:  path,
			Field: field,
		})
	}

	info := &a.analysisResult.Paths[i]
	info.Count++
	if !containsKind(info.Kinds, kind) {
		info.Kinds = append(info.Kinds, kind)
	}

	switch {
	case kind == KindNull:
		info.Nullable = true
	case !a.hinted[path]:
		info.Hint = hint
		a.hinted[path] = true
	case info.Hint != hint:
		info.Hint = ""
	}
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// hintFor recognises scalar shapes worth reporting.
func (a *Analyzer) hintFor(v *dynamic.Value) string {
	switch tag := v.Tag(); {
	case tag == typeinfo.GUID:
		return HintGUID
	case tag == typeinfo.DateTime:
		return HintDate
	case tag == typeinfo.String:
		return analyzeString(v.AsString())
	case typeinfo.IsNumber(tag):
		return analyzeNumber(v)
	}
	return ""
}

func analyzeString(s string) string {
	if uuidRegex.MatchString(s) {
		return HintGUID
	}
	if iso8601Regex.MatchString(s) || dateOnlyRegex.MatchString(s) || dateTimeRegex.MatchString(s) {
		return HintDate
	}
	return ""
}

func analyzeNumber(v *dynamic.Value) string {
	n, ok := v.TryInt64()
	if !ok || float64(n) != v.AsFloat64() {
		return ""
	}
	digits := strconv.FormatInt(n, 10)
	switch {
	case unixTimestampRegex.MatchString(digits):
		return HintUnixSecond
	case unixMilliRegex.MatchString(digits):
		return HintUnixMilli
	}
	return ""
}
