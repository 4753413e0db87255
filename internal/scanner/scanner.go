// Package scanner reads GitHub Actions workflow files and extracts every
// `uses:` action reference, together with as much location context (job
// id, step index) as the YAML structure yields.
package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/gx-tool/gx/internal/domain"
)

// FindWorkflowPaths enumerates *.yml and *.yaml files under
// .github/workflows for each root. An empty roots list defaults to the
// current directory.
func FindWorkflowPaths(roots []string) ([]string, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}

	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("scanner: %w", err)
		}
		dir := root
		if info.IsDir() {
			dir = filepath.Join(root, ".github", "workflows")
		}
		for _, pattern := range []string{"*.yml", "*.yaml"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("scanner: bad glob pattern: %w", err)
			}
			files = append(files, matches...)
		}
	}
	return files, nil
}

// ScannedRef is a single `uses:` reference as found in the raw source,
// before interpretation into a domain.InterpretedRef.
type ScannedRef struct {
	ActionName string
	Ref        string
	Comment    *string
	Line       int
	Job        *string
	Step       *int
}

// Workflow is everything scanned out of a single workflow file.
type Workflow struct {
	Path string
	Refs []ScannedRef
}

var usesLinePattern = regexp.MustCompile(`uses:\s*([\w.\-]+(?:/[\w.\-]+)+)@(\S+)`)

// ScanFile reads path and extracts every `uses:` reference, skipping
// docker:// and local (./...) refs. Job id and step index are attached
// by parsing the file's YAML structure; if YAML parsing fails, an error
// is returned and the file contributes nothing to scan output.
func ScanFile(path string) (Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("scanner: failed to read %s: %w", path, err)
	}
	lines := splitLines(string(raw))

	locations, err := locateUses(raw)
	if err != nil {
		return Workflow{}, fmt.Errorf("scanner: failed to parse YAML structure of %s: %w", path, err)
	}

	var refs []ScannedRef
	for lineNum, line := range lines {
		matches := usesLinePattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		actionName, ref := matches[1], matches[2]
		if strings.HasPrefix(ref, "docker://") || strings.HasPrefix(actionName, ".") {
			continue
		}

		sref := ScannedRef{
			ActionName: actionName,
			Ref:        stripTrailingComment(ref),
			Line:       lineNum + 1,
		}
		if comment := extractComment(line); comment != "" {
			c := comment
			sref.Comment = &c
		}
		if loc, ok := locations[sref.Line]; ok {
			sref.Job = loc.job
			sref.Step = loc.step
		}
		refs = append(refs, sref)
	}

	return Workflow{Path: path, Refs: refs}, nil
}

// ScanAll scans every path, returning one Workflow per file.
func ScanAll(paths []string) ([]Workflow, error) {
	out := make([]Workflow, 0, len(paths))
	for _, p := range paths {
		w, err := ScanFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// LocatedActions interprets every scanned ref across workflows into
// domain.LocatedAction values, ready to feed a domain.WorkflowActionSet.
func LocatedActions(workflows []Workflow) []domain.LocatedAction {
	var out []domain.LocatedAction
	for _, w := range workflows {
		for _, ref := range w.Refs {
			interpreted := domain.UsesRef{
				ActionName: ref.ActionName,
				UsesRef:    ref.Ref,
				Comment:    ref.Comment,
			}.Interpret()
			out = append(out, domain.LocatedAction{
				ID:      interpreted.ID,
				Version: interpreted.Version,
				Sha:     interpreted.Sha,
				Location: domain.WorkflowLocation{
					Workflow: w.Path,
					Job:      ref.Job,
					Step:     ref.Step,
				},
			})
		}
	}
	return out
}

func splitLines(content string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// stripTrailingComment removes a "# ..." suffix that the line regex may
// have swept into the ref capture group when no space precedes '#'.
func stripTrailingComment(ref string) string {
	if idx := strings.Index(ref, "#"); idx >= 0 {
		return strings.TrimRight(ref[:idx], " \t")
	}
	return ref
}

// extractComment returns the trimmed text following the first '#' on
// line that appears after a "uses:" match, or "" if there is none. This
// operates on the raw source line since YAML parsing discards comments
// entirely.
func extractComment(line string) string {
	idx := strings.Index(line, "#")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

type usesLocation struct {
	job  *string
	step *int
}

// locateUses parses raw as a YAML document and walks every job's step
// list, recording the source line of each step's "uses:" value together
// with its enclosing job id and 0-based step index.
func locateUses(raw []byte) (map[int]usesLocation, error) {
	file, err := parser.ParseBytes(raw, 0)
	if err != nil {
		return nil, err
	}

	locations := make(map[int]usesLocation)
	for _, doc := range file.Docs {
		if doc.Body == nil {
			continue
		}
		root := asMapping(doc.Body)
		if root == nil {
			continue
		}
		jobsNode := findValue(root, "jobs")
		jobsMapping := asMapping(jobsNode)
		if jobsMapping == nil {
			continue
		}
		for _, jobEntry := range jobsMapping.Values {
			jobName := keyString(jobEntry.Key)
			jobMapping := asMapping(jobEntry.Value)
			if jobMapping == nil {
				continue
			}
			stepsNode := findValue(jobMapping, "steps")
			stepsSeq := asSequence(stepsNode)
			if stepsSeq == nil {
				continue
			}
			for i, stepNode := range stepsSeq.Values {
				stepMapping := asMapping(stepNode)
				if stepMapping == nil {
					continue
				}
				usesValue := findValue(stepMapping, "uses")
				if usesValue == nil {
					continue
				}
				line := usesValue.GetToken().Position.Line
				job := jobName
				step := i
				locations[line] = usesLocation{job: &job, step: &step}
			}
		}
	}
	return locations, nil
}

func asMapping(n ast.Node) *ast.MappingNode {
	switch v := n.(type) {
	case *ast.MappingNode:
		return v
	case *ast.MappingValueNode:
		m := &ast.MappingNode{Values: []*ast.MappingValueNode{v}}
		return m
	default:
		return nil
	}
}

func asSequence(n ast.Node) *ast.SequenceNode {
	if v, ok := n.(*ast.SequenceNode); ok {
		return v
	}
	return nil
}

func findValue(m *ast.MappingNode, key string) ast.Node {
	if m == nil {
		return nil
	}
	for _, entry := range m.Values {
		if keyString(entry.Key) == key {
			return entry.Value
		}
	}
	return nil
}

func keyString(n ast.MapKeyNode) string {
	if s, ok := n.(*ast.StringNode); ok {
		return s.Value
	}
	return fmt.Sprintf("%v", n)
}
