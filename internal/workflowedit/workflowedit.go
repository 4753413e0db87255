// Package workflowedit rewrites `uses:` lines in workflow files in place,
// touching only the lines a caller asks for and leaving everything else
// (comments, formatting, unrelated steps) untouched.
package workflowedit

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	renameio "github.com/google/renameio/v2"

	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/scanner"
)

// Update is a single requested replacement: the action at path:line
// should have its ref rewritten to newRef (which may itself include a
// trailing "# version" comment).
type Update struct {
	Path   string
	Line   int
	NewRef string
}

// Updater rewrites workflow files. It exists as an interface so tidy and
// upgrade can be tested against an in-memory implementation without
// touching disk.
type Updater interface {
	Apply(updates []Update) (map[string]int, error)
}

// FileUpdater is the on-disk Updater, performing atomic per-file
// replacement via renameio.
type FileUpdater struct{}

// NewFileUpdater builds a FileUpdater.
func NewFileUpdater() *FileUpdater {
	return &FileUpdater{}
}

// Apply groups updates by file and rewrites each file's matching lines in
// a single pass, returning the number of lines changed per file path.
func (u *FileUpdater) Apply(updates []Update) (map[string]int, error) {
	byFile := make(map[string][]Update)
	for _, upd := range updates {
		byFile[upd.Path] = append(byFile[upd.Path], upd)
	}

	changeCounts := make(map[string]int, len(byFile))
	for path, fileUpdates := range byFile {
		n, err := rewriteFile(path, fileUpdates)
		if err != nil {
			return nil, err
		}
		changeCounts[path] = n
	}
	return changeCounts, nil
}

func rewriteFile(path string, updates []Update) (int, error) {
	byLine := make(map[int]string, len(updates))
	for _, u := range updates {
		byLine[u.Line] = u.NewRef
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("workflowedit: failed to open %s: %w", path, err)
	}
	defer f.Close()

	out := &strings.Builder{}
	changed := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(scanLinesWithEndings)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := sc.Text()
		newRef, found := byLine[lineNum]
		if !found {
			out.WriteString(line)
			continue
		}

		before, _, ok := strings.Cut(line, "uses:")
		if !ok {
			out.WriteString(line)
			continue
		}

		newLine := before + "uses: " + newRef + matchEOL(line)
		out.WriteString(newLine)
		if newLine != line {
			changed++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("workflowedit: failed to scan %s: %w", path, err)
	}

	if changed == 0 {
		return 0, nil
	}

	if err := renameio.WriteFile(path, []byte(out.String()), 0); err != nil {
		return 0, fmt.Errorf("workflowedit: failed to atomically replace %s: %w", path, err)
	}
	return changed, nil
}

// scanLinesWithEndings works like bufio.ScanLines but keeps the line
// ending attached to each token, so rewritten lines preserve the
// original \n or \r\n.
func scanLinesWithEndings(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		return len(data), data, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[0 : i+1], nil
	}
	return 0, nil, nil
}

var eolPattern = regexp.MustCompile(`\r?\n$`)

func matchEOL(line string) string {
	return eolPattern.FindString(line)
}

// UpdatesFromLocated builds an Update for every scanned ref for which
// render returns true, with NewRef set to "id@" followed by render's
// result.
func UpdatesFromLocated(workflows []scanner.Workflow, render func(id domain.ActionId, job *string, step *int) (string, bool)) []Update {
	var updates []Update
	for _, w := range workflows {
		for _, ref := range w.Refs {
			interpreted := domain.UsesRef{
				ActionName: ref.ActionName,
				UsesRef:    ref.Ref,
				Comment:    ref.Comment,
			}.Interpret()

			newRef, ok := render(interpreted.ID, ref.Job, ref.Step)
			if !ok {
				continue
			}
			updates = append(updates, Update{
				Path:   w.Path,
				Line:   ref.Line,
				NewRef: fmt.Sprintf("%s@%s", interpreted.ID, newRef),
			})
		}
	}
	return updates
}
