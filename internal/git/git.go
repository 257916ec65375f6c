package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"relex/internal/ast"
)

// ChangedFile is one file touched since the base ref, with the line numbers
// of its added or modified lines in the new version.
type ChangedFile struct {
	Path         string
	Lang         string
	ChangedLines []int
}

// chunk header: @@ -oldStart,oldLen +newStart,newLen @@
var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// ChangedSources runs git diff against the base ref and returns the changed
// files whose extension maps to a supported language. Files in other
// languages are dropped here so callers re-analyze only what the engine
// can parse.
func ChangedSources(baseRef string, langs []string) ([]ChangedFile, error) {
	cmd := exec.Command("git", "diff", "-U0", baseRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	allowed := make(map[string]bool, len(langs))
	for _, l := range langs {
		allowed[l] = true
	}

	var out []ChangedFile
	for _, cf := range parseDiff(output) {
		lang, ok := ast.LanguageForPath(cf.Path)
		if !ok || !allowed[lang] {
			continue
		}
		cf.Lang = lang
		out = append(out, cf)
	}
	return out, nil
}

func parseDiff(output []byte) []ChangedFile {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []ChangedFile
	var current *ChangedFile

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			// New file section; the b/ path is the post-change name.
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				if current != nil {
					changes = append(changes, *current)
				}
				current = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/")}
			}
			continue
		}

		if current == nil || !strings.HasPrefix(line, "@@") {
			continue
		}

		matches := chunkHeader.FindStringSubmatch(line)
		if len(matches) < 2 {
			continue
		}
		start, _ := strconv.Atoi(matches[1])
		count := 1
		if matches[2] != "" {
			count, _ = strconv.Atoi(matches[2])
		}
		for i := 0; i < count; i++ {
			current.ChangedLines = append(current.ChangedLines, start+i)
		}
	}

	if current != nil {
		changes = append(changes, *current)
	}
	return changes
}
