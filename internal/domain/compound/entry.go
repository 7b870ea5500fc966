package compound

import (
	"bufio"
	"strings"

	"github.com/turtacn/keggminer/pkg/errors"
)

// labelWidth is the width of the KEGG flat-file label column.
const labelWidth = 12

// ParseEntry extracts the display name and molecular formula from a KEGG
// flat-file record as returned by /get/<id>. The name is the first
// ';'-separated synonym on the first NAME line. Missing fields come back as
// Unknown.
func ParseEntry(text string) (name, formula string) {
	fields := readFields(text, "NAME", "FORMULA")

	name, formula = Unknown, Unknown
	if lines := fields["NAME"]; len(lines) > 0 {
		first, _, _ := strings.Cut(lines[0], ";")
		if first = strings.TrimSpace(first); first != "" {
			name = first
		}
	}
	if lines := fields["FORMULA"]; len(lines) > 0 && lines[0] != "" {
		formula = lines[0]
	}
	return name, formula
}

// ValidateEntry checks that text is a KEGG flat-file record, i.e. that its
// first non-blank line carries the ENTRY label.
func ValidateEntry(text string) error {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if label, _ := splitLabel(line); label == "ENTRY" {
			return nil
		}
		break
	}
	return errors.New(errors.ErrCodeKEGGEntryInvalid, "not a KEGG flat-file record")
}

// readFields collects the value lines of the wanted labels. Continuation
// lines (blank label column) belong to the most recent label.
func readFields(text string, wanted ...string) map[string][]string {
	want := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		want[w] = true
	}
	out := make(map[string][]string, len(wanted))

	current := ""
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "///") {
			break
		}
		if line == "" {
			continue
		}
		label, value := splitLabel(line)
		if label != "" {
			current = label
		}
		if want[current] {
			out[current] = append(out[current], value)
		}
	}
	return out
}

func splitLabel(line string) (label, value string) {
	if len(line) <= labelWidth {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:labelWidth]), strings.TrimSpace(line[labelWidth:])
}
