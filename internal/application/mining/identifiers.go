package mining

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/pkg/errors"
)

// ReadIdentifiers loads identifiers from path. A file that cannot be read is
// logged and yields no identifiers; it never stops the run.
func ReadIdentifiers(path string, log logging.Logger) []compound.ID {
	if log == nil {
		log = logging.NewNopLogger()
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error("input file not found", logging.String("path", path))
		} else {
			log.Error("input file unreadable", logging.String("path", path), logging.Err(err))
		}
		return []compound.ID{}
	}
	defer f.Close()

	ids, err := ParseIdentifiers(f)
	if err != nil {
		log.Error("input file read interrupted",
			logging.String("path", path), logging.Int("read", len(ids)), logging.Err(err))
	}
	return ids
}

// ParseIdentifiers returns the first tab-separated field of every non-blank
// line of r. A UTF-8 or UTF-16 byte-order mark selects the decoding;
// otherwise UTF-8 is assumed. Tokens are NFKC normalised and not deduplicated.
func ParseIdentifiers(r io.Reader) ([]compound.ID, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(decoded)

	ids := []compound.ID{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		field, _, _ := strings.Cut(line, "\t")
		field = strings.TrimSpace(norm.NFKC.String(field))
		if field == "" {
			continue
		}
		ids = append(ids, compound.ID(field))
	}
	if err := scanner.Err(); err != nil {
		return ids, errors.Wrap(err, errors.ErrCodeInputUnreadable, "failed to read identifiers")
	}
	return ids, nil
}
