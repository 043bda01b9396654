// Package textimport loads play history from plain text files.
package textimport

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/verte-zerg/zonecalc/internal/model"
)

var entryPattern = regexp.MustCompile(`(?i)^(\d+)\s*g?\s*[,:]?\s*(BB|RB)\b`)

// LoadRecords reads one "<games> BB|RB" entry per line from path.
func LoadRecords(path string) ([]model.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only history file.
			_ = cerr
		}
	}()
	return ParseLines(file)
}

// ParseLines parses entries from r. Blank lines, # comments, lines without
// an entry and zero game counts are skipped. Full-width digits and letters
// are accepted.
func ParseLines(r io.Reader) ([]model.RawRecord, error) {
	var records []model.RawRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(width.Narrow.String(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		game, err := strconv.Atoi(m[1])
		if err != nil || game == 0 {
			continue
		}
		bonus := model.BonusRB
		if strings.EqualFold(m[2], "BB") {
			bonus = model.BonusBB
		}
		records = append(records, model.RawRecord{Game: game, Type: bonus})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("history file has no entries")
	}
	return records, nil
}
