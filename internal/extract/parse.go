package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/verte-zerg/zonecalc/internal/model"
)

var (
	jsonBlock   = regexp.MustCompile(`(?s)\{.*\}`)
	inlineEntry = regexp.MustCompile(`(?i)(\d+)\s*([BR]B)`)
	lineEntry   = regexp.MustCompile(`(?i)(\d+).*?([BR]B)`)
)

type answer struct {
	Results []answerEntry `json:"results"`
}

type answerEntry struct {
	Game any `json:"game"`
	Type any `json:"type"`
}

// ParseAnswer extracts entries from a model reply. The reply is decoded as
// JSON, then the first {...} block inside it is tried. Entries need a whole
// numeric game and a BB or RB type. When nothing decodes, lenient enables a
// plain text scan for "<games> BB|RB"; otherwise the result is empty.
func ParseAnswer(text string, lenient bool) []model.RawRecord {
	if parsed, ok := decodeAnswer(text); ok {
		return validEntries(parsed.Results)
	}
	if block := jsonBlock.FindString(text); block != "" {
		if parsed, ok := decodeAnswer(block); ok {
			return validEntries(parsed.Results)
		}
	}
	if lenient {
		return scanText(text)
	}
	return nil
}

func decodeAnswer(text string) (answer, bool) {
	var parsed answer
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return answer{}, false
	}
	if parsed.Results == nil {
		return answer{}, false
	}
	return parsed, true
}

func validEntries(entries []answerEntry) []model.RawRecord {
	out := make([]model.RawRecord, 0, len(entries))
	for _, entry := range entries {
		game, ok := entry.Game.(float64)
		if !ok || game < 0 || game != math.Trunc(game) || game > math.MaxInt32 {
			continue
		}
		kind, ok := entry.Type.(string)
		if !ok {
			continue
		}
		var bonus model.BonusType
		switch kind {
		case "BB":
			bonus = model.BonusBB
		case "RB":
			bonus = model.BonusRB
		default:
			continue
		}
		out = append(out, model.RawRecord{Game: int(game), Type: bonus})
	}
	return out
}

func scanText(text string) []model.RawRecord {
	var out []model.RawRecord
	for _, m := range inlineEntry.FindAllStringSubmatch(text, -1) {
		if rec, ok := rawFromMatch(m); ok {
			out = append(out, rec)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, line := range strings.Split(text, "\n") {
		m := lineEntry.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if rec, ok := rawFromMatch(m); ok {
			out = append(out, rec)
		}
	}
	return out
}

func rawFromMatch(m []string) (model.RawRecord, bool) {
	game, err := strconv.Atoi(m[1])
	if err != nil || game <= 0 {
		return model.RawRecord{}, false
	}
	bonus := model.BonusRB
	if strings.EqualFold(m[2], "BB") {
		bonus = model.BonusBB
	}
	return model.RawRecord{Game: game, Type: bonus}, true
}
