package sensor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// NoNumber is what ExtractLeadingNumber returns for names without digits,
// so unnumbered sensors sort after numbered ones.
const NoNumber = 999

var (
	trademarkRe    = regexp.MustCompile(`(?i)\s*\((?:tm|r|c)\)|[™®©]`)
	processorRe    = regexp.MustCompile(`(?i)\s*\bprocessor\s*$`)
	coreCountRe    = regexp.MustCompile(`(?i)\b\d+\s*-\s*(?:core|thread|way)s?\b`)
	clockSpeedRe   = regexp.MustCompile(`(?i)(?:@\s*)?\b\d+(?:\.\d+)?\s*[gm]hz\b`)
	diskDeviceRe   = regexp.MustCompile(`(?i)\s*\bdisk device\s*$`)
	categoryWordRe = regexp.MustCompile(`(?i)^(?:cpu|gpu|memory|disk)\s+`)
)

// sensorSeparators are stripped from the front of a sensor name once a
// hardware prefix has been removed.
const sensorSeparators = " -:_/|,."

// friendlySensorNames remaps exact technical sensor names, keyed lowercase.
var friendlySensorNames = map[string]string{
	"temperature": "Core",
	"tctl/tdie":   "Core (Tctl/Tdie)",
	"gpu core":    "Core",
	"package":     "Package",
}

// SimplifyHardwareName turns a vendor hardware string such as
// "Intel(R) Core(TM) i7-4770 CPU @ 3.40GHz" into a display label.
func SimplifyHardwareName(raw string) string {
	name := trademarkRe.ReplaceAllString(raw, "")
	name = coreCountRe.ReplaceAllString(name, "")
	name = clockSpeedRe.ReplaceAllString(name, "")
	name = processorRe.ReplaceAllString(name, "")
	name = diskDeviceRe.ReplaceAllString(name, "")
	name = collapseSpaces(name)

	if name == "" {
		return collapseSpaces(raw)
	}
	if mostlyUpper(name) {
		name = titleCase(name)
	}
	return name
}

// CleanSensorName strips redundant qualification from a sensor name: a
// leading copy of its hardware name, a leading category word, and known
// technical aliases.
func CleanSensorName(raw, hardwareName string) string {
	name := strings.TrimSpace(raw)
	if hw := strings.TrimSpace(hardwareName); hw != "" && hasWordPrefix(name, hw) {
		name = strings.TrimLeft(name[len(hw):], sensorSeparators)
	}
	name = categoryWordRe.ReplaceAllString(name, "")
	if friendly, ok := friendlySensorNames[strings.ToLower(name)]; ok {
		name = friendly
	}
	name = strings.TrimSpace(strings.TrimLeft(name, sensorSeparators))
	if name == "" {
		return "Core"
	}
	return name
}

// ExtractLeadingNumber concatenates every digit in name and parses the
// result. Names without digits, or with too many, yield NoNumber.
func ExtractLeadingNumber(name string) int {
	var digits strings.Builder
	for _, r := range name {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return NoNumber
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return NoNumber
	}
	return n
}

// SortReadings orders sensors for display: core sensors first, then by
// their embedded number, then by name.
func SortReadings(rs []Reading) {
	sort.SliceStable(rs, func(i, j int) bool {
		ci, cj := isCoreName(rs[i].Name), isCoreName(rs[j].Name)
		if ci != cj {
			return ci
		}
		ni, nj := ExtractLeadingNumber(rs[i].Name), ExtractLeadingNumber(rs[j].Name)
		if ni != nj {
			return ni < nj
		}
		return rs[i].Name < rs[j].Name
	})
}

func isCoreName(name string) bool {
	return strings.Contains(strings.ToLower(name), "core")
}

// hasWordPrefix reports whether s starts with prefix (case-insensitively)
// and the prefix ends on a word boundary.
func hasWordPrefix(s, prefix string) bool {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return false
	}
	if len(s) == len(prefix) {
		return true
	}
	next := rune(s[len(prefix)])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func mostlyUpper(s string) bool {
	var letters, upper int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return letters > 0 && float64(upper)/float64(letters) > 0.7
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
