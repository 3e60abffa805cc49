package strategy

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"LetHimCook-App/internal/domain/model"
)

// parserState は行単位の解析状態
type parserState int

const (
	// stateSeekingHeader 最初のレコード見出しを探している
	stateSeekingHeader parserState = iota
	// stateInRecord 見出しに続くフィールドを読んでいる
	stateInRecord
	// stateSkippingRecord 範囲外の見出しに続く行を読み飛ばしている
	stateSkippingRecord
)

var (
	// 「VENUE 3」「**RESTAURANT 3:**」「## Venue #3」「VENUE 1: STATUS: YES」などの見出し
	// 番号の後は区切り記号か行末のみ（「Restaurant 24 hours」は見出しではない）
	keywordHeaderPattern = regexp.MustCompile(`(?i)^[\s#*>_-]*(?:venue|restaurant)\s*#?\s*(\d+)(?:[\s*_]*[:.)\]-][\s*_:.)\]-]*(.*)|[\s*_]*)$`)
	// 「#3」「**#3**」「## 3.」のように番号だけの行（「#01-23 Chinatown Complex」は住所の続き）
	hashHeaderPattern = regexp.MustCompile(`^[\s*>_]*#+\s*(\d+)[\s*_]*[:.)]?[\s*_]*$`)
	// 「STATUS: YES」「- **Operational Confidence**: 8/10」などのラベル行
	labelPattern = regexp.MustCompile(`^[\s#*>_-]*([A-Za-z][A-Za-z _]*?)[\s*_]*:[\s*_]*(.*)$`)
	// 「8/10」「7.5」「9 / 10」などの数値
	scorePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:/\s*(\d+(?:\.\d+)?))?`)
	// 「1.3200, 103.8595」などの座標
	coordinatePattern = regexp.MustCompile(`(-?\d{1,3}\.\d+)\s*[,;\s]\s*(-?\d{1,3}\.\d+)`)
)

// judgmentDraft は解析途中の1レコード
type judgmentDraft struct {
	result    model.ValidationResult
	hasStatus bool
	lastField string
}

// fieldHandler はラベルごとの値の取り込み処理
type fieldHandler func(d *judgmentDraft, value string)

// JudgmentParser はAIの自由形式テキストから店舗ごとの判定を取り出す
// 現在のレコードへのポインタとラベルの振り分け表を持つ状態機械で、どのような入力でもpanicしない
type JudgmentParser struct {
	handlers map[string]fieldHandler
}

// NewJudgmentParser は新しいJudgmentParserを作成
func NewJudgmentParser() *JudgmentParser {
	status := func(d *judgmentDraft, v string) {
		word := firstWord(v)
		if word == "" {
			return
		}
		d.result.Status = model.ParseValidationStatus(word)
		d.hasStatus = true
	}
	operational := func(d *judgmentDraft, v string) {
		if score, ok := parseScore(v); ok {
			d.result.OperationalConfidence = score
		}
	}
	address := func(d *judgmentDraft, v string) {
		if score, ok := parseScore(v); ok {
			d.result.AddressQuality = score
		}
	}
	rationale := func(d *judgmentDraft, v string) {
		d.result.Rationale = appendText(d.result.Rationale, v)
	}
	coordinates := func(d *judgmentDraft, v string) {
		if p, ok := parseCoordinates(v); ok {
			d.result.Coordinates = &p
		}
	}
	location := func(d *judgmentDraft, v string) {
		d.result.LocationText = appendText(d.result.LocationText, v)
		if d.result.Coordinates == nil {
			if p, ok := parseCoordinates(v); ok {
				d.result.Coordinates = &p
			}
		}
	}

	return &JudgmentParser{
		handlers: map[string]fieldHandler{
			"STATUS":                 status,
			"VERDICT":                status,
			"OPERATIONAL_CONFIDENCE": operational,
			"OPERATIONAL":            operational,
			"CONFIDENCE":             operational,
			"ADDRESS_QUALITY":        address,
			"RATIONALE":              rationale,
			"REASON":                 rationale,
			"REASONING":              rationale,
			"COORDINATES":            coordinates,
			"COORDS":                 coordinates,
			"LOCATION":               location,
			"ADDRESS":                location,
		},
	}
}

// Parse はexpected件分の判定を番号順に返す
// STATUSが読めなかったレコードはnil、範囲外の番号は無視する
func (p *JudgmentParser) Parse(text string, expected int) []*model.ValidationResult {
	if expected <= 0 {
		return nil
	}

	drafts := make([]*judgmentDraft, expected)
	state := stateSeekingHeader
	var current *judgmentDraft

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" {
			continue
		}

		if idx, rest, ok := matchHeader(line); ok {
			if idx < 1 || idx > expected {
				state = stateSkippingRecord
				current = nil
				continue
			}
			if drafts[idx-1] == nil {
				drafts[idx-1] = newDraft()
			}
			current = drafts[idx-1]
			state = stateInRecord
			// 見出しと同じ行に続くフィールド（「VENUE 1: STATUS: YES」）
			if rest != "" {
				p.consume(current, rest)
			}
			continue
		}

		switch state {
		case stateSeekingHeader, stateSkippingRecord:
			continue
		case stateInRecord:
			p.consume(current, line)
		}
	}

	results := make([]*model.ValidationResult, expected)
	for i, d := range drafts {
		if d == nil || !d.hasStatus {
			continue
		}
		r := d.result
		results[i] = &r
	}
	return results
}

// consume は1行をラベルに応じて現在のレコードへ取り込む
func (p *JudgmentParser) consume(d *judgmentDraft, line string) {
	if d == nil {
		return
	}
	if m := labelPattern.FindStringSubmatch(line); m != nil {
		key := normalizeLabel(m[1])
		if handler, ok := p.handlers[key]; ok {
			handler(d, strings.TrimSpace(m[2]))
			d.lastField = key
			return
		}
	}
	// ラベルの無い行は直前の理由・位置の続きとして扱う
	switch d.lastField {
	case "RATIONALE", "REASON", "REASONING":
		d.result.Rationale = appendText(d.result.Rationale, stripMarkdown(line))
	case "LOCATION", "ADDRESS":
		d.result.LocationText = appendText(d.result.LocationText, stripMarkdown(line))
	}
}

func newDraft() *judgmentDraft {
	return &judgmentDraft{
		result: model.ValidationResult{
			Status:                model.StatusUnknown,
			OperationalConfidence: model.ScoreNotReported,
			AddressQuality:        model.ScoreNotReported,
		},
	}
}

func matchHeader(line string) (int, string, bool) {
	var digits, rest string
	if m := keywordHeaderPattern.FindStringSubmatch(line); m != nil {
		digits, rest = m[1], m[2]
	} else if m := hashHeaderPattern.FindStringSubmatch(line); m != nil {
		digits = m[1]
	} else {
		return 0, "", false
	}
	idx, err := strconv.Atoi(digits)
	if err != nil {
		return 0, "", false
	}
	return idx, strings.TrimSpace(rest), true
}

func normalizeLabel(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '_' }), "_")
}

// parseScore は「8/10」「7.5」などを0〜10の整数に変換する
func parseScore(v string) (int, bool) {
	m := scorePattern.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		if den, err := strconv.ParseFloat(m[2], 64); err == nil && den > 0 && den != 10 {
			value = value * 10 / den
		}
	}
	score := int(math.Round(value))
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, true
}

func parseCoordinates(v string) (model.LatLng, bool) {
	m := coordinatePattern.FindStringSubmatch(v)
	if m == nil {
		return model.LatLng{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return model.LatLng{}, false
	}
	p := model.LatLng{Lat: lat, Lng: lng}
	if p.Validate() != nil {
		return model.LatLng{}, false
	}
	return p, true
}

func firstWord(v string) string {
	fields := strings.FieldsFunc(stripMarkdown(v), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == ';' || r == '(' || r == '-' || r == '/'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func stripMarkdown(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`>"))
}

func appendText(existing, more string) string {
	more = strings.TrimSpace(more)
	if more == "" {
		return existing
	}
	if existing == "" {
		return more
	}
	return existing + " " + more
}
