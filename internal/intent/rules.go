package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kalambet/popcorn/internal/filter"
)

// RuleStrategy extracts filters with keyword and pattern rules. It needs no
// network, never fails and is always the last strategy in the chain.
type RuleStrategy struct{}

func (RuleStrategy) Name() string { return "rules" }

func (RuleStrategy) Extract(_ context.Context, utterance string, _ *filter.Filter) (filter.Raw, error) {
	return ParseRules(utterance), nil
}

const yearPat = `((?:18|19|20)\d{2})`

var (
	reRange    = regexp.MustCompile(`(?i)\b(?:between\s+|from\s+)?` + yearPat + `\s*(?:-|–|to|and|through|until|till)\s*` + yearPat + `\b`)
	reDecade   = regexp.MustCompile(`(?i)\b(?:(early|mid|late)[\s-]+)?(?:the\s+)?(?:(19|20)(\d)0|'?(\d)0)'?s\b`)
	reRelative = regexp.MustCompile(`(?i)\b(after|since|starting(?:\s+in)?|from|before|until|till|through|prior\s+to|up\s+to|pre|post|newer\s+than|older\s+than)[\s-]+(?:the\s+)?(?:year\s+)?` + yearPat + `\b(\s+on(?:wards?)?)?`)
	reTrailing = regexp.MustCompile(`(?i)\b` + yearPat + `\s+(?:or|and)\s+(later|newer|after|up|earlier|before|older)\b`)
	reYear     = regexp.MustCompile(`\b` + yearPat + `\b`)

	reRatingWord = regexp.MustCompile(`(?i)\b(?:rat(?:ing|ed)|scores?d?|imdb|votes?)\s*(?:of\s+|is\s+)?(?:>=|>|=>|above|over|at\s+least|higher\s+than|more\s+than|greater\s+than|min(?:imum)?(?:\s+of)?)?\s*(\d{1,2}(?:\.\d)?)\s*(%|/\s*10)?`)
	reRatingPost = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d)?)\s*(?:\+|/\s*10\s*\+?|\s+(?:stars?|or\s+(?:higher|more|above|better)))`)
	reRatingPre  = regexp.MustCompile(`(?i)\b(?:above|over|at\s+least)\s+(\d{1,2}(?:\.\d)?)\s*(?:/\s*10|stars?|rating)\b`)
	reAcclaimed  = regexp.MustCompile(`(?i)\b(?:highly[\s-]rated|top[\s-]rated|best[\s-]rated|well[\s-]rated|critically\s+acclaimed|acclaimed|masterpieces?)\b`)

	reTV    = regexp.MustCompile(`(?i)\b(?:tv|television|series|sitcoms?|shows|tv\s+shows?|miniseries|seasons?|episodes?)\b`)
	reMovie = regexp.MustCompile(`(?i)\b(?:movies?|films?|flicks?|cinema)\b`)

	reDirector   = regexp.MustCompile(`(?i)\b(?:directed\s+by|director|made\s+by|(?:movies|films|shows)\s+by|by\s+director)\s+([\p{L}][\p{L}.'-]*(?:\s+[\p{L}][\p{L}.'-]*){0,3})`)
	reActor      = regexp.MustCompile(`(?i)\b(?:starring|featuring|feat\.?|stars|acted\s+by|actor|actress)\s+([\p{L}][\p{L}.'-]*(?:\s+[\p{L}][\p{L}.'-]*){0,3})`)
	reWith       = regexp.MustCompile(`\b(?:[Ww]ith|[Ii]n\s+which)\s+(\p{Lu}[\p{L}.'-]*(?:\s+\p{Lu}[\p{L}.'-]*){0,3})`)
	reNameLed    = regexp.MustCompile(`\b(\p{Lu}[\p{Ll}.'-]+(?:\s+\p{Lu}[\p{Ll}.'-]+){1,3})(?:'s)?\s+(?:movies|films|shows)\b`)
	reWithAny    = regexp.MustCompile(`(?i)\b(?:with|in\s+which)\s+([\p{L}][\p{L}.'-]*(?:\s+[\p{L}][\p{L}.'-]*){1,3})`)
	reAfterMedia = regexp.MustCompile(`(?i:\b(?:movies?|films?|flicks|shows?|series))\b[^\p{Lu}]*?(\p{Lu}[\p{L}.'-]*(?:\s+\p{Lu}[\p{L}.'-]*){1,3})`)
	reNameAtEnd  = regexp.MustCompile(`\b(\p{Lu}[\p{L}.'-]*(?:\s+\p{Lu}[\p{L}.'-]*){1,3})[\s.!?]*$`)
)

// personRule is one way of spotting an actor's name. Keyword rules blank
// the keyword with the name; nameOnly rules blank just the name so any
// years or genres around it survive.
type personRule struct {
	re       *regexp.Regexp
	caps     bool
	min, max int
	nameOnly bool
}

var actorRules = []personRule{
	{re: reActor},
	{re: reWith, caps: true},
	{re: reNameLed, caps: true},
	{re: reWithAny, min: 2, max: 3},
	{re: reAfterMedia, caps: true, min: 2, nameOnly: true},
	{re: reNameAtEnd, caps: true, min: 2, nameOnly: true},
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "in": true, "on": true,
	"of": true, "from": true, "after": true, "before": true, "since": true, "until": true,
	"between": true, "with": true, "without": true, "rated": true, "rating": true,
	"movie": true, "movies": true, "film": true, "films": true, "show": true, "shows": true,
	"series": true, "tv": true, "that": true, "which": true, "who": true, "released": true,
	"top": true, "best": true, "good": true, "great": true, "high": true, "highly": true,
	"over": true, "above": true, "under": true, "below": true, "than": true, "at": true,
	"least": true, "please": true, "only": true, "any": true, "some": true, "me": true,
	"to": true, "for": true, "about": true, "like": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "directed": true, "starring": true,
	"featuring": true, "set": true, "during": true, "where": true, "where's": true,
	"also": true, "too": true, "instead": true, "now": true, "just": true, "but": true,
	"not": true, "no": true, "more": true, "less": true, "recent": true, "new": true,
	"old": true, "classic": true, "classics": true, "popular": true, "i": true,
	"find": true, "recommend": true, "give": true, "list": true,
	"what": true, "his": true, "her": true, "their": true,
	"early": true, "late": true, "mid": true, "year": true, "years": true, "decade": true,
	"stars": true, "star": true, "it": true, "them": true, "this": true, "these": true,
}

var genrePatterns []genrePattern

type genrePattern struct {
	re   *regexp.Regexp
	name string
}

func init() {
	for _, kw := range filter.GenreKeywords() {
		canon, _ := filter.CanonicalGenre(kw)
		genrePatterns = append(genrePatterns, genrePattern{
			re:   regexp.MustCompile(`(?i)(?:^|[^\p{L}])` + regexp.QuoteMeta(kw) + `(?:$|[^\p{L}])`),
			name: canon,
		})
	}
}

// ParseRules turns an utterance into a raw filter using deterministic rules.
func ParseRules(utterance string) filter.Raw {
	fields := make(map[string]any)
	work := utterance

	if d, rest := matchPerson(personRule{re: reDirector}, work); d != "" {
		fields["director"] = d
		work = rest
	}
	for _, r := range actorRules {
		if a, rest := matchPerson(r, work); a != "" {
			fields["actor"] = a
			work = rest
			break
		}
	}

	work = parseYears(work, fields)
	parseRating(work, fields)

	lower := strings.ToLower(utterance)
	if loc := reTV.FindStringIndex(lower); loc != nil {
		if mloc := reMovie.FindStringIndex(lower); mloc == nil || loc[0] < mloc[0] {
			fields["type"] = string(filter.TV)
		} else {
			fields["type"] = string(filter.Movie)
		}
	} else if reMovie.MatchString(lower) {
		fields["type"] = string(filter.Movie)
	}

	rest := strings.ToLower(work)
	for _, gp := range genrePatterns {
		if gp.re.MatchString(rest) {
			fields["genre"] = gp.name
			break
		}
	}

	if n, ok := filter.LimitFromText(utterance); ok {
		fields["limit"] = n
	}

	return filter.Raw{Fields: fields, Utterance: utterance}
}

var reToken = regexp.MustCompile(`\S+`)

// matchPerson returns the cleaned name captured by r and s with the
// consumed text blanked out. With r.caps every kept token must start
// upper-case in the input.
func matchPerson(r personRule, s string) (string, string) {
	for _, loc := range r.re.FindAllStringSubmatchIndex(s, -1) {
		name, n := cleanName(s[loc[2]:loc[3]], r.caps)
		if name == "" {
			continue
		}
		if tokens := len(strings.Fields(name)); tokens < r.min || (r.max > 0 && tokens > r.max) {
			continue
		}
		start, end := loc[0], loc[2]+n
		if r.nameOnly {
			start = loc[2]
		}
		return name, s[:start] + strings.Repeat(" ", end-start) + s[end:]
	}
	return "", s
}

// cleanName keeps the leading tokens of s that look like part of a person's
// name. It returns the name and the byte length of s it covers.
func cleanName(s string, requireCaps bool) (string, int) {
	var kept []string
	consumed := 0
	for _, loc := range reToken.FindAllStringIndex(s, -1) {
		tok := strings.Trim(s[loc[0]:loc[1]], ".,;:!?'\"")
		low := strings.ToLower(tok)
		if tok == "" || stopwords[low] || isGenreWord(low) || isNumeric(tok) {
			break
		}
		if requireCaps && !startsUpper(tok) {
			break
		}
		kept = append(kept, tok)
		consumed = loc[1]
	}
	if len(kept) == 0 {
		return "", 0
	}
	name := strings.Join(kept, " ")
	if isGenreWord(strings.ToLower(name)) {
		return "", 0
	}
	if name == strings.ToLower(name) {
		name = cases.Title(language.English).String(name)
	}
	return name, consumed
}

func parseYears(work string, fields map[string]any) string {
	if m := reRange.FindStringSubmatch(work); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		fields["year_after"], fields["year_before"] = a, b
		return blank(work, reRange)
	}

	if m := reDecade.FindStringSubmatch(work); m != nil {
		start := decadeStart(m[2], m[3], m[4])
		end := start + 9
		switch strings.ToLower(m[1]) {
		case "early":
			end = start + 3
		case "mid":
			start, end = start+3, start+6
		case "late":
			start += 6
		}
		fields["year_after"], fields["year_before"] = start, end
		return blank(work, reDecade)
	}

	if m := reRelative.FindStringSubmatch(work); m != nil {
		y, _ := strconv.Atoi(m[2])
		word := strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
		switch word {
		case "after", "post", "newer than":
			fields["year_after"] = y + 1
		case "since", "starting", "starting in":
			fields["year_after"] = y
		case "from":
			if m[3] != "" {
				fields["year_after"] = y
			} else {
				fields["year"] = y
			}
		case "before", "prior to", "pre", "older than":
			fields["year_before"] = y - 1
		default:
			fields["year_before"] = y
		}
		return blank(work, reRelative)
	}

	if m := reTrailing.FindStringSubmatch(work); m != nil {
		y, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "earlier", "before", "older":
			fields["year_before"] = y
		default:
			fields["year_after"] = y
		}
		return blank(work, reTrailing)
	}

	if m := reYear.FindStringSubmatch(work); m != nil {
		y, _ := strconv.Atoi(m[1])
		fields["year"] = y
		return blank(work, reYear)
	}
	return work
}

func decadeStart(century, decade4, decade2 string) int {
	if century != "" {
		c, _ := strconv.Atoi(century)
		d, _ := strconv.Atoi(decade4)
		return c*100 + d*10
	}
	d, _ := strconv.Atoi(decade2)
	if d <= 2 {
		return 2000 + d*10
	}
	return 1900 + d*10
}

func parseRating(work string, fields map[string]any) {
	for _, re := range []*regexp.Regexp{reRatingWord, reRatingPre, reRatingPost} {
		m := re.FindStringSubmatch(work)
		if m == nil {
			continue
		}
		r, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if len(m) > 2 && m[2] == "%" {
			r /= 10
		}
		if r <= 0 || r > 10 {
			continue
		}
		fields["min_rating"] = r
		return
	}
	if reAcclaimed.MatchString(work) {
		fields["min_rating"] = 7.5
	}
}

// blank replaces the first match of re in s with spaces so later rules do
// not re-read the same text.
func blank(s string, re *regexp.Regexp) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + s[loc[1]:]
}

func isGenreWord(s string) bool {
	_, ok := filter.CanonicalGenre(s)
	return ok
}

// isNumeric reports whether s carries a digit, as years, ratings and
// counts do. Names never do.
func isNumeric(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
