// command.go - Expense commands from model replies or local heuristics

package gateway

import (
	"regexp"
	"strings"
	"time"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
	"github.com/bosocmputer/expense_ai_gateway/internal/parser"
)

// commandFromReply reads the JSON object of a command reply.
func commandFromReply(reply string) *ExpenseCommand {
	rec := parser.Parse(reply)
	if rec == nil {
		return nil
	}
	cmd := &ExpenseCommand{
		Description: nullable(rec.String("description")),
		Merchant:    nullable(rec.String("merchant")),
	}
	if amount, ok := rec.Float("amount"); ok && amount > 0 {
		cmd.Amount = models.Float(amount)
	}
	if d := rec.String("date"); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			cmd.Date = t.Format("2006-01-02")
		}
	}
	if c, ok := models.ParseCategory(rec.String("category")); ok {
		cmd.Category = c
	}
	if cmd.Amount == nil && cmd.Description == "" {
		return nil
	}
	return cmd
}

func nullable(s string) string {
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

var (
	currencyAmountRe = regexp.MustCompile(`(?i)€\s*(\d+(?:[.,]\d{1,2})?)|(\d+(?:[.,]\d{1,2})?)\s*(?:€|eur(?:os?)?\b)`)
	bareAmountRe     = regexp.MustCompile(`\b\d+(?:[.,]\d{1,2})?\b`)
	fullDateRe       = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
	dayMonthRe       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	merchantLeadRe   = regexp.MustCompile(`(?i)(?:^|\s)(?:chez|at|bij)\s+`)

	relativeDays = []struct {
		re     *regexp.Regexp
		offset int
	}{
		{regexp.MustCompile(`(?i)\bavant-hier\b|\beergisteren\b|\bday before yesterday\b`), -2},
		{regexp.MustCompile(`(?i)(?:^|[^\pL-])(?:hier|yesterday|gisteren)(?:$|[^\pL])`), -1},
		{regexp.MustCompile(`(?i)\baujourd['’]hui\b|\btoday\b|\bvandaag\b`), 0},
	}
)

// Words that end a merchant name or carry no description.
var (
	merchantStopWords = map[string]bool{
		"hier": true, "avant-hier": true, "aujourd'hui": true, "today": true, "yesterday": true,
		"vandaag": true, "gisteren": true, "eergisteren": true, "pour": true, "for": true,
		"voor": true, "le": true, "on": true, "op": true, "ce": true, "this": true, "deze": true,
		"et": true, "and": true, "en": true,
	}
	fillerWords = map[string]bool{
		"j'ai": true, "j’ai": true, "ai": true, "payé": true, "paye": true, "paid": true,
		"spent": true, "dépensé": true, "depense": true, "betaald": true, "ik": true,
		"heb": true, "i": true, "pour": true, "for": true, "voor": true, "euro": true,
		"euros": true, "eur": true, "€": true, "hier": true, "avant-hier": true,
		"aujourd'hui": true, "today": true, "yesterday": true, "vandaag": true,
		"gisteren": true, "eergisteren": true,
	}
)

// parseCommandLocally extracts amount, merchant, date and description
// without any provider.
func parseCommandLocally(text string, now time.Time) *ExpenseCommand {
	cmd := &ExpenseCommand{Source: ProviderRules}
	work := text

	// Dates first so their digits are not taken for an amount
	for _, re := range []*regexp.Regexp{fullDateRe, dayMonthRe} {
		if loc := re.FindStringSubmatchIndex(work); loc != nil {
			if d, ok := explicitDate(work, loc, now); ok {
				cmd.Date = d
				work = blank(work, loc[0], loc[1])
				break
			}
		}
	}
	if cmd.Date == "" {
		for _, rd := range relativeDays {
			if rd.re.MatchString(work) {
				cmd.Date = now.AddDate(0, 0, rd.offset).Format("2006-01-02")
				break
			}
		}
	}

	if loc := currencyAmountRe.FindStringSubmatchIndex(work); loc != nil {
		raw := submatch(work, loc, 1)
		if raw == "" {
			raw = submatch(work, loc, 2)
		}
		if v, ok := parser.ParseAmount(raw); ok && v > 0 {
			cmd.Amount = models.Float(v)
		}
		work = blank(work, loc[0], loc[1])
	} else if loc := bareAmountRe.FindStringIndex(work); loc != nil {
		if v, ok := parser.ParseAmount(work[loc[0]:loc[1]]); ok && v > 0 {
			cmd.Amount = models.Float(v)
		}
		work = blank(work, loc[0], loc[1])
	}

	if loc := merchantLeadRe.FindStringIndex(work); loc != nil {
		rest := strings.Fields(work[loc[1]:])
		var name []string
		for _, w := range rest {
			word := strings.Trim(w, ",.;:!?")
			if word == "" || merchantStopWords[strings.ToLower(word)] || strings.ContainsAny(word, "0123456789") || len(name) == 3 {
				break
			}
			name = append(name, word)
			if word != w {
				break
			}
		}
		if len(name) > 0 {
			cmd.Merchant = strings.Join(name, " ")
			end := loc[1] + strings.Index(work[loc[1]:], name[len(name)-1]) + len(name[len(name)-1])
			work = blank(work, loc[0], end)
		}
	}

	var kept []string
	for _, w := range strings.Fields(work) {
		word := strings.Trim(w, ",.;:!?-")
		if word == "" || fillerWords[strings.ToLower(word)] {
			continue
		}
		kept = append(kept, word)
	}
	cmd.Description = strings.Join(kept, " ")

	if cmd.Amount == nil && cmd.Description == "" {
		return nil
	}
	return cmd
}

func explicitDate(s string, loc []int, now time.Time) (string, bool) {
	day, month, year := submatch(s, loc, 1), submatch(s, loc, 2), submatch(s, loc, 3)
	if year == "" {
		year = now.Format("2006")
	}
	t, err := time.Parse("2/1/2006", day+"/"+month+"/"+year)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func submatch(s string, loc []int, i int) string {
	if 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return ""
	}
	return s[loc[2*i]:loc[2*i+1]]
}

// blank replaces s[start:end] with spaces, keeping offsets stable.
func blank(s string, start, end int) string {
	return s[:start] + strings.Repeat(" ", end-start) + s[end:]
}
