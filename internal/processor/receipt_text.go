// receipt_text.go - Heuristic extraction of receipt fields from recognized text
//
// Used for plain-text OCR output (the offline engine and providers that
// answer with markdown instead of JSON). Tuned for Belgian and French
// supermarket tickets.

package processor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

const (
	maxMerchantLength = 50
	maxReceiptAmount  = 100000.0
)

// Longer names first so "PROXY DELHAIZE" wins over "DELHAIZE".
var knownMerchants = []string{
	"CARREFOUR EXPRESS", "PROXY DELHAIZE", "AUCHAN DRIVE",
	"CARREFOUR", "LECLERC", "AUCHAN", "INTERMARCHE", "INTERMARCHÉ", "SUPER U", "HYPER U",
	"MONOPRIX", "FRANPRIX", "CASINO", "LIDL", "ALDI", "PICARD", "DELHAIZE",
	"COLRUYT", "MATCH", "CORA", "SPAR",
}

var (
	totalAmountRe = regexp.MustCompile(`\d+[.,]\d{2,}`)
	itemAmountRe  = regexp.MustCompile(`\d+[.,]\d{1,3}`)

	totalLabelRe      = regexp.MustCompile(`(?i)total\s*:`)
	grandTotalLabelRe = regexp.MustCompile(`(?i)grand\s+[vt]otal\s*:`)
	secondaryTotalRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcash\b`),
		regexp.MustCompile(`(?i)\bsomme\b`),
		regexp.MustCompile(`(?i)\bmontant\b`),
		regexp.MustCompile(`(?i)\bnet\s+[aà]\s+payer\b`),
		regexp.MustCompile(`(?i)\bcarte\b`),
	}

	legalFormRe   = regexp.MustCompile(`(?im)^\s*([\pL&'\- ]{3,30}?)\s+(?:SPRL|SRL|SA|S\.A\.|NV|BV|BVBA|SARL|SAS)\b`)
	letterLineRe  = regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z ]{2,30})\s*$`)
	genericHeader = map[string]bool{"TICKET": true, "DE": true, "CAISSE": true, "TVA": true, "FACTURE": true, "RECU": true, "REÇU": true}

	headerLineRe  = regexp.MustCompile(`(?i)^(?:TICKET|CAISSE|FACTURE|RE[ÇC]U)`)
	digitsOnlyRe  = regexp.MustCompile(`^[\d/\-.\s]+$`)
	longDateRe    = regexp.MustCompile(`\b(\d{2})[/\-.](\d{2})[/\-.](\d{4})\b`)
	shortDateRe   = regexp.MustCompile(`\b(\d{2})[/\-.](\d{2})[/\-.](\d{2})\b`)
	leadingJunkRe = regexp.MustCompile(`^[!•\-*\s\d]+`)
	quantityRe    = regexp.MustCompile(`^(\d+)\s*[xX]?\s+`)
	numericNameRe = regexp.MustCompile(`^[IVA\s\d]+$|^[\s\-./]+$`)
)

// Lines containing any of these are never line items.
var itemExcludeWords = []string{
	"TOTAL", "SOUS-TOTAL", "SUBTOTAL", "TVA", "TAX", "SOMME", "MONTANT",
	"CASH", "CARTE", "ESPECE", "ESPÈCE", "CHANGE", "RENDU", "QTE", "PRIX",
	"P.U.", "ARTICLE", "DESIGNATION", "GRAND", "VOTAL", "IVA", "BTW",
	"INCL", "%",
}

// ParseReceiptText extracts merchant, total, date and line items from
// recognized receipt text. The date falls back to today.
func ParseReceiptText(text string) models.OCRData {
	return parseReceiptText(text, time.Now())
}

func parseReceiptText(text string, now time.Time) models.OCRData {
	data := models.OCRData{
		Merchant: extractMerchant(text),
		Date:     extractDate(text, now),
		Items:    extractLineItems(text),
		RawText:  text,
	}
	if total, ok := extractTotal(text); ok {
		data.Total = models.Float(total)
	}
	return data
}

func extractMerchant(text string) string {
	if match := MatchMerchant(text); match.Found {
		return match.Name
	}

	for _, re := range []*regexp.Regexp{legalFormRe, letterLineRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			if candidate != "" && !genericHeader[strings.ToUpper(candidate)] && !headerLineRe.MatchString(candidate) {
				return candidate
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= 3 || digitsOnlyRe.MatchString(line) || headerLineRe.MatchString(line) {
			continue
		}
		if runes := []rune(line); len(runes) > maxMerchantLength {
			return string(runes[:maxMerchantLength])
		}
		return line
	}
	return ""
}

func extractTotal(text string) (float64, bool) {
	lines := strings.Split(text, "\n")

	// "Total:" lines, ignoring the "Grand Total" summary that some tills print
	for _, line := range lines {
		if totalLabelRe.MatchString(line) && !grandTotalLabelRe.MatchString(line) {
			if v, ok := lastAmount(line); ok {
				return v, true
			}
		}
	}

	for _, re := range secondaryTotalRes {
		for _, line := range lines {
			if re.MatchString(line) {
				if v, ok := lastAmount(line); ok {
					return v, true
				}
			}
		}
	}

	for _, line := range lines {
		if grandTotalLabelRe.MatchString(line) {
			if v, ok := lastAmount(line); ok {
				return v, true
			}
		}
	}

	// Largest amount on the ticket
	var amounts []float64
	for _, s := range totalAmountRe.FindAllString(text, -1) {
		if v, ok := receiptAmount(s); ok {
			amounts = append(amounts, v)
		}
	}
	if len(amounts) == 0 {
		return 0, false
	}
	sort.Float64s(amounts)
	return amounts[len(amounts)-1], true
}

func lastAmount(line string) (float64, bool) {
	matches := totalAmountRe.FindAllString(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	return receiptAmount(matches[len(matches)-1])
}

func receiptAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || v <= 0 || v >= maxReceiptAmount {
		return 0, false
	}
	return v, true
}

func extractDate(text string, now time.Time) string {
	if d, ok := findDate(text); ok {
		return d
	}
	return now.Format("2006-01-02")
}

// findDate returns the first plausible dd/mm/yyyy or dd/mm/yy date.
func findDate(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{longDateRe, shortDateRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				if year <= 50 {
					year += 2000
				} else {
					year += 1900
				}
			}
			if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > 2100 {
				continue
			}
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
		}
	}
	return "", false
}

func extractLineItems(text string) []models.LineItem {
	items := []models.LineItem{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || containsAny(strings.ToUpper(line), itemExcludeWords) {
			continue
		}

		locs := itemAmountRe.FindAllStringIndex(line, -1)
		if len(locs) < 2 {
			continue
		}
		unitLoc, totalLoc := locs[len(locs)-2], locs[len(locs)-1]
		unit, errU := strconv.ParseFloat(strings.Replace(line[unitLoc[0]:unitLoc[1]], ",", ".", 1), 64)
		total, errT := strconv.ParseFloat(strings.Replace(line[totalLoc[0]:totalLoc[1]], ",", ".", 1), 64)
		if errU != nil || errT != nil || unitLoc[0] == 0 {
			continue
		}

		name := strings.TrimSpace(line[:unitLoc[0]])
		quantity := 1.0
		if m := quantityRe.FindStringSubmatch(name); m != nil {
			if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
				quantity = float64(q)
			}
		}
		name = strings.TrimSpace(leadingJunkRe.ReplaceAllString(name, ""))
		name = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(name, "x "), "X "))

		if len(name) < 2 || len(name) > 100 || numericNameRe.MatchString(name) {
			continue
		}
		if unit <= 0 || unit >= 1000 || total <= 0 || total >= 10000 {
			continue
		}

		item := models.LineItem{Name: name, TotalPrice: total}
		if quantity > 1 {
			item.Quantity = models.Float(quantity)
		}
		if diff := unit - total; diff > 0.01 || diff < -0.01 {
			item.UnitPrice = models.Float(unit)
		}
		items = append(items, item)
	}
	return items
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
