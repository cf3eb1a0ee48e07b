package modeldir

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// model identifiers look like "vendor/model-name"
	modelNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.\-]+$`)
	priceMarkRe = regexp.MustCompile(`[¥￥$]`)
)

// freeMarkers are the strings a pricing card shows for a zero-cost model.
var freeMarkers = []string{"免费", "Free"}

// maxCardClimb bounds how far up the DOM we look for the pricing card
// that contains a model name.
const maxCardClimb = 6

// ParseFreeModelsHTML extracts free-tier model identifiers from a provider
// pricing page. A name counts as free only when its enclosing card shows a
// free marker at least twice (input and output pricing) and no currency
// symbol; this keeps partially-discounted entries out of the list.
func ParseFreeModelsHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pricing page: %w", err)
	}

	candidates := make(map[string]bool)

	collect := func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" || len(name) > 80 || !modelNameRe.MatchString(name) {
			return
		}
		if strings.HasPrefix(name, "Pro/") {
			return
		}
		card := sel
		for i := 0; i < maxCardClimb; i++ {
			parent := card.Parent()
			if parent.Length() == 0 {
				break
			}
			card = parent
			text := card.Text()
			if countMarkers(text) >= 2 {
				if !priceMarkRe.MatchString(text) {
					candidates[name] = true
				}
				return
			}
		}
	}

	doc.Find("h1, h2, h3, h4, strong, a").Each(collect)
	doc.Find(".model-name, .modelItem-name, .price-model-name, .card-title").Each(collect)

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no free models recognized on pricing page")
	}

	models := make([]string, 0, len(candidates))
	for name := range candidates {
		models = append(models, name)
	}
	sort.Strings(models)
	return models, nil
}

func countMarkers(text string) int {
	n := 0
	for _, m := range freeMarkers {
		n += strings.Count(text, m)
	}
	return n
}
